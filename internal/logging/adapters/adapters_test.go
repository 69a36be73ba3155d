package adapters

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobleads/internal/logging/types"
)

func entry(msg string, fields map[string]interface{}) *types.LogEntry {
	return &types.LogEntry{
		Level:     types.WarnLevel,
		Message:   msg,
		Timestamp: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Fields:    fields,
	}
}

func TestStdoutAdapterJSON(t *testing.T) {
	var buf bytes.Buffer
	a := NewStdoutAdapter("test", StdoutConfig{Format: "json"})
	a.out = &buf

	require.NoError(t, a.Write(entry("slot acquired", map[string]interface{}{"job_id": "10000-1234567-S"})))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "warn", decoded["level"])
	assert.Equal(t, "slot acquired", decoded["message"])
	assert.Equal(t, "10000-1234567-S", decoded["job_id"])
}

func TestStdoutAdapterTextSortsFields(t *testing.T) {
	var buf bytes.Buffer
	a := NewStdoutAdapter("test", StdoutConfig{Format: "text"})
	a.out = &buf

	require.NoError(t, a.Write(entry("done", map[string]interface{}{"b": 2, "a": 1})))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(buf.String()), "[WARN] done a=1 b=2"))
}

func TestFileAdapterRotatesBySize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "jobleads.log")
	a, err := NewFileAdapter("file", FileConfig{FilePath: path, MaxSize: 64, MaxBackups: 1, CreateDirs: true})
	require.NoError(t, err)
	defer a.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Write(entry("a message long enough to trigger rotation", nil)))
		time.Sleep(2 * time.Millisecond)
	}

	backups, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.NoError(t, a.Health())
}

func TestMemoryAdapterMessages(t *testing.T) {
	a := NewMemoryAdapter("mem")
	require.NoError(t, a.Write(&types.LogEntry{Level: types.DebugLevel, Message: "noise"}))
	require.NoError(t, a.Write(&types.LogEntry{Level: types.ErrorLevel, Message: "boom"}))

	assert.Equal(t, []string{"boom"}, a.Messages(types.WarnLevel))
	assert.Len(t, a.Entries(), 2)
}
