package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobleads/pkg/models"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadJobs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr string
	}{
		{"valid", `[{"id":"10000-1","title":"Koch"},{"id":"10000-2","contactEmail":"hr@firma.de"}]`, 2, ""},
		{"empty array", `[]`, 0, "contains no jobs"},
		{"not json", `{"id":`, 0, "failed to parse"},
		{"missing id", `[{"title":"Koch"}]`, 0, "job 0 is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := readJobs(writeFile(t, tt.content))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, jobs, tt.want)
		})
	}
}

func TestReadJobsMissingFile(t *testing.T) {
	_, err := readJobs(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestWriteResults(t *testing.T) {
	result := models.NewEnrichmentResult(models.JobRecord{ID: "a"})
	result.Complete(nil, nil, models.TierNone)
	results := []*models.EnrichmentResult{result}

	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, results, models.Summarize(results)))

	var decoded enrichOutputFile
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 1, decoded.Summary.Total)
	require.Len(t, decoded.Results, 1)
	assert.Nil(t, decoded.Results[0].ContactEmail)
	assert.Contains(t, buf.String(), `"contactEmail": null`)
}

func TestEnrichRequiresInput(t *testing.T) {
	rootCmd.SetArgs([]string{"enrich"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
