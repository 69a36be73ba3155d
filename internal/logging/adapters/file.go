package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"jobleads/internal/logging/types"
)

// FileConfig represents configuration for the file adapter
type FileConfig struct {
	FilePath    string        `yaml:"file_path"`
	Format      string        `yaml:"format"`      // json or text
	MaxSize     int64         `yaml:"max_size"`    // rotate after this many bytes, 0 disables
	MaxAge      time.Duration `yaml:"max_age"`     // rotate after this age, 0 disables
	MaxBackups  int           `yaml:"max_backups"` // rotated files kept on disk
	CreateDirs  bool          `yaml:"create_dirs"`
	SyncOnWrite bool          `yaml:"sync_on_write"`
}

// FileAdapter appends entries to a file and rotates it by size or age
type FileAdapter struct {
	name     string
	config   FileConfig
	file     *os.File
	size     int64
	openedAt time.Time
	mu       sync.Mutex
}

func NewFileAdapter(name string, config FileConfig) (*FileAdapter, error) {
	if config.Format == "" {
		config.Format = "json"
	}
	if config.MaxBackups <= 0 {
		config.MaxBackups = 5
	}

	if config.CreateDirs {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directories: %w", err)
		}
	}

	adapter := &FileAdapter{name: name, config: config}
	if err := adapter.open(); err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return adapter, nil
}

func (a *FileAdapter) Write(entry *types.LogEntry) error {
	line, err := formatEntry(entry, strings.ToLower(a.config.Format), false)
	if err != nil {
		return fmt.Errorf("failed to format log entry: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return fmt.Errorf("log file %s is closed", a.config.FilePath)
	}

	if a.needsRotation() {
		if err := a.rotate(); err != nil {
			return fmt.Errorf("failed to rotate log file: %w", err)
		}
	}

	n, err := a.file.WriteString(line + "\n")
	a.size += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write to log file: %w", err)
	}

	if a.config.SyncOnWrite {
		return a.file.Sync()
	}
	return nil
}

func (a *FileAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

func (a *FileAdapter) Health() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return fmt.Errorf("log file is not open")
	}
	if _, err := a.file.Stat(); err != nil {
		return fmt.Errorf("log file is not accessible: %w", err)
	}
	return nil
}

func (a *FileAdapter) Name() string {
	return a.name
}

func (a *FileAdapter) open() error {
	file, err := os.OpenFile(a.config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}

	a.file = file
	a.size = stat.Size()
	a.openedAt = time.Now()
	return nil
}

func (a *FileAdapter) needsRotation() bool {
	if a.config.MaxSize > 0 && a.size >= a.config.MaxSize {
		return true
	}
	return a.config.MaxAge > 0 && time.Since(a.openedAt) >= a.config.MaxAge
}

func (a *FileAdapter) rotate() error {
	if err := a.file.Close(); err != nil {
		return fmt.Errorf("failed to close current log file: %w", err)
	}
	a.file = nil

	backup := fmt.Sprintf("%s.%s", a.config.FilePath, time.Now().Format("20060102-150405.000"))
	if err := os.Rename(a.config.FilePath, backup); err != nil {
		return fmt.Errorf("failed to rename log file: %w", err)
	}

	a.pruneBackups()
	return a.open()
}

// pruneBackups keeps the newest MaxBackups rotated files
func (a *FileAdapter) pruneBackups() {
	pattern := a.config.FilePath + ".*"
	backups, err := filepath.Glob(pattern)
	if err != nil || len(backups) <= a.config.MaxBackups {
		return
	}

	// timestamp suffixes sort chronologically
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	for _, old := range backups[a.config.MaxBackups:] {
		if err := os.Remove(old); err != nil {
			fmt.Fprintf(os.Stderr, "failed to remove old log backup %s: %v\n", old, err)
		}
	}
}
