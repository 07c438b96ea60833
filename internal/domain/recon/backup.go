package recon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BackupWriter persists pre-state snapshots and run reports as JSON files.
// Filenames carry a sortable UTC timestamp so runs list in order.
type BackupWriter struct {
	dir string
}

func NewBackupWriter(dir string) *BackupWriter {
	return &BackupWriter{dir: dir}
}

// Write marshals v into <dir>/<prefix>-<timestamp>.json and returns the path.
// Failure is returned as a BackupWriteError; callers performing destructive
// work must treat it as fatal.
func (w *BackupWriter) Write(prefix string, v interface{}) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", &BackupWriteError{Path: w.dir, Err: err}
	}
	name := fmt.Sprintf("%s-%s.json", prefix, time.Now().UTC().Format("20060102-150405"))
	path := filepath.Join(w.dir, name)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", &BackupWriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &BackupWriteError{Path: path, Err: err}
	}
	return path, nil
}
