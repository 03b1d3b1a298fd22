package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore implements Store on a single JSON file
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed progress store at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the progress file. A missing or unparsable file yields the
// zero state so an interrupted or fresh run always starts cleanly.
func (s *FileStore) Load() *Progress {
	var p Progress

	data, err := os.ReadFile(s.path)
	if err != nil {
		return &p
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return &Progress{}
	}

	return &p
}

// Save serializes the full progress record and atomically replaces the
// file, so a crash mid-write never leaves a corrupt state behind.
func (s *FileStore) Save(p *Progress) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

// Path returns the location of the underlying state file
func (s *FileStore) Path() string {
	return s.path
}
