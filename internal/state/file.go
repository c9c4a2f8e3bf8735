package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"trackerwatch/internal/model"
)

// FileStore implements Store backed by a JSON file keyed by tracker name.
// The file is the external liveness interface: other processes poll the
// last_check timestamps in it, so the on-disk shape is fixed.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the given path. The file and its
// directory need not exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the full state mapping. A missing file yields an empty map.
func (s *FileStore) Load() (map[string]model.TargetState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]model.TargetState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	states := map[string]model.TargetState{}
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	return states, nil
}

// Save writes the full mapping atomically: the new content goes to a
// temporary file in the same directory which then replaces the old file,
// so a crash mid-write leaves either the previous or the new version.
func (s *FileStore) Save(states map[string]model.TargetState) error {
	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
