package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore persists the registry as a single JSON document on disk.
//
// Reads are forgiving: a missing or malformed document is treated as an
// empty registry and logged, never surfaced as a fatal error, so a broken
// configuration edit cannot take the whole service down. Writes validate
// the document first and replace the file atomically.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the JSON document at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the registry document. Malformed or missing documents yield an
// empty registry.
func (s *FileStore) Load() Registry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to read provider configuration", "path", s.path, "error", err)
		}
		return Registry{}
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		slog.Warn("malformed provider configuration, treating as empty",
			"path", s.path, "error", err)
		return Registry{}
	}
	return reg
}

// Save validates and persists the registry document. The file is written to
// a temp sibling and renamed so readers never observe a partial document.
func (s *FileStore) Save(reg Registry) error {
	if err := reg.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode provider configuration: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".providers-*.json")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write provider configuration: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp config: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace provider configuration: %w", err)
	}
	return nil
}
