package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.klb.dev/recall/internal/item"
)

// JSONFile stores the history document in a single file.
type JSONFile struct {
	path string
}

// NewJSONFile returns a driver for the document at path. Nothing is touched
// on disk until the first Save.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

func (j *JSONFile) Path() string { return j.path }

func (j *JSONFile) Load() ([]item.Item, error) {
	b, err := os.ReadFile(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []item.Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", j.path, err)
	}
	return decode(b)
}

// Save writes the document to a temporary file next to the target and
// renames it into place.
func (j *JSONFile) Save(items []item.Item) error {
	b, err := encode(items)
	if err != nil {
		return err
	}

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(j.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, j.path); err != nil {
		return fmt.Errorf("replace %s: %w", j.path, err)
	}
	return nil
}

func (j *JSONFile) Close() error { return nil }
