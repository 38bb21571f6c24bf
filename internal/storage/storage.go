// Package storage persists the whole clipboard history as one document.
//
// The document is a JSON array of item records in history order, newest
// first. Drivers differ only in where the document lives; every Save
// replaces it as a whole and readers never observe a partial write.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.klb.dev/recall/internal/item"
)

// ErrUnknownDriver is returned by Open for an unrecognised driver name.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Driver names.
const (
	DriverJSON = "json"
	DriverBolt = "bolt"
)

const (
	appDirName   = "Recall"
	jsonFileName = "clipboard_history.json"
	boltFileName = "clipboard_history.bolt"
)

// Driver loads and saves the full ordered history.
type Driver interface {
	// Load returns the stored history. A missing document is an empty
	// history, not an error.
	Load() ([]item.Item, error)

	// Save replaces the stored history with items.
	Save(items []item.Item) error

	// Path is the on-disk location of the document.
	Path() string

	// Close releases any resources held by the driver.
	Close() error
}

// Config selects and locates a driver.
type Config struct {
	Driver string
	Dir    string
}

// DefaultDir is the per-user application data directory.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", appDirName)
	}
	return filepath.Join(dir, appDirName)
}

// Open returns the driver named by cfg. An empty driver name means JSON and
// an empty directory means DefaultDir.
func Open(cfg Config) (Driver, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir()
	}
	switch strings.ToLower(cfg.Driver) {
	case "", DriverJSON:
		return NewJSONFile(filepath.Join(dir, jsonFileName)), nil
	case DriverBolt:
		return OpenBolt(filepath.Join(dir, boltFileName))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// encode renders the history document.
func encode(items []item.Item) ([]byte, error) {
	if items == nil {
		items = []item.Item{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return b, nil
}

// decode parses a history document. Records that violate the payload
// invariant are dropped with a warning.
func decode(b []byte) ([]item.Item, error) {
	var raw []item.Item
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	items := raw[:0]
	for _, it := range raw {
		if err := it.Validate(); err != nil {
			slog.Warn("dropping invalid history record", "err", err)
			continue
		}
		items = append(items, it)
	}
	return items, nil
}
