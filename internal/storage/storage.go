// Package storage holds small key-value blob stores used to persist client
// state such as the shopping cart between runs.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// BlobStore saves opaque values under string keys.
type BlobStore interface {
	// Get returns the value for key. found is false when nothing is stored.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Put replaces the value for key.
	Put(ctx context.Context, key string, value []byte) error
	// Close releases the backend.
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver string
	// Path is a directory for the file driver and a database file for sqlite.
	Path string
}

// Open builds the backend named by opts.Driver.
func Open(opts Options) (BlobStore, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverFile, "":
		return NewFileStore(opts.Path)
	case DriverSQLite:
		return OpenSQLite(opts.Path)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", opts.Driver)
	}
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("storage: key is required")
	}
	return key, nil
}
