// Package storage provides the string-keyed store that session state is
// persisted to. Backends are flat files, SQLite and memory.
package storage

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
)

// Store is a minimal key-value abstraction. Get reports ok=false for a key
// that was never written or has been deleted.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open creates the backend named by backend rooted at path. For the file
// backend path is a directory; for sqlite it is the database file.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(path)
	case BackendSQLite:
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "c60.db")
		}
		return NewSQLiteStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errors.Errorf("storage: unknown backend %q", backend)
	}
}
