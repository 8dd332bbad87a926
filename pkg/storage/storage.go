package storage

import (
	"context"
	"sort"
	"strings"
)

// Storage defines the contract for the object store holding the funnel
// document and its backups. Implementations must be safe for concurrent use.
// Every single call is atomic; nothing spans calls.
type Storage interface {
	// Write stores data with the given key, replacing any previous value.
	Write(ctx context.Context, key string, data []byte) error

	// Read retrieves data for the given key.
	// Returns os.ErrNotExist if the key does not exist.
	Read(ctx context.Context, key string) ([]byte, error)

	// List returns the logical keys matching the given prefix with any
	// backend specific suffix stripped, sorted alphabetically descending.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data for the given key.
	// Returns nil if the key does not exist (idempotent).
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the storage backend.
	Close() error
}

func sortDescending(keys []string) []string {
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}

func normalizePrefix(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}
