package snapshot

import (
	"github.com/pkg/errors"
)

var (
	// ErrMissingKey is returned by Restore when no backup key was given.
	ErrMissingKey = errors.New("missing backup key")
	// ErrBackupNotFound is returned by Restore for keys that do not name an existing backup.
	ErrBackupNotFound = errors.New("backup not found")
	// ErrMissingDocument is returned by Save and Import when there is nothing to store.
	ErrMissingDocument = errors.New("missing document")
)
