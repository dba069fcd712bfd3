// Package storage persists snapshots to several independent blob-store
// locations. A location pairs a Backend (filesystem, memory, S3, GCS) with a
// Codec (plain, zstd, age).
package storage

import (
	"context"
	"time"
)

// Object describes a stored blob.
type Object struct {
	Key      string
	Size     int64
	Created  time.Time
	Modified time.Time
}

// Backend is a flat key/value blob store.
type Backend interface {
	// Describe returns a human-readable identity such as "filesystem:/var/backups".
	Describe() string
	// Ensure prepares the backend (creates the directory, checks the bucket).
	Ensure(ctx context.Context) error
	Put(ctx context.Context, key string, data []byte) error
	// Get returns errors.ErrNotFound when key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context) ([]Object, error)
}

// LocalBackend is implemented by backends that keep blobs on the local filesystem.
type LocalBackend interface {
	Backend
	Root() string
	Path(key string) string
}
