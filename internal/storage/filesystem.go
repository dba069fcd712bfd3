package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/filelock"
)

const lockTimeout = 10 * time.Second

// FileSystemBackend stores each blob as a file directly under root.
type FileSystemBackend struct {
	root string
}

// NewFileSystemBackend creates a backend rooted at dir. The directory is created by Ensure.
func NewFileSystemBackend(dir string) *FileSystemBackend {
	return &FileSystemBackend{root: filepath.Clean(dir)}
}

func (b *FileSystemBackend) Describe() string { return "filesystem:" + b.root }

func (b *FileSystemBackend) Root() string { return b.root }

func (b *FileSystemBackend) Path(key string) string { return filepath.Join(b.root, key) }

func (b *FileSystemBackend) Ensure(_ context.Context) error {
	if err := os.MkdirAll(b.root, 0750); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	info, err := os.Stat(b.root)
	if err != nil {
		return fmt.Errorf("backup directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("backup path is not a directory: %s", b.root)
	}
	return nil
}

// Put writes atomically (temp file + rename) while holding the directory lock.
func (b *FileSystemBackend) Put(ctx context.Context, key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	return filelock.NewForDir(b.root).WithLock(lockCtx, func() error {
		return writeFileAtomic(b.Path(key), data)
	})
}

func (b *FileSystemBackend) Get(_ context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.Path(key))
	if os.IsNotExist(err) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// List returns snapshot files, newest first. Hidden files (locks, temp files) are skipped.
func (b *FileSystemBackend) List(_ context.Context) ([]Object, error) {
	entries, err := os.ReadDir(b.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", b.root, err)
	}

	var out []Object
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		obj := Object{Key: e.Name(), Size: info.Size(), Modified: info.ModTime()}
		obj.Created = CreatedFromName(e.Name(), info.ModTime())
		out = append(out, obj)
	}
	sortNewestFirst(out)
	return out, nil
}

func writeFileAtomic(dest string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	n, err := tmp.Write(data)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", len(data), n)
	}
	if err := os.Chmod(tmpPath, 0640); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}

func validKey(key string) error {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("invalid object key %q", key)
	}
	return nil
}

// CreatedFromName extracts the creation time embedded in a snapshot name
// ("<kind>-backup-20060102-150405..."), falling back to fallback.
func CreatedFromName(name string, fallback time.Time) time.Time {
	i := strings.Index(name, "-backup-")
	if i < 0 || len(name) < i+len("-backup-")+15 {
		return fallback
	}
	stamp := name[i+len("-backup-") : i+len("-backup-")+15]
	t, err := time.Parse("20060102-150405", stamp)
	if err != nil {
		return fallback
	}
	return t
}

func sortNewestFirst(objs []Object) {
	sort.SliceStable(objs, func(i, j int) bool {
		if objs[i].Created.Equal(objs[j].Created) {
			return objs[i].Key > objs[j].Key
		}
		return objs[i].Created.After(objs[j].Created)
	})
}
