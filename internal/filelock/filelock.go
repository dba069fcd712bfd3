// Package filelock provides flock-based locks shared between processes that
// use the same state directory: backup location writes, restores and
// scheduled task runs.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// ErrLocked is returned when a non-blocking acquire finds the lock held.
var ErrLocked = errors.New("lock is held by another owner")

// FileLock is an exclusive advisory lock on a file.
type FileLock struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// New creates a lock stored at path + ".lock"
func New(path string) *FileLock {
	return &FileLock{path: path + ".lock"}
}

// NewForDir creates a lock guarding a directory, stored at dir/.lock
func NewForDir(dir string) *FileLock {
	return &FileLock{path: filepath.Join(dir, ".lock")}
}

// Named creates a lock stored at dir/name.lock
func Named(dir, name string) *FileLock {
	return &FileLock{path: filepath.Join(dir, name+".lock")}
}

// Path returns the lock file path.
func (fl *FileLock) Path() string {
	return fl.path
}

func (fl *FileLock) open() (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(fl.path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	return f, nil
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false if someone else holds it.
func (fl *FileLock) TryLock() (bool, error) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.file != nil {
		return false, nil
	}

	f, err := fl.open()
	if err != nil {
		return false, err
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	fl.file = f
	return true, nil
}

// Lock blocks until the lock is acquired or ctx is done.
func (fl *FileLock) Lock(ctx context.Context) error {
	retryInterval := 10 * time.Millisecond
	for {
		acquired, err := fl.TryLock()
		if err != nil {
			return err
		}
		if acquired {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for lock on %s: %w", fl.path, ctx.Err())
		case <-time.After(retryInterval):
		}
		if retryInterval < 100*time.Millisecond {
			retryInterval *= 2
		}
	}
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (fl *FileLock) Unlock() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.file == nil {
		return nil
	}

	err := syscall.Flock(int(fl.file.Fd()), syscall.LOCK_UN)
	closeErr := fl.file.Close()
	fl.file = nil

	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close lock file: %w", closeErr)
	}
	return nil
}

// WithLock runs fn while holding the lock.
func (fl *FileLock) WithLock(ctx context.Context, fn func() error) error {
	if err := fl.Lock(ctx); err != nil {
		return err
	}
	defer fl.Unlock()
	return fn()
}

// WithTryLock runs fn only if the lock is free, returning ErrLocked otherwise.
func (fl *FileLock) WithTryLock(fn func() error) error {
	ok, err := fl.TryLock()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLocked
	}
	defer fl.Unlock()
	return fn()
}
