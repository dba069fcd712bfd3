package filelock

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryLockExclusive(t *testing.T) {
	dir := t.TempDir()
	a := Named(dir, "restore")
	b := Named(dir, "restore")

	ok, err := a.TryLock()
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.TryLock()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Unlock())
	ok, err = b.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Unlock())
}

func TestLockContextCancelled(t *testing.T) {
	dir := t.TempDir()
	holder := NewForDir(dir)
	require.NoError(t, holder.Lock(context.Background()))
	defer holder.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := NewForDir(dir).Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithTryLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler-emergency")
	holder := New(path)
	require.NoError(t, holder.Lock(context.Background()))

	err := New(path).WithTryLock(func() error { return nil })
	assert.True(t, errors.Is(err, ErrLocked))

	require.NoError(t, holder.Unlock())
	ran := false
	require.NoError(t, New(path).WithTryLock(func() error { ran = true; return nil }))
	assert.True(t, ran)
}

func TestUnlockWithoutLock(t *testing.T) {
	assert.NoError(t, New(filepath.Join(t.TempDir(), "x")).Unlock())
}
