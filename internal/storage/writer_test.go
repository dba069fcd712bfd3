package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/snapshot"
)

func testSnapshot(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	cols := map[string][]recordstore.Record{
		recordstore.Patients: {{"id": "p1", "cpf": "111"}},
	}
	sum, err := snapshot.ComputeChecksum(cols)
	require.NoError(t, err)
	return &snapshot.Snapshot{
		ID:           "abcdef12-3456",
		Kind:         snapshot.KindManual,
		Timestamp:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Collections:  cols,
		TotalRecords: 1,
		Checksum:     sum,
	}
}

func TestMultiWriterPersistAllLocations(t *testing.T) {
	dir := t.TempDir()
	primary := NewFileSystemBackend(filepath.Join(dir, "backups"))
	compressed := NewFileSystemBackend(filepath.Join(dir, "backups", "compressed"))
	security := NewFileSystemBackend(filepath.Join(dir, "security-backups"))

	w := NewMultiWriter(
		Location{Name: "primary", Backend: primary},
		Location{Name: "compressed", Backend: compressed, Codec: Zstd{}},
		Location{Name: "security", Backend: security, Codec: newTestAge(t)},
	)

	res := w.Persist(context.Background(), testSnapshot(t))
	require.Empty(t, res.Failed)
	require.Len(t, res.Succeeded, 3)

	first, ok := res.Primary()
	require.True(t, ok)
	assert.Equal(t, "primary", first.Location)
	assert.Equal(t, filepath.Join(dir, "backups", "manual-backup-20240501-100000-abcdef12.json"), first.Ref)
	assert.FileExists(t, first.Ref)
	assert.FileExists(t, filepath.Join(dir, "backups", "compressed", "manual-backup-20240501-100000-abcdef12.json.zst"))
	assert.FileExists(t, filepath.Join(dir, "security-backups", "manual-backup-20240501-100000-abcdef12.json.age"))
}

func TestMultiWriterPartialFailure(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("file in the way"), 0600))

	broken := NewMemoryBackend("broken")
	broken.FailPuts(errors.New("disk full"))

	w := NewMultiWriter(
		Location{Name: "blocked", Backend: NewFileSystemBackend(blocked)},
		Location{Name: "primary", Backend: NewFileSystemBackend(filepath.Join(dir, "ok"))},
		Location{Name: "remote", Backend: broken},
	)

	res := w.Persist(context.Background(), testSnapshot(t))
	assert.True(t, res.OK())
	require.Len(t, res.Succeeded, 1)
	assert.Equal(t, "primary", res.Succeeded[0].Location)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, "blocked", res.Failed[0].Location)
	assert.Equal(t, "remote", res.Failed[1].Location)
	assert.Contains(t, res.Failed[1].Err.Error(), "disk full")
}

func TestMultiWriterRetries(t *testing.T) {
	flaky := &flakyBackend{MemoryBackend: NewMemoryBackend("flaky"), failures: 2}
	w := NewMultiWriter(Location{
		Name:    "flaky",
		Backend: flaky,
		Retry:   &RetryStrategy{MaxRetries: 2, InitialDelay: time.Millisecond, BackoffFactor: 1},
	})

	res := w.Persist(context.Background(), testSnapshot(t))
	require.Len(t, res.Succeeded, 1)
	assert.Equal(t, 3, res.Succeeded[0].Attempts)
	assert.Equal(t, "flaky:manual-backup-20240501-100000-abcdef12.json", res.Succeeded[0].Ref)
}

func TestMultiWriterNoLocations(t *testing.T) {
	res := NewMultiWriter().Persist(context.Background(), testSnapshot(t))
	assert.False(t, res.OK())
	require.Len(t, res.Failed, 1)
	assert.ErrorIs(t, res.Failed[0].Err, apperrors.ErrNoLocations)
}

func TestMultiWriterResolve(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "backups")
	mem := NewMemoryBackend("remote")
	w := NewMultiWriter(
		Location{Name: "primary", Backend: NewFileSystemBackend(root)},
		Location{Name: "remote", Backend: mem},
	)

	loc, key, err := w.Resolve(filepath.Join(root, "full-backup-20240101-000000.json"))
	require.NoError(t, err)
	assert.Equal(t, "primary", loc.Name)
	assert.Equal(t, "full-backup-20240101-000000.json", key)

	loc, key, err = w.Resolve("remote:full-backup-20240101-000000.json")
	require.NoError(t, err)
	assert.Equal(t, "remote", loc.Name)
	assert.Equal(t, "full-backup-20240101-000000.json", key)

	for _, ref := range []string{
		filepath.Join(dir, "elsewhere.json"),
		filepath.Join(root, "..", "escape.json"),
		"/etc/passwd",
		"remote:../x.json",
	} {
		_, _, err := w.Resolve(ref)
		assert.Error(t, err, ref)
	}
	_, _, err = w.Resolve("")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMultiWriterListNewestFirst(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	primary := NewFileSystemBackend(filepath.Join(dir, "primary"))
	remote := NewMemoryBackend("remote")
	w := NewMultiWriter(
		Location{Name: "primary", Backend: primary},
		Location{Name: "remote", Backend: remote},
	)
	require.NoError(t, primary.Ensure(ctx))
	require.NoError(t, primary.Put(ctx, "full-backup-20240101-020000.json", []byte("{}")))
	require.NoError(t, primary.Put(ctx, "notes.txt", []byte("ignored")))
	require.NoError(t, remote.Put(ctx, "emergency-backup-20240301-020000.json.zst", []byte("x")))

	list := w.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, "remote", list[0].Location)
	assert.Equal(t, "remote:emergency-backup-20240301-020000.json.zst", list[0].Ref)
	assert.Equal(t, primary.Root(), list[1].Directory)
}

type flakyBackend struct {
	*MemoryBackend
	failures int
}

func (f *flakyBackend) Put(ctx context.Context, key string, data []byte) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("503 slow down")
	}
	return f.MemoryBackend.Put(ctx, key, data)
}
