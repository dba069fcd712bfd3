package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/snapshot"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/storage"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/testutil"
)

type env struct {
	store   *recordstore.MemoryStore
	builder *snapshot.Builder
	backend *storage.MemoryBackend
	writer  *storage.MultiWriter
	clock   *testutil.StubClock
}

func newEnv(t *testing.T, fixture *testutil.ClinicFixtureBuilder) *env {
	t.Helper()
	store := fixture.MustBuild()
	clk := testutil.NewStubClock(testutil.ReferenceTime)
	backend := storage.NewMemoryBackend("primary")
	return &env{
		store: store,
		builder: snapshot.NewBuilder(store,
			snapshot.WithClock(clk),
			snapshot.WithIDGenerator(testutil.NewStubIDGenerator("s"))),
		backend: backend,
		writer:  storage.NewMultiWriter(storage.Location{Name: "primary", Backend: backend}),
		clock:   clk,
	}
}

// storeSnapshot builds and persists a snapshot of the env's store, returning its ref.
func (e *env) storeSnapshot(t *testing.T, kind snapshot.Kind) string {
	t.Helper()
	snap, err := e.builder.Build(context.Background(), kind)
	require.NoError(t, err)
	res := e.writer.Persist(context.Background(), snap)
	primary, ok := res.Primary()
	require.True(t, ok)
	e.clock.Advance(time.Second)
	return primary.Ref
}
