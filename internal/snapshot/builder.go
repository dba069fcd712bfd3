package snapshot

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/clock"
	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/tracing"
)

// Builder reads every protected collection and assembles a stamped Snapshot.
// It never writes to the store.
type Builder struct {
	store       recordstore.Store
	collections []string
	clock       clock.Clock
	ids         clock.IDGenerator
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithClock overrides the time source.
func WithClock(c clock.Clock) BuilderOption {
	return func(b *Builder) { b.clock = c }
}

// WithIDGenerator overrides snapshot ID generation.
func WithIDGenerator(g clock.IDGenerator) BuilderOption {
	return func(b *Builder) { b.ids = g }
}

// NewBuilder creates a Builder over store.
func NewBuilder(store recordstore.Store, opts ...BuilderOption) *Builder {
	b := &Builder{
		store:       store,
		collections: recordstore.Protected(),
		clock:       clock.Real{},
		ids:         clock.UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build reads all collections concurrently. The first failed read cancels the
// rest and is returned as *errors.CollectionReadError.
func (b *Builder) Build(ctx context.Context, kind Kind) (snap *Snapshot, err error) {
	ctx, span := tracing.Start(ctx, "snapshot.build", attribute.String("kind", string(kind)))
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	var (
		mu          sync.Mutex
		collections = make(map[string][]recordstore.Record, len(b.collections))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range b.collections {
		g.Go(func() error {
			recs, err := b.store.List(gctx, name)
			if err != nil {
				return &apperrors.CollectionReadError{Collection: name, Err: err}
			}
			if recs == nil {
				recs = []recordstore.Record{}
			}
			mu.Lock()
			collections[name] = recs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logging.Warn("Snapshot build failed", logging.String("kind", string(kind)), logging.Err(err))
		return nil, err
	}

	total := 0
	for _, recs := range collections {
		total += len(recs)
	}

	// stamped only after every collection is in place
	sum, err := ComputeChecksum(collections)
	if err != nil {
		return nil, err
	}

	snap = &Snapshot{
		ID:           b.ids.New(),
		Kind:         kind,
		Timestamp:    b.clock.Now().UTC(),
		Collections:  collections,
		TotalRecords: total,
		Checksum:     sum,
	}
	span.SetAttributes(attribute.Int("records", total))
	logging.Debug("Snapshot built",
		logging.String("id", snap.ID),
		logging.String("kind", string(kind)),
		logging.Int("records", total),
		logging.Duration("took", time.Since(start)))
	return snap, nil
}
