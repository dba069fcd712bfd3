package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/metrics"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/snapshot"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/tracing"
)

// Location is one redundant destination for snapshots.
type Location struct {
	Name    string
	Backend Backend
	Codec   Codec
	Retry   *RetryStrategy
}

// StoredCopy describes a successful write.
type StoredCopy struct {
	Location string
	Key      string
	// Ref addresses the copy for validation and restore: an absolute path for
	// local backends, "<location>:<key>" otherwise.
	Ref      string
	Size     int64
	Attempts int
}

// LocationFailure describes a failed write.
type LocationFailure struct {
	Location string
	Err      error
}

// PersistResult reports every location's outcome independently.
type PersistResult struct {
	Succeeded []StoredCopy
	Failed    []LocationFailure
}

// OK reports whether at least one copy was written.
func (r *PersistResult) OK() bool {
	return len(r.Succeeded) > 0
}

// Primary returns the first successful copy in location order.
func (r *PersistResult) Primary() (StoredCopy, bool) {
	if len(r.Succeeded) == 0 {
		return StoredCopy{}, false
	}
	return r.Succeeded[0], true
}

// MultiWriter persists snapshots to every configured location.
type MultiWriter struct {
	locations []Location
}

// NewMultiWriter creates a writer over locations, in priority order.
func NewMultiWriter(locations ...Location) *MultiWriter {
	for i := range locations {
		if locations[i].Codec == nil {
			locations[i].Codec = Plain{}
		}
	}
	return &MultiWriter{locations: locations}
}

// Locations returns the configured locations.
func (w *MultiWriter) Locations() []Location {
	return append([]Location(nil), w.locations...)
}

// Persist writes snap to every location concurrently. A failing location never
// prevents writes to the others; Persist itself never returns an error.
func (w *MultiWriter) Persist(ctx context.Context, snap *snapshot.Snapshot) *PersistResult {
	ctx, span := tracing.Start(ctx, "storage.persist", attribute.Int("locations", len(w.locations)))
	defer span.End()

	result := &PersistResult{}
	if len(w.locations) == 0 {
		result.Failed = append(result.Failed, LocationFailure{Location: "-", Err: apperrors.ErrNoLocations})
		return result
	}

	doc, err := snapshot.Encode(snap)
	if err != nil {
		for _, loc := range w.locations {
			result.Failed = append(result.Failed, LocationFailure{Location: loc.Name, Err: err})
		}
		return result
	}

	copies := make([]*StoredCopy, len(w.locations))
	failures := make([]error, len(w.locations))

	var g errgroup.Group
	for i, loc := range w.locations {
		g.Go(func() error {
			c, err := w.persistOne(ctx, loc, snap, doc)
			if err != nil {
				failures[i] = err
				metrics.LocationWrites.WithLabelValues(loc.Name, "failure").Inc()
				logging.Warn("Backup location write failed",
					logging.Location(loc.Name),
					logging.String("backend", loc.Backend.Describe()),
					logging.Err(err))
				return nil
			}
			copies[i] = c
			metrics.LocationWrites.WithLabelValues(loc.Name, "success").Inc()
			return nil
		})
	}
	_ = g.Wait()

	for i, loc := range w.locations {
		if copies[i] != nil {
			result.Succeeded = append(result.Succeeded, *copies[i])
		} else {
			result.Failed = append(result.Failed, LocationFailure{Location: loc.Name, Err: failures[i]})
		}
	}
	span.SetAttributes(
		attribute.Int("succeeded", len(result.Succeeded)),
		attribute.Int("failed", len(result.Failed)))
	return result
}

func (w *MultiWriter) persistOne(ctx context.Context, loc Location, snap *snapshot.Snapshot, doc []byte) (*StoredCopy, error) {
	if err := loc.Backend.Ensure(ctx); err != nil {
		return nil, err
	}
	data, err := loc.Codec.Encode(doc)
	if err != nil {
		return nil, err
	}
	key := snap.BaseName() + loc.Codec.Extension()

	start := time.Now()
	attempts, err := loc.Retry.Do(ctx, func() error {
		return loc.Backend.Put(ctx, key, data)
	})
	if err != nil {
		return nil, fmt.Errorf("after %d attempt(s): %w", attempts, err)
	}
	logging.Debug("Backup copy written",
		logging.Location(loc.Name),
		logging.String("key", key),
		logging.Int("bytes", len(data)),
		logging.Duration("took", time.Since(start)))

	return &StoredCopy{
		Location: loc.Name,
		Key:      key,
		Ref:      refFor(loc, key),
		Size:     int64(len(data)),
		Attempts: attempts,
	}, nil
}

func refFor(loc Location, key string) string {
	if lb, ok := loc.Backend.(LocalBackend); ok {
		return lb.Path(key)
	}
	return loc.Name + ":" + key
}

// StoredObject is a listed snapshot copy.
type StoredObject struct {
	Object
	Location  string
	Ref       string
	Directory string
}

// List returns the snapshot copies of every location, newest first.
// Unreachable locations are logged and skipped.
func (w *MultiWriter) List(ctx context.Context) []StoredObject {
	var out []StoredObject
	for _, loc := range w.locations {
		objs, err := loc.Backend.List(ctx)
		if err != nil {
			logging.Warn("Listing backup location failed", logging.Location(loc.Name), logging.Err(err))
			continue
		}
		dir := loc.Backend.Describe()
		if lb, ok := loc.Backend.(LocalBackend); ok {
			dir = lb.Root()
		}
		for _, o := range objs {
			if !IsSnapshotName(o.Key) {
				continue
			}
			out = append(out, StoredObject{Object: o, Location: loc.Name, Ref: refFor(loc, o.Key), Directory: dir})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].Key > out[j].Key
		}
		return out[i].Created.After(out[j].Created)
	})
	return out
}

// Resolve maps a reference (local path or "<location>:<key>") to a location and key.
// Local paths must name a file directly inside a configured local location.
func (w *MultiWriter) Resolve(ref string) (Location, string, error) {
	if ref == "" {
		return Location{}, "", apperrors.ErrNotFound
	}
	if name, key, ok := strings.Cut(ref, ":"); ok && !filepath.IsAbs(ref) {
		for _, loc := range w.locations {
			if loc.Name == name {
				if err := validKey(key); err != nil {
					return Location{}, "", err
				}
				return loc, key, nil
			}
		}
	}

	abs, err := filepath.Abs(ref)
	if err != nil {
		return Location{}, "", fmt.Errorf("%w: %s", apperrors.ErrOutsideBackupRoots, ref)
	}
	for _, loc := range w.locations {
		lb, ok := loc.Backend.(LocalBackend)
		if !ok {
			continue
		}
		root, err := filepath.Abs(lb.Root())
		if err != nil {
			continue
		}
		if filepath.Dir(abs) == root {
			return loc, filepath.Base(abs), nil
		}
	}
	return Location{}, "", fmt.Errorf("%w: %s", apperrors.ErrOutsideBackupRoots, ref)
}

// Read fetches the stored bytes for ref.
func (w *MultiWriter) Read(ctx context.Context, ref string) (string, []byte, error) {
	loc, key, err := w.Resolve(ref)
	if err != nil {
		return "", nil, err
	}
	data, err := loc.Backend.Get(ctx, key)
	if err != nil {
		return "", nil, err
	}
	return key, data, nil
}
