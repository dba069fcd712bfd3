package recovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/filelock"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/metrics"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/snapshot"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/storage"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/tracing"
)

// SnapshotSource builds a snapshot of the live store. *snapshot.Builder implements it.
type SnapshotSource interface {
	Build(ctx context.Context, kind snapshot.Kind) (*snapshot.Snapshot, error)
}

// Persister writes a snapshot to its locations. *storage.MultiWriter implements it.
type Persister interface {
	Persist(ctx context.Context, snap *snapshot.Snapshot) *storage.PersistResult
}

// Policy controls how a snapshot is applied.
type Policy struct {
	// OverwriteExisting replaces records whose natural key already exists.
	OverwriteExisting bool
	// Include limits the restore to these collections. Empty means all.
	Include []string
}

func (p Policy) includes(collection string) bool {
	if len(p.Include) == 0 {
		return true
	}
	for _, c := range p.Include {
		if c == collection {
			return true
		}
	}
	return false
}

// RestoreResult summarizes a restore.
type RestoreResult struct {
	Success         bool
	Message         string
	RecoveredCounts map[string]int
	FailedCounts    map[string]int
	SkippedCounts   map[string]int
	// PreRestoreSnapshotRef addresses the safety-net copy taken before any write.
	PreRestoreSnapshotRef string

	Err error
}

// Recovered returns the total number of applied records.
func (r *RestoreResult) Recovered() int {
	return sum(r.RecoveredCounts)
}

// Failed returns the total number of records that could not be applied.
func (r *RestoreResult) Failed() int {
	return sum(r.FailedCounts)
}

func sum(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

// Orchestrator applies validated snapshots to the record store.
type Orchestrator struct {
	store   recordstore.Store
	builder SnapshotSource
	writer  Persister
	lock    *filelock.FileLock
}

// NewOrchestrator creates an Orchestrator. lock may be nil when only one
// process uses the store.
func NewOrchestrator(store recordstore.Store, builder SnapshotSource, writer Persister, lock *filelock.FileLock) *Orchestrator {
	return &Orchestrator{store: store, builder: builder, writer: writer, lock: lock}
}

// Restore applies validated.Snapshot under policy. A pre-recovery snapshot is
// persisted before the first write; if that fails nothing is written.
// Individual record failures are counted and never abort the restore.
func (o *Orchestrator) Restore(ctx context.Context, validated ValidationResult, policy Policy) *RestoreResult {
	ctx, span := tracing.Start(ctx, "recovery.restore",
		attribute.Bool("overwrite", policy.OverwriteExisting))
	defer span.End()

	result := &RestoreResult{
		RecoveredCounts: make(map[string]int),
		FailedCounts:    make(map[string]int),
		SkippedCounts:   make(map[string]int),
	}

	if !validated.IsValid || validated.Snapshot == nil {
		return result.fail(apperrors.ErrInvalidSnapshot)
	}

	if o.lock != nil {
		ok, err := o.lock.TryLock()
		if err != nil {
			return result.fail(fmt.Errorf("acquiring restore lock: %w", err))
		}
		if !ok {
			return result.fail(apperrors.ErrRestoreInProgress)
		}
		defer o.lock.Unlock()
	}

	if err := o.store.Ping(ctx); err != nil {
		return result.fail(err)
	}

	ref, err := o.preRestoreBackup(ctx)
	if err != nil {
		logging.Error("Restore aborted, pre-recovery backup failed", logging.Err(err))
		return result.fail(err)
	}
	result.PreRestoreSnapshotRef = ref

	snap := validated.Snapshot
	for _, name := range recordstore.Protected() {
		recs, ok := snap.Collections[name]
		if !ok || !policy.includes(name) {
			continue
		}
		if err := o.restoreCollection(ctx, name, recs, policy, result); err != nil {
			result.Message = fmt.Sprintf("restore interrupted: %v", err)
			result.Err = err
			span.RecordError(err)
			return result
		}
	}

	result.Success = true
	result.Message = fmt.Sprintf("restored %d records (%d failed, %d skipped)",
		result.Recovered(), result.Failed(), sum(result.SkippedCounts))
	logging.Info("Restore completed",
		logging.String("snapshot", snap.ID),
		logging.Int("recovered", result.Recovered()),
		logging.Int("failed", result.Failed()),
		logging.String("preRecoveryBackup", ref),
	)
	return result
}

func (o *Orchestrator) preRestoreBackup(ctx context.Context) (string, error) {
	snap, err := o.builder.Build(ctx, snapshot.KindPreRecovery)
	if err != nil {
		return "", &apperrors.PreRestoreBackupError{Err: err}
	}
	res := o.writer.Persist(ctx, snap)
	primary, ok := res.Primary()
	if !ok {
		msgs := make([]string, 0, len(res.Failed))
		for _, f := range res.Failed {
			msgs = append(msgs, fmt.Sprintf("%s: %v", f.Location, f.Err))
		}
		return "", &apperrors.PreRestoreBackupError{Err: errors.New(strings.Join(msgs, "; "))}
	}
	return primary.Ref, nil
}

// restoreCollection returns an error only when the store becomes unreachable.
func (o *Orchestrator) restoreCollection(ctx context.Context, name string, recs []recordstore.Record, policy Policy, result *RestoreResult) error {
	for _, rec := range recs {
		outcome, err := o.restoreRecord(ctx, name, rec, policy.OverwriteExisting)
		metrics.RestoreRecords.WithLabelValues(name, outcome).Inc()
		switch outcome {
		case outcomeRecovered:
			result.RecoveredCounts[name]++
		case outcomeSkipped:
			result.SkippedCounts[name]++
		default:
			result.FailedCounts[name]++
			logging.Warn("Record restore failed", logging.Collection(name), logging.Err(err))
			if apperrors.IsConnectivity(err) {
				return err
			}
		}
	}
	return nil
}

const (
	outcomeRecovered = "recovered"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
)

func (o *Orchestrator) restoreRecord(ctx context.Context, name string, rec recordstore.Record, overwrite bool) (string, error) {
	key, err := recordstore.NaturalKey(name, rec)
	if err != nil {
		return outcomeFailed, &apperrors.RecordRestoreError{Collection: name, Err: err}
	}

	_, err = o.store.Find(ctx, name, key)
	switch {
	case errors.Is(err, apperrors.ErrRecordNotFound):
		if err := o.store.Insert(ctx, name, rec); err != nil {
			return outcomeFailed, &apperrors.RecordRestoreError{Collection: name, Key: key.String(), Err: err}
		}
		return outcomeRecovered, nil
	case err != nil:
		return outcomeFailed, &apperrors.RecordRestoreError{Collection: name, Key: key.String(), Err: err}
	case !overwrite:
		return outcomeSkipped, nil
	}

	if err := o.store.Update(ctx, name, key, rec); err != nil {
		return outcomeFailed, &apperrors.RecordRestoreError{Collection: name, Key: key.String(), Err: err}
	}
	return outcomeRecovered, nil
}

func (r *RestoreResult) fail(err error) *RestoreResult {
	r.Success = false
	r.Err = err
	r.Message = err.Error()
	return r
}
