// Package backup runs the tiered backup pipeline: liveness check, snapshot
// build, multi-location persist. Every run yields a Result; none fail outright.
package backup

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/clock"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/metrics"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/snapshot"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/storage"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/tracing"
)

// Status is the tier a backup run ended in.
type Status string

const (
	StatusComplete          Status = "COMPLETE"
	StatusFallbackMode      Status = "FALLBACK_MODE"
	StatusBasicBackup       Status = "BASIC_BACKUP"
	StatusEmergencyFallback Status = "EMERGENCY_FALLBACK"
)

// Trigger records what started a run.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
	TriggerForced    Trigger = "forced"
)

// Liveness checks that the record store can be reached. *health.Checker implements it.
type Liveness interface {
	Check(ctx context.Context) error
}

// SnapshotSource builds snapshots. *snapshot.Builder implements it.
type SnapshotSource interface {
	Build(ctx context.Context, kind snapshot.Kind) (*snapshot.Snapshot, error)
}

// Persister writes snapshots. *storage.MultiWriter implements it.
type Persister interface {
	Persist(ctx context.Context, snap *snapshot.Snapshot) *storage.PersistResult
}

// Result is the outcome of one run.
type Result struct {
	Status    Status
	Kind      snapshot.Kind
	Trigger   Trigger
	Timestamp time.Time

	// Success is always true: every tier is a handled outcome. Use Status to
	// tell whether a backup was written.
	Success bool
	Warning bool
	Message string
	Error   string

	SnapshotID   string
	TotalRecords int
	Counts       map[string]int
	Checksum     string
	Copies       []storage.StoredCopy
	Failures     []storage.LocationFailure
}

// Primary returns the first copy written, if any.
func (r *Result) Primary() (storage.StoredCopy, bool) {
	if len(r.Copies) == 0 {
		return storage.StoredCopy{}, false
	}
	return r.Copies[0], true
}

type stageTag int

const (
	stageOK stageTag = iota
	stageDegraded
	stageFailed
)

type stageResult struct {
	tag stageTag
	err error
}

func okStage() stageResult                { return stageResult{tag: stageOK} }
func degradedStage(err error) stageResult { return stageResult{tag: stageDegraded, err: err} }
func failedStage(err error) stageResult   { return stageResult{tag: stageFailed, err: err} }
func (s stageResult) is(t stageTag) bool { return s.tag == t }

// Cascade runs the backup pipeline with degrading tiers.
type Cascade struct {
	liveness Liveness
	builder  SnapshotSource
	writer   Persister
	clock    clock.Clock
}

// Option configures a Cascade.
type Option func(*Cascade)

// WithClock sets the clock used to stamp results.
func WithClock(c clock.Clock) Option { return func(cs *Cascade) { cs.clock = c } }

// NewCascade creates a Cascade. A nil liveness skips the check.
func NewCascade(liveness Liveness, builder SnapshotSource, writer Persister, opts ...Option) *Cascade {
	c := &Cascade{liveness: liveness, builder: builder, writer: writer, clock: clock.Real{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckLiveness runs only the liveness stage.
func (c *Cascade) CheckLiveness(ctx context.Context) error {
	if c.liveness == nil {
		return nil
	}
	return c.liveness.Check(ctx)
}

// Run executes one backup. It never returns nil and never panics.
func (c *Cascade) Run(ctx context.Context, kind snapshot.Kind, trigger Trigger) (result *Result) {
	ctx, span := tracing.Start(ctx, "backup.run",
		attribute.String("kind", string(kind)),
		attribute.String("trigger", string(trigger)))
	start := time.Now()

	result = &Result{Kind: kind, Trigger: trigger, Timestamp: c.clock.Now().UTC()}
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Backup pipeline panicked",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())))
			result = c.emergencyFallback(kind, trigger, fmt.Errorf("unexpected failure: %v", r))
		}
		metrics.BackupRuns.WithLabelValues(string(trigger), string(result.Status)).Inc()
		metrics.BackupDuration.WithLabelValues(string(trigger)).Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.String("status", string(result.Status)))
		span.End()
		c.logResult(result)
	}()

	if st := c.livenessStage(ctx); !st.is(stageOK) {
		result.Status = StatusFallbackMode
		result.Success = true
		result.Warning = true
		result.Message = "record store unreachable, backup skipped"
		result.Error = st.err.Error()
		return result
	}

	snap, st := c.buildStage(ctx, kind)
	if !st.is(stageOK) {
		result.Status = StatusBasicBackup
		result.Success = true
		result.Warning = true
		result.Message = "snapshot could not be built, no files written"
		result.Error = st.err.Error()
		return result
	}

	res, st := c.persistStage(ctx, snap)
	result.Failures = res.Failed
	if st.is(stageFailed) {
		fb := c.emergencyFallback(kind, trigger, st.err)
		fb.Failures = res.Failed
		return fb
	}

	result.Status = StatusComplete
	result.Success = true
	result.SnapshotID = snap.ID
	result.Timestamp = snap.Timestamp
	result.TotalRecords = snap.TotalRecords
	result.Counts = snap.Counts()
	result.Checksum = snap.Checksum
	result.Copies = res.Succeeded
	result.Message = fmt.Sprintf("backup written to %d location(s)", len(res.Succeeded))
	if st.is(stageDegraded) {
		result.Warning = true
		result.Message += fmt.Sprintf(", %d failed", len(res.Failed))
	}
	metrics.SnapshotRecords.Set(float64(snap.TotalRecords))
	return result
}

func (c *Cascade) livenessStage(ctx context.Context) stageResult {
	if err := c.CheckLiveness(ctx); err != nil {
		return degradedStage(err)
	}
	return okStage()
}

func (c *Cascade) buildStage(ctx context.Context, kind snapshot.Kind) (*snapshot.Snapshot, stageResult) {
	snap, err := c.builder.Build(ctx, kind)
	if err != nil {
		return nil, failedStage(err)
	}
	return snap, okStage()
}

// persistStage is degraded when some locations failed and failed when all did.
func (c *Cascade) persistStage(ctx context.Context, snap *snapshot.Snapshot) (*storage.PersistResult, stageResult) {
	res := c.writer.Persist(ctx, snap)
	switch {
	case !res.OK():
		msgs := make([]string, 0, len(res.Failed))
		for _, f := range res.Failed {
			msgs = append(msgs, fmt.Sprintf("%s: %v", f.Location, f.Err))
		}
		return res, failedStage(fmt.Errorf("every backup location failed: %s", strings.Join(msgs, "; ")))
	case len(res.Failed) > 0:
		return res, degradedStage(nil)
	}
	return res, okStage()
}

func (c *Cascade) emergencyFallback(kind snapshot.Kind, trigger Trigger, err error) *Result {
	return &Result{
		Status:    StatusEmergencyFallback,
		Success:   true,
		Kind:      kind,
		Trigger:   trigger,
		Timestamp: c.clock.Now().UTC(),
		Warning:   true,
		Message:   "no backup was written",
		Error:     err.Error(),
	}
}

func (c *Cascade) logResult(r *Result) {
	fields := []zap.Field{
		logging.String("status", string(r.Status)),
		logging.String("kind", string(r.Kind)),
		logging.String("trigger", string(r.Trigger)),
		logging.Int("totalRecords", r.TotalRecords),
	}
	switch r.Status {
	case StatusComplete:
		if p, ok := r.Primary(); ok {
			fields = append(fields, logging.String("ref", p.Ref))
		}
		if r.Warning {
			logging.Warn("Backup completed with failed locations", fields...)
			return
		}
		logging.Info("Backup completed", fields...)
	case StatusEmergencyFallback:
		logging.Error("Backup failed", append(fields, logging.String("error", r.Error))...)
	default:
		logging.Warn("Backup degraded", append(fields, logging.String("error", r.Error))...)
	}
}
