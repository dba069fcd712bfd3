package integrity

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/clock"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/metrics"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/tracing"
)

// Auditor runs integrity checks against the live record store. It only reads.
type Auditor struct {
	store       recordstore.Store
	collections []string
	clock       clock.Clock
	ids         clock.IDGenerator
	staleWindow time.Duration
	log         *ReportLog

	mu         sync.RWMutex
	history    []Report
	maxHistory int

	// onAlert is called for every report that is not PASSED
	onAlert func(r *Report)
}

// Option configures an Auditor.
type Option func(*Auditor)

func WithClock(c clock.Clock) Option { return func(a *Auditor) { a.clock = c } }

func WithIDGenerator(g clock.IDGenerator) Option { return func(a *Auditor) { a.ids = g } }

// WithReportLog persists every report to log.
func WithReportLog(log *ReportLog) Option { return func(a *Auditor) { a.log = log } }

// WithStaleWindow overrides the patient staleness window.
func WithStaleWindow(d time.Duration) Option { return func(a *Auditor) { a.staleWindow = d } }

// WithAlert registers a callback for WARNING and FAILED reports.
func WithAlert(fn func(r *Report)) Option { return func(a *Auditor) { a.onAlert = fn } }

// NewAuditor creates an Auditor over every protected collection.
func NewAuditor(store recordstore.Store, opts ...Option) *Auditor {
	a := &Auditor{
		store:       store,
		collections: recordstore.Protected(),
		clock:       clock.Real{},
		ids:         clock.UUIDGenerator{},
		staleWindow: StaleWindow,
		maxHistory:  100,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Audit checks every collection in isolation: a failed read becomes a
// CORRUPTED_DATA issue and the remaining collections are still checked.
// Audit never returns an error.
func (a *Auditor) Audit(ctx context.Context) *Report {
	ctx, span := tracing.Start(ctx, "integrity.audit")
	defer span.End()

	start := time.Now()
	report := &Report{
		ID:               a.ids.New(),
		Timestamp:        a.clock.Now().UTC(),
		Issues:           []Issue{},
		CollectionCounts: make(map[string]int),
	}

	if err := a.store.Ping(ctx); err != nil {
		report.Issues = append(report.Issues, Issue{
			Type:        CorruptedData,
			Collection:  "recordStore",
			Description: err.Error(),
			Severity:    Critical,
		})
		return a.finish(report, start)
	}

	data := make(map[string][]recordstore.Record, len(a.collections))
	readOK := make(map[string]bool, len(a.collections))
	for _, name := range a.collections {
		recs, err := a.store.List(ctx, name)
		if err != nil {
			logging.Warn("Integrity audit could not read collection", logging.Collection(name), logging.Err(err))
			report.Issues = append(report.Issues, Issue{
				Type:        CorruptedData,
				Collection:  name,
				Description: err.Error(),
				Severity:    High,
			})
			continue
		}
		data[name] = recs
		readOK[name] = true
		report.CollectionCounts[name] = len(recs)

		report.Issues = append(report.Issues, checkEmpty(name, recs)...)
		report.Issues = append(report.Issues, checkDuplicates(name, recs)...)
	}

	// relational checks need the patient list
	if readOK[recordstore.Patients] {
		patients := data[recordstore.Patients]
		idx := patientIndex(patients)
		for _, owned := range patientOwned {
			if readOK[owned.collection] {
				report.Issues = append(report.Issues, checkOrphans(owned.collection, owned.noun, data[owned.collection], idx)...)
			}
		}
		if readOK[recordstore.Appointments] && len(patients) > 0 {
			report.Issues = append(report.Issues,
				checkStale(patients, data[recordstore.Appointments], report.Timestamp, a.staleWindow)...)
		}
	}

	span.SetAttributes(attribute.Int("issues", len(report.Issues)))
	return a.finish(report, start)
}

func (a *Auditor) finish(report *Report, start time.Time) *Report {
	report.Status = DeriveStatus(report.Issues)
	report.Duration = time.Since(start).Round(time.Millisecond).String()

	metrics.AuditRuns.WithLabelValues(string(report.Status)).Inc()
	for _, is := range report.Issues {
		metrics.AuditIssues.WithLabelValues(string(is.Type), string(is.Severity)).Inc()
	}

	a.addToHistory(*report)
	if a.log != nil {
		if err := a.log.Append(report); err != nil {
			logging.Error("Failed to persist integrity report", logging.String("id", report.ID), logging.Err(err))
		}
	}

	fields := []zap.Field{
		logging.String("id", report.ID),
		logging.String("status", string(report.Status)),
		logging.Int("issues", len(report.Issues)),
	}
	if report.Status == Passed {
		logging.Info("Integrity audit passed", fields...)
	} else {
		logging.Warn("Integrity audit found problems", fields...)
		if a.onAlert != nil {
			a.onAlert(report)
		}
	}
	return report
}
