// Package service contains business logic separated from HTTP, RPC and CLI concerns.
package service

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/backup"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/clock"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/filelock"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/integrity"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recovery"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/scheduler"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/snapshot"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/storage"
)

// Deps are the components every service is built from. Open assembles them
// from configuration; tests construct them directly.
type Deps struct {
	Store    recordstore.Store
	Writer   *storage.MultiWriter
	Decoder  *storage.Decoder
	Liveness backup.Liveness

	// ReportLog is optional; without it audit history is kept in memory.
	ReportLog   *integrity.ReportLog
	StaleWindow time.Duration

	Schedule scheduler.Config

	Clock clock.Clock
	IDs   clock.IDGenerator
}

// Services groups the per-concern services.
type Services struct {
	Backup    *BackupService
	Recovery  *RecoveryService
	Integrity *IntegrityService
	Scheduler *SchedulerService

	// Liveness is the record store probe shared with the cascade; may be nil.
	Liveness backup.Liveness

	closers []io.Closer
}

// New wires the pipeline components. The scheduler is created stopped.
func New(d Deps) (*Services, error) {
	if d.Store == nil {
		return nil, errors.New("record store is required")
	}
	if d.Writer == nil {
		return nil, errors.New("backup writer is required")
	}
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.IDs == nil {
		d.IDs = clock.UUIDGenerator{}
	}

	builder := snapshot.NewBuilder(d.Store,
		snapshot.WithClock(d.Clock),
		snapshot.WithIDGenerator(d.IDs))
	cascade := backup.NewCascade(d.Liveness, builder, d.Writer, backup.WithClock(d.Clock))

	auditOpts := []integrity.Option{
		integrity.WithClock(d.Clock),
		integrity.WithIDGenerator(d.IDs),
		integrity.WithAlert(alertCritical),
	}
	if d.ReportLog != nil {
		auditOpts = append(auditOpts, integrity.WithReportLog(d.ReportLog))
	}
	if d.StaleWindow > 0 {
		auditOpts = append(auditOpts, integrity.WithStaleWindow(d.StaleWindow))
	}
	auditor := integrity.NewAuditor(d.Store, auditOpts...)

	sched, err := scheduler.NewBackupScheduler(cascade, auditor, d.Schedule,
		scheduler.WithSchedulerClock(d.Clock),
		scheduler.WithRunCallbacks(scheduler.LoggingCallbacks(logging.Infof)))
	if err != nil {
		return nil, err
	}

	var restoreLock *filelock.FileLock
	if d.Schedule.StateDir != "" {
		restoreLock = filelock.Named(d.Schedule.StateDir, "restore")
	}

	return &Services{
		Backup:    NewBackupService(cascade, d.Writer),
		Recovery:  NewRecoveryService(d.Writer, recovery.NewValidator(d.Writer, d.Decoder), recovery.NewOrchestrator(d.Store, builder, d.Writer, restoreLock)),
		Integrity: NewIntegrityService(auditor),
		Scheduler: NewSchedulerService(sched),
		Liveness:  d.Liveness,
	}, nil
}

// Close stops the scheduler and releases the store, remote clients and the report log.
func (s *Services) Close() error {
	if s.Scheduler != nil {
		s.Scheduler.Stop()
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// alertCritical escalates reports carrying CRITICAL issues.
func alertCritical(r *integrity.Report) {
	if !r.HasCritical() {
		return
	}
	descs := make([]string, 0, len(r.Issues))
	for _, is := range r.Issues {
		if is.Severity == integrity.Critical {
			descs = append(descs, is.Description)
		}
	}
	logging.Error("CRITICAL integrity issues detected",
		logging.String("report", r.ID),
		logging.String("issues", strings.Join(descs, "; ")))
}
