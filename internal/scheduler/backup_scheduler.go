package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/backup"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/clock"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/filelock"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/integrity"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/snapshot"
)

// Task names, also used in lock file names and metrics.
const (
	TaskEmergency = "emergency"
	TaskFull      = "full"
	TaskIntegrity = "integrity"
)

// Default schedules.
const (
	DefaultEmergencySchedule = "hourly"
	DefaultFullSchedule      = "0 2 * * *"
	DefaultIntegritySchedule = "every 6h"
)

// BackupRunner runs one backup through the fallback cascade. *backup.Cascade implements it.
type BackupRunner interface {
	Run(ctx context.Context, kind snapshot.Kind, trigger backup.Trigger) *backup.Result
}

// Auditor runs one integrity audit. *integrity.Auditor implements it.
type Auditor interface {
	Audit(ctx context.Context) *integrity.Report
}

// Config holds the three task schedules.
type Config struct {
	Emergency string
	Full      string
	Integrity string
	// StateDir holds scheduler-<task>.lock and restore.lock. Empty disables both.
	StateDir string
}

// DefaultConfig returns the default schedules without a state directory.
func DefaultConfig() Config {
	return Config{
		Emergency: DefaultEmergencySchedule,
		Full:      DefaultFullSchedule,
		Integrity: DefaultIntegritySchedule,
	}
}

// Status is the operator view of the backup scheduler.
type Status struct {
	IsRunning      bool         `json:"isRunning"`
	LastBackupTime *time.Time   `json:"lastBackupTime"`
	NextBackupIn   string       `json:"nextBackupIn,omitempty"`
	Tasks          []TaskStatus `json:"tasks"`
}

// BackupScheduler owns the emergency, full and integrity tasks.
type BackupScheduler struct {
	timers      *Timers
	runner      BackupRunner
	auditor     Auditor
	clock       clock.Clock
	restoreLock *filelock.FileLock

	mu         sync.Mutex
	lastResult *backup.Result
	lastOK     time.Time
}

// Option configures a BackupScheduler.
type Option func(*options)

type options struct {
	clock     clock.Clock
	callbacks *Callbacks
}

// WithSchedulerClock sets the clock for run stamps and status.
func WithSchedulerClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// WithRunCallbacks installs task lifecycle hooks.
func WithRunCallbacks(c *Callbacks) Option { return func(o *options) { o.callbacks = c } }

// NewBackupScheduler creates a stopped scheduler with the three tasks registered.
func NewBackupScheduler(runner BackupRunner, auditor Auditor, cfg Config, opts ...Option) (*BackupScheduler, error) {
	o := options{clock: clock.Real{}}
	for _, opt := range opts {
		opt(&o)
	}

	timerOpts := []TimersOption{WithClock(o.clock), WithCallbacks(o.callbacks)}
	if cfg.StateDir != "" {
		timerOpts = append(timerOpts, WithLockDir(cfg.StateDir))
	}

	s := &BackupScheduler{
		timers:  NewTimers(timerOpts...),
		runner:  runner,
		auditor: auditor,
		clock:   o.clock,
	}
	if cfg.StateDir != "" {
		s.restoreLock = filelock.Named(cfg.StateDir, "restore")
	}

	tasks := []struct {
		name, expr, fallback string
		fn                   TaskFunc
	}{
		{TaskEmergency, cfg.Emergency, DefaultEmergencySchedule, s.emergencyBackup},
		{TaskFull, cfg.Full, DefaultFullSchedule, s.fullBackup},
		{TaskIntegrity, cfg.Integrity, DefaultIntegritySchedule, s.integrityAudit},
	}
	for _, tk := range tasks {
		expr := tk.expr
		if expr == "" {
			expr = tk.fallback
		}
		sched, err := ParseSchedule(expr)
		if err != nil {
			return nil, fmt.Errorf("%s schedule: %w", tk.name, err)
		}
		if err := s.timers.Register(tk.name, sched, tk.fn); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start is idempotent: a second call logs a warning and keeps one timer per task.
func (s *BackupScheduler) Start() { s.timers.Start() }

// Stop stops every timer.
func (s *BackupScheduler) Stop() { s.timers.Stop() }

// IsRunning reports whether the timers are active.
func (s *BackupScheduler) IsRunning() bool { return s.timers.IsRunning() }

// ForceBackup runs the emergency path now, whether or not the timers are
// running, and leaves the timers untouched.
func (s *BackupScheduler) ForceBackup(ctx context.Context) *backup.Result {
	logging.Info("Forced emergency backup requested")
	res := s.runner.Run(ctx, snapshot.KindEmergency, backup.TriggerForced)
	s.record(res)
	return res
}

// LastResult returns the most recent backup result, if any.
func (s *BackupScheduler) LastResult() (*backup.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult, s.lastResult != nil
}

// Status reports the running state, the last successful backup and the time
// until the next scheduled backup.
func (s *BackupScheduler) Status() Status {
	tasks := s.timers.Status()
	st := Status{IsRunning: s.timers.IsRunning(), Tasks: tasks}

	s.mu.Lock()
	if !s.lastOK.IsZero() {
		t := s.lastOK
		st.LastBackupTime = &t
	}
	s.mu.Unlock()

	if st.IsRunning {
		var next time.Time
		for _, tk := range tasks {
			if tk.Name == TaskIntegrity || tk.NextRun.IsZero() {
				continue
			}
			if next.IsZero() || tk.NextRun.Before(next) {
				next = tk.NextRun
			}
		}
		if !next.IsZero() {
			d := next.Sub(s.clock.Now())
			if d < 0 {
				d = 0
			}
			st.NextBackupIn = FormatDuration(d)
		}
	}
	return st
}

func (s *BackupScheduler) record(res *backup.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResult = res
	if res.Status == backup.StatusComplete {
		s.lastOK = res.Timestamp
	}
}

// restoreInProgress reports whether another owner holds the restore lock.
func (s *BackupScheduler) restoreInProgress() bool {
	if s.restoreLock == nil {
		return false
	}
	ok, err := s.restoreLock.TryLock()
	if err != nil {
		logging.Warn("Could not check restore lock", logging.Err(err))
		return false
	}
	if !ok {
		return true
	}
	_ = s.restoreLock.Unlock()
	return false
}

func (s *BackupScheduler) emergencyBackup(ctx context.Context) error {
	if s.restoreInProgress() {
		return Skip("restore in progress")
	}
	res := s.runner.Run(ctx, snapshot.KindEmergency, backup.TriggerScheduled)
	s.record(res)
	return resultErr(res)
}

func (s *BackupScheduler) fullBackup(ctx context.Context) error {
	if s.restoreInProgress() {
		return Skip("restore in progress")
	}
	res := s.runner.Run(ctx, snapshot.KindFull, backup.TriggerScheduled)
	s.record(res)
	return resultErr(res)
}

func (s *BackupScheduler) integrityAudit(ctx context.Context) error {
	report := s.auditor.Audit(ctx)
	if report.Status == integrity.Failed {
		return fmt.Errorf("integrity audit %s failed with %d issue(s)", report.ID, len(report.Issues))
	}
	return nil
}

// resultErr maps a cascade tier to a task outcome. FALLBACK_MODE means the
// liveness check failed, which is a skip.
func resultErr(res *backup.Result) error {
	switch res.Status {
	case backup.StatusComplete:
		return nil
	case backup.StatusFallbackMode:
		return Skip("record store unreachable")
	}
	return fmt.Errorf("backup ended in %s: %s", res.Status, res.Error)
}
