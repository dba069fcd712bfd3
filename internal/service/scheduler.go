package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/backup"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/scheduler"
)

// Scheduler actions accepted by Control.
const (
	ActionStart = "start"
	ActionStop  = "stop"
	ActionForce = "force"
)

// ErrUnknownAction is returned by Control for anything but start, stop or force.
var ErrUnknownAction = errors.New("action must be one of: start, stop, force")

// SchedulerService controls the backup scheduler
type SchedulerService struct {
	sched *scheduler.BackupScheduler
}

// NewSchedulerService creates a new scheduler service
func NewSchedulerService(sched *scheduler.BackupScheduler) *SchedulerService {
	return &SchedulerService{sched: sched}
}

// ControlResult is the outcome of a scheduler action.
type ControlResult struct {
	Success bool
	Message string
	Status  scheduler.Status
	// Backup is set for the force action.
	Backup *backup.Result
}

// Status returns the current scheduler status.
func (s *SchedulerService) Status() scheduler.Status {
	return s.sched.Status()
}

// Start starts the timers; repeated calls are harmless.
func (s *SchedulerService) Start() {
	s.sched.Start()
}

// Stop halts the timers.
func (s *SchedulerService) Stop() {
	s.sched.Stop()
}

// Control applies action. Start and stop are idempotent; force runs an
// emergency backup now without touching the timers.
func (s *SchedulerService) Control(ctx context.Context, action string) (*ControlResult, error) {
	res := &ControlResult{Success: true}
	switch action {
	case ActionStart:
		if s.sched.IsRunning() {
			res.Message = "Scheduler already running"
		} else {
			s.sched.Start()
			res.Message = "Scheduler started"
		}
	case ActionStop:
		if !s.sched.IsRunning() {
			res.Message = "Scheduler already stopped"
		} else {
			s.sched.Stop()
			res.Message = "Scheduler stopped"
		}
	case ActionForce:
		b := s.sched.ForceBackup(ctx)
		res.Backup = b
		res.Success = b.Status != backup.StatusEmergencyFallback
		res.Message = fmt.Sprintf("Forced backup finished with status %s", b.Status)
		if b.Message != "" {
			res.Message += ": " + b.Message
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	res.Status = s.sched.Status()
	return res, nil
}
