// Package scheduler runs the periodic backup and integrity tasks.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/clock"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/filelock"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/metrics"
)

// TaskFunc is the body of a scheduled task.
type TaskFunc func(ctx context.Context) error

// TaskScheduler runs named tasks on their schedules.
type TaskScheduler interface {
	Register(name string, schedule *Schedule, fn TaskFunc) error
	Start()
	Stop()
	IsRunning() bool
	Status() []TaskStatus
}

// SkipError marks a run the task chose not to perform.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skipped: " + e.Reason }

// Skip returns an error telling the scheduler the run was skipped, not failed.
func Skip(reason string) error { return &SkipError{Reason: reason} }

// TaskStatus is a snapshot of one task's state.
type TaskStatus struct {
	Name        string    `json:"name"`
	Schedule    string    `json:"schedule"`
	LastRun     time.Time `json:"lastRun,omitempty"`
	LastOutcome string    `json:"lastOutcome,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
	NextRun     time.Time `json:"nextRun,omitempty"`
	Runs        int       `json:"runs"`
	Skips       int       `json:"skips"`
}

type task struct {
	name     string
	schedule *Schedule
	fn       TaskFunc
	lock     *filelock.FileLock

	// guarded by Timers.mu
	last    *Run
	nextRun time.Time
	runs    int
	skips   int
}

// Timers is a TaskScheduler with one goroutine and timer per task.
type Timers struct {
	clock     clock.Clock
	lockDir   string
	callbacks *Callbacks

	mu      sync.Mutex
	tasks   []*task
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	// wg tracks the loops of the current run generation.
	wg *sync.WaitGroup
}

// TimersOption configures Timers.
type TimersOption func(*Timers)

// WithClock sets the clock used to stamp runs.
func WithClock(c clock.Clock) TimersOption { return func(t *Timers) { t.clock = c } }

// WithLockDir makes every run take dir/scheduler-<task>.lock, so instances
// sharing dir never run the same task concurrently.
func WithLockDir(dir string) TimersOption { return func(t *Timers) { t.lockDir = dir } }

// WithCallbacks installs lifecycle hooks.
func WithCallbacks(c *Callbacks) TimersOption { return func(t *Timers) { t.callbacks = c } }

// NewTimers creates a stopped scheduler.
func NewTimers(opts ...TimersOption) *Timers {
	t := &Timers{clock: clock.Real{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var _ TaskScheduler = (*Timers)(nil)

// Register adds a task. Tasks registered while running start immediately.
func (t *Timers) Register(name string, schedule *Schedule, fn TaskFunc) error {
	if name == "" || schedule == nil || fn == nil {
		return errors.New("task name, schedule and function are required")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.tasks {
		if existing.name == name {
			return fmt.Errorf("task %q already registered", name)
		}
	}
	tk := &task{name: name, schedule: schedule, fn: fn}
	if t.lockDir != "" {
		tk.lock = filelock.Named(t.lockDir, "scheduler-"+name)
	}
	t.tasks = append(t.tasks, tk)
	if t.running {
		t.launch(tk)
	}
	return nil
}

// Start starts one timer per task. Starting a running scheduler only logs a warning.
func (t *Timers) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		logging.Warn("Scheduler already running, ignoring start")
		return
	}
	t.running = true
	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.wg = &sync.WaitGroup{}
	for _, tk := range t.tasks {
		t.launch(tk)
	}
	logging.Info("Scheduler started", logging.Int("tasks", len(t.tasks)))
}

// launch must be called with t.mu held.
func (t *Timers) launch(tk *task) {
	tk.nextRun = tk.schedule.NextRun(t.clock.Now())
	t.wg.Add(1)
	go t.loop(t.ctx, t.wg, tk)
}

// Stop stops every timer and waits for running tasks to return.
func (t *Timers) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.cancel()
	wg := t.wg
	t.mu.Unlock()

	wg.Wait()

	t.mu.Lock()
	if !t.running {
		for _, tk := range t.tasks {
			tk.nextRun = time.Time{}
		}
	}
	t.mu.Unlock()
	logging.Info("Scheduler stopped")
}

// IsRunning reports whether the timers are active.
func (t *Timers) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Status returns every task in registration order.
func (t *Timers) Status() []TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TaskStatus, 0, len(t.tasks))
	for _, tk := range t.tasks {
		st := TaskStatus{
			Name:     tk.name,
			Schedule: tk.schedule.String(),
			NextRun:  tk.nextRun,
			Runs:     tk.runs,
			Skips:    tk.skips,
		}
		if tk.last != nil {
			st.LastRun = tk.last.StartTime
			st.LastOutcome = tk.last.Outcome()
			if tk.last.Err != nil {
				st.LastError = tk.last.Err.Error()
			}
		}
		out = append(out, st)
	}
	return out
}

// RunNow runs a registered task immediately without touching its timer.
func (t *Timers) RunNow(ctx context.Context, name string) (*Run, error) {
	t.mu.Lock()
	var tk *task
	for _, candidate := range t.tasks {
		if candidate.name == name {
			tk = candidate
		}
	}
	t.mu.Unlock()
	if tk == nil {
		return nil, fmt.Errorf("task %q not registered", name)
	}
	return t.execute(ctx, tk, t.clock.Now(), true), nil
}

func (t *Timers) loop(ctx context.Context, wg *sync.WaitGroup, tk *task) {
	defer wg.Done()

	t.mu.Lock()
	next := tk.nextRun
	t.mu.Unlock()
	logging.Info("Task scheduled", logging.Task(tk.name), logging.Time("nextRun", next))

	for {
		wait := next.Sub(t.clock.Now())
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		t.execute(ctx, tk, next, false)

		next = tk.schedule.NextRun(t.clock.Now())
		t.mu.Lock()
		if ctx.Err() == nil {
			tk.nextRun = next
		}
		t.mu.Unlock()
	}
}

// execute runs a task once. Panics are recovered and reported as failures.
func (t *Timers) execute(ctx context.Context, tk *task, scheduled time.Time, forced bool) *Run {
	run := &Run{Task: tk.name, ScheduledTime: scheduled, StartTime: t.clock.Now(), Forced: forced}
	t.callbacks.callOnRunStart(run)

	err := t.invoke(ctx, tk)
	run.EndTime = t.clock.Now()

	var skip *SkipError
	switch {
	case errors.As(err, &skip):
		run.SkipReason = skip.Reason
		metrics.SchedulerSkips.WithLabelValues(tk.name, skip.Reason).Inc()
		logging.Warn("Scheduled task skipped", logging.Task(tk.name), logging.String("reason", skip.Reason))
	case err != nil:
		run.Err = err
		logging.Error("Scheduled task failed", logging.Task(tk.name), logging.Err(err))
	default:
		logging.Debug("Scheduled task finished", logging.Task(tk.name), logging.Duration("took", run.Duration()))
	}

	t.mu.Lock()
	tk.last = run
	if run.SkipReason != "" {
		tk.skips++
	} else {
		tk.runs++
	}
	t.mu.Unlock()

	t.callbacks.callOnRunEnd(run)
	return run
}

func (t *Timers) invoke(ctx context.Context, tk *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Scheduled task panicked", logging.Task(tk.name), logging.String("stack", string(debug.Stack())))
			err = fmt.Errorf("task %s panicked: %v", tk.name, r)
		}
	}()

	if tk.lock == nil {
		return tk.fn(ctx)
	}
	err = tk.lock.WithTryLock(func() error { return tk.fn(ctx) })
	if errors.Is(err, filelock.ErrLocked) {
		return Skip("running in another instance")
	}
	return err
}

// FormatDuration renders d for operators: "30 seconds", "5 minutes", "2.0 hours", "1.5 days".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%.1f hours", d.Hours())
	}
	return fmt.Sprintf("%.1f days", d.Hours()/24)
}
