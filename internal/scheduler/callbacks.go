package scheduler

import "time"

// Run describes one execution of a registered task.
type Run struct {
	Task          string
	ScheduledTime time.Time
	StartTime     time.Time
	EndTime       time.Time
	// Err is set when the task failed.
	Err error
	// SkipReason is set when the task declined to run.
	SkipReason string
	// Forced is true for runs started outside the timers.
	Forced bool
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Outcome is "success", "failure" or "skipped".
func (r *Run) Outcome() string {
	switch {
	case r.SkipReason != "":
		return "skipped"
	case r.Err != nil:
		return "failure"
	}
	return "success"
}

// Callbacks provides hooks for task lifecycle events. Nil hooks are not called.
type Callbacks struct {
	OnRunStart   func(run *Run)
	OnRunSuccess func(run *Run)
	OnRunFailure func(run *Run)
	OnRunSkipped func(run *Run)
}

func (c *Callbacks) callOnRunStart(run *Run) {
	if c != nil && c.OnRunStart != nil {
		c.OnRunStart(run)
	}
}

// callOnRunEnd dispatches on the run's outcome.
func (c *Callbacks) callOnRunEnd(run *Run) {
	if c == nil {
		return
	}
	var fn func(*Run)
	switch run.Outcome() {
	case "skipped":
		fn = c.OnRunSkipped
	case "failure":
		fn = c.OnRunFailure
	default:
		fn = c.OnRunSuccess
	}
	if fn != nil {
		fn(run)
	}
}

// LoggingCallbacks logs every event through logf.
func LoggingCallbacks(logf func(format string, args ...interface{})) *Callbacks {
	return &Callbacks{
		OnRunStart: func(r *Run) {
			logf("Task %s starting", r.Task)
		},
		OnRunSuccess: func(r *Run) {
			logf("Task %s succeeded in %v", r.Task, r.Duration())
		},
		OnRunFailure: func(r *Run) {
			logf("Task %s failed after %v: %v", r.Task, r.Duration(), r.Err)
		},
		OnRunSkipped: func(r *Run) {
			logf("Task %s skipped: %s", r.Task, r.SkipReason)
		},
	}
}

// ChainCallbacks calls every handler in order.
func ChainCallbacks(callbacks ...*Callbacks) *Callbacks {
	return &Callbacks{
		OnRunStart: func(r *Run) {
			for _, c := range callbacks {
				c.callOnRunStart(r)
			}
		},
		OnRunSuccess: func(r *Run) {
			for _, c := range callbacks {
				c.callOnRunEnd(r)
			}
		},
		OnRunFailure: func(r *Run) {
			for _, c := range callbacks {
				c.callOnRunEnd(r)
			}
		},
		OnRunSkipped: func(r *Run) {
			for _, c := range callbacks {
				c.callOnRunEnd(r)
			}
		},
	}
}
