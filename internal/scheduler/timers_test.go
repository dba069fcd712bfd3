package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/filelock"
)

func TestTimersRunTask(t *testing.T) {
	called := make(chan struct{}, 1)
	tm := NewTimers()
	require.NoError(t, tm.Register("probe", Every(20*time.Millisecond), func(context.Context) error {
		select {
		case called <- struct{}{}:
		default:
		}
		return nil
	}))

	tm.Start()
	defer tm.Stop()

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("task was not run within timeout")
	}
}

func TestTimersStop(t *testing.T) {
	var count atomic.Int32
	tm := NewTimers()
	require.NoError(t, tm.Register("count", Every(10*time.Millisecond), func(context.Context) error {
		count.Add(1)
		return nil
	}))

	tm.Start()
	time.Sleep(60 * time.Millisecond)
	tm.Stop()
	assert.False(t, tm.IsRunning())

	atStop := count.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, atStop, count.Load(), "task ran after Stop")
}

func TestTimersStartIsIdempotent(t *testing.T) {
	var mu sync.Mutex
	var starts []time.Time
	tm := NewTimers()
	require.NoError(t, tm.Register("once", Every(100*time.Millisecond), func(context.Context) error {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		return nil
	}))

	tm.Start()
	tm.Start()
	time.Sleep(150 * time.Millisecond)
	tm.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, starts, 1, "a second Start must not add a second timer")
}

func TestTimersRegisterDuplicate(t *testing.T) {
	tm := NewTimers()
	fn := func(context.Context) error { return nil }
	require.NoError(t, tm.Register("a", Every(time.Hour), fn))
	assert.Error(t, tm.Register("a", Every(time.Hour), fn))
	assert.Error(t, tm.Register("b", nil, fn))
}

func TestTimersStatus(t *testing.T) {
	tm := NewTimers()
	require.NoError(t, tm.Register("a", MustParseSchedule("every 1h"), func(context.Context) error {
		return errors.New("disk full")
	}))

	st := tm.Status()
	require.Len(t, st, 1)
	assert.True(t, st[0].NextRun.IsZero(), "no next run while stopped")
	assert.True(t, st[0].LastRun.IsZero())

	tm.Start()
	st = tm.Status()
	assert.False(t, st[0].NextRun.IsZero())
	tm.Stop()

	run, err := tm.RunNow(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, run.Forced)
	assert.Equal(t, "failure", run.Outcome())

	st = tm.Status()
	assert.Equal(t, "failure", st[0].LastOutcome)
	assert.Equal(t, "disk full", st[0].LastError)
	assert.Equal(t, 1, st[0].Runs)
}

func TestTimersRunNowUnknownTask(t *testing.T) {
	_, err := NewTimers().RunNow(context.Background(), "missing")
	assert.Error(t, err)
}

func TestTimersSkipAndPanic(t *testing.T) {
	var ends []string
	tm := NewTimers(WithCallbacks(&Callbacks{
		OnRunSkipped: func(r *Run) { ends = append(ends, r.Task+":"+r.SkipReason) },
		OnRunFailure: func(r *Run) { ends = append(ends, r.Task+":failed") },
	}))
	require.NoError(t, tm.Register("skip", Every(time.Hour), func(context.Context) error { return Skip("busy") }))
	require.NoError(t, tm.Register("panic", Every(time.Hour), func(context.Context) error { panic("boom") }))

	_, err := tm.RunNow(context.Background(), "skip")
	require.NoError(t, err)
	run, err := tm.RunNow(context.Background(), "panic")
	require.NoError(t, err)
	assert.Contains(t, run.Err.Error(), "boom")

	assert.Equal(t, []string{"skip:busy", "panic:failed"}, ends)
	st := tm.Status()
	assert.Equal(t, 1, st[0].Skips)
	assert.Equal(t, 0, st[0].Runs)
}

func TestTimersSkipWhenAnotherInstanceHoldsTaskLock(t *testing.T) {
	dir := t.TempDir()
	other := filelock.Named(dir, "scheduler-full")
	ok, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer other.Unlock()

	var ran bool
	tm := NewTimers(WithLockDir(dir))
	require.NoError(t, tm.Register("full", Every(time.Hour), func(context.Context) error {
		ran = true
		return nil
	}))

	run, err := tm.RunNow(context.Background(), "full")
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, "running in another instance", run.SkipReason)

	require.NoError(t, other.Unlock())
	_, err = tm.RunNow(context.Background(), "full")
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestTimersRestartWhileStopping(t *testing.T) {
	started := make(chan struct{}, 8)
	tm := NewTimers()
	require.NoError(t, tm.Register("slow", Every(30*time.Millisecond), func(context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(200 * time.Millisecond)
		return nil
	}))

	tm.Start()
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("task was not run within timeout")
	}

	stopped := make(chan struct{})
	go func() {
		tm.Stop()
		close(stopped)
	}()
	time.Sleep(50 * time.Millisecond)
	tm.Start()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on the restarted generation")
	}
	assert.True(t, tm.IsRunning())
	status := tm.Status()
	require.Len(t, status, 1)
	assert.False(t, status[0].NextRun.IsZero(), "restarted task lost its next run")

	tm.Stop()
	assert.False(t, tm.IsRunning())
	assert.True(t, tm.Status()[0].NextRun.IsZero())
}
