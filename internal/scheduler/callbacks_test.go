package scheduler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallbacksNilSafe(t *testing.T) {
	var c *Callbacks
	assert.NotPanics(t, func() {
		c.callOnRunStart(&Run{})
		c.callOnRunEnd(&Run{})
	})

	empty := &Callbacks{}
	assert.NotPanics(t, func() {
		empty.callOnRunStart(&Run{})
		empty.callOnRunEnd(&Run{Err: errors.New("x")})
	})
}

func TestCallbacksDispatchOnOutcome(t *testing.T) {
	var got []string
	c := &Callbacks{
		OnRunSuccess: func(*Run) { got = append(got, "success") },
		OnRunFailure: func(*Run) { got = append(got, "failure") },
		OnRunSkipped: func(*Run) { got = append(got, "skipped") },
	}

	c.callOnRunEnd(&Run{})
	c.callOnRunEnd(&Run{Err: errors.New("boom")})
	c.callOnRunEnd(&Run{SkipReason: "restore in progress"})

	assert.Equal(t, []string{"success", "failure", "skipped"}, got)
}

func TestChainCallbacks(t *testing.T) {
	var first, second int
	chained := ChainCallbacks(
		&Callbacks{OnRunFailure: func(*Run) { first++ }},
		nil,
		&Callbacks{OnRunFailure: func(*Run) { second++ }, OnRunStart: func(*Run) { second++ }},
	)

	chained.callOnRunStart(&Run{})
	chained.callOnRunEnd(&Run{Err: errors.New("boom")})

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestLoggingCallbacks(t *testing.T) {
	var lines []string
	c := LoggingCallbacks(func(format string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, args...))
	})

	c.callOnRunStart(&Run{Task: TaskFull})
	c.callOnRunEnd(&Run{Task: TaskEmergency, SkipReason: "record store unreachable"})

	assert.Equal(t, []string{
		"Task full starting",
		"Task emergency skipped: record store unreachable",
	}, lines)
}
