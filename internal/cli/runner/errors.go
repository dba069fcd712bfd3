// Package runner provides an interceptor-based command execution framework for CLI commands.
// It mirrors the pattern used by Connect-RPC interceptors, providing consistent middleware
// semantics for CLI command handlers.
package runner

import "errors"

// Standard errors returned by interceptors
var (
	// ErrNoConfig is returned when a command needs configuration but none could be loaded
	ErrNoConfig = errors.New("configuration not loaded")

	// ErrNoServices is returned when a command needs the backup services but no opener is set
	ErrNoServices = errors.New("backup services unavailable")
)
