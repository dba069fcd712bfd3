package runner

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
)

// Interceptor is a function that wraps command execution.
// It mirrors the Connect-RPC interceptor pattern for CLI commands.
type Interceptor func(ctx *CommandContext, cmd *cobra.Command, args []string, next func() error) error

// RequireConfig ensures the configuration is loaded before executing the command.
func RequireConfig() Interceptor {
	return func(ctx *CommandContext, cmd *cobra.Command, args []string, next func() error) error {
		if ctx.ConfigErr != nil {
			return ctx.ConfigErr
		}
		if ctx.Config == nil {
			return ErrNoConfig
		}
		return next()
	}
}

// RequireServices opens the backup services before the handler runs.
// Implicitly requires config to be loaded.
func RequireServices() Interceptor {
	return func(ctx *CommandContext, cmd *cobra.Command, args []string, next func() error) error {
		if ctx.ConfigErr != nil {
			return ctx.ConfigErr
		}
		if _, err := ctx.Services(); err != nil {
			return err
		}
		return next()
	}
}

// WithSignals cancels the command context on SIGINT or SIGTERM.
func WithSignals() Interceptor {
	return func(ctx *CommandContext, cmd *cobra.Command, args []string, next func() error) error {
		parent := ctx.ctx
		sctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx.ctx = sctx
		defer func() { ctx.ctx = parent }()
		return next()
	}
}

// WithTimeout bounds the command context.
func WithTimeout(d time.Duration) Interceptor {
	return func(ctx *CommandContext, cmd *cobra.Command, args []string, next func() error) error {
		parent := ctx.ctx
		tctx, cancel := context.WithTimeout(parent, d)
		defer cancel()
		ctx.ctx = tctx
		defer func() { ctx.ctx = parent }()
		return next()
	}
}

// WithLogging logs command execution, mirroring the RPC logging interceptor.
func WithLogging() Interceptor {
	return func(ctx *CommandContext, cmd *cobra.Command, args []string, next func() error) error {
		start := time.Now()
		logging.Debug("CLI command", logging.String("cmd", cmd.Name()))
		err := next()
		if err != nil {
			logging.Debug("CLI error",
				logging.String("cmd", cmd.Name()),
				logging.Duration("took", time.Since(start)),
				logging.Err(err))
		}
		return err
	}
}
