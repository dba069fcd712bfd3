package runner

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/config"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
)

// ConfigProvider is a function that returns the current config and any load error.
// This allows the runner to be decoupled from the global config state.
type ConfigProvider func() (*config.Config, error)

// CommandRunner chains interceptors for CLI command execution.
// It mirrors Connect-RPC's interceptor pattern.
type CommandRunner struct {
	interceptors   []Interceptor
	configProvider ConfigProvider
	opener         ServicesOpener
}

// NewRunner creates a new CommandRunner with the given config provider.
func NewRunner(provider ConfigProvider, opener ServicesOpener) *CommandRunner {
	return &CommandRunner{
		configProvider: provider,
		opener:         opener,
	}
}

// Use adds interceptors to the chain. Returns self for chaining.
func (r *CommandRunner) Use(interceptors ...Interceptor) *CommandRunner {
	r.interceptors = append(r.interceptors, interceptors...)
	return r
}

// Clone creates a copy of this runner with its own interceptor chain.
// The config provider and opener are shared.
func (r *CommandRunner) Clone() *CommandRunner {
	cloned := &CommandRunner{
		interceptors:   make([]Interceptor, len(r.interceptors)),
		configProvider: r.configProvider,
		opener:         r.opener,
	}
	copy(cloned.interceptors, r.interceptors)
	return cloned
}

// CommandFunc is the signature for command handler functions.
type CommandFunc func(ctx *CommandContext, cmd *cobra.Command, args []string) error

// Wrap creates a cobra.RunE function with the interceptor chain applied.
// Services opened during the command are closed before it returns.
func (r *CommandRunner) Wrap(fn CommandFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		var cfg *config.Config
		var cfgErr error
		if r.configProvider != nil {
			cfg, cfgErr = r.configProvider()
		}
		ctx := NewContext(cmd.Context(), cfg, cfgErr, r.opener)
		defer func() {
			if cerr := ctx.Close(); cerr != nil {
				logging.Warn("Failed to close backup services", logging.Err(cerr))
				err = errors.Join(err, cerr)
			}
		}()

		// Build the chain: interceptors wrap the handler
		chain := func() error { return fn(ctx, cmd, args) }

		// Wrap in reverse order so first interceptor runs first
		for i := len(r.interceptors) - 1; i >= 0; i-- {
			interceptor := r.interceptors[i]
			next := chain
			chain = func() error { return interceptor(ctx, cmd, args, next) }
		}

		return chain()
	}
}

// Builder helps construct runners with common interceptor patterns.
type Builder struct {
	provider ConfigProvider
	opener   ServicesOpener
}

// NewBuilder creates a new runner builder.
func NewBuilder(provider ConfigProvider, opener ServicesOpener) *Builder {
	return &Builder{provider: provider, opener: opener}
}

// Base creates a runner with just logging.
func (b *Builder) Base() *CommandRunner {
	return NewRunner(b.provider, b.opener).Use(WithLogging())
}

// Config creates a runner that requires config to be loaded.
func (b *Builder) Config() *CommandRunner {
	return NewRunner(b.provider, b.opener).Use(
		WithLogging(),
		RequireConfig(),
	)
}

// Services creates a runner for one-shot pipeline commands: interruptible,
// with the backup services opened up front.
func (b *Builder) Services() *CommandRunner {
	return NewRunner(b.provider, b.opener).Use(
		WithLogging(),
		WithSignals(),
		RequireConfig(),
		RequireServices(),
	)
}
