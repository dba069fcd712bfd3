package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/config"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/service"
)

// ServicesOpener assembles the backup services from configuration.
// service.Open is the production implementation.
type ServicesOpener func(ctx context.Context, cfg *config.Config) (*service.Services, error)

// CommandContext provides shared dependencies to command handlers.
// Services are opened lazily on first access and closed when the command returns.
type CommandContext struct {
	// Config is the loaded configuration (may be nil if loading failed)
	Config *config.Config

	// ConfigErr is the error from loading config, if any
	ConfigErr error

	ctx  context.Context
	open ServicesOpener

	svc     *service.Services
	svcErr  error
	svcOnce sync.Once
}

// NewContext creates a new CommandContext with the given config.
func NewContext(ctx context.Context, cfg *config.Config, cfgErr error, open ServicesOpener) *CommandContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &CommandContext{
		Config:    cfg,
		ConfigErr: cfgErr,
		ctx:       ctx,
		open:      open,
	}
}

// Context returns the command's context. Interceptors may narrow it.
func (c *CommandContext) Context() context.Context {
	return c.ctx
}

// Services returns the lazily-opened backup services.
func (c *CommandContext) Services() (*service.Services, error) {
	c.svcOnce.Do(func() {
		switch {
		case c.Config == nil:
			c.svcErr = ErrNoConfig
		case c.open == nil:
			c.svcErr = ErrNoServices
		default:
			c.svc, c.svcErr = c.open(c.ctx, c.Config)
			if c.svcErr != nil {
				c.svcErr = fmt.Errorf("failed to open backup services: %w", c.svcErr)
			}
		}
	})
	return c.svc, c.svcErr
}

// HasConfig returns true if config is loaded successfully.
func (c *CommandContext) HasConfig() bool {
	return c.Config != nil && c.ConfigErr == nil
}

// Close releases the services if they were opened.
func (c *CommandContext) Close() error {
	if c.svc == nil {
		return nil
	}
	err := c.svc.Close()
	c.svc = nil
	return err
}
