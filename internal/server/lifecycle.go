// Package server provides HTTP server lifecycle utilities
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
)

// ShutdownTimeout is the default timeout for graceful shutdown
const ShutdownTimeout = 30 * time.Second

// GracefulServer wraps an http.Server with graceful shutdown capabilities
type GracefulServer struct {
	server          *http.Server
	shutdownTimeout time.Duration
	beforeStop      func()
	shutdownHook    func()
}

// GracefulServerOptions configures a GracefulServer
type GracefulServerOptions struct {
	// ShutdownTimeout bounds in-flight request draining; zero uses ShutdownTimeout.
	ShutdownTimeout time.Duration
	// BeforeStop is called before draining starts (e.g. stop the backup scheduler)
	BeforeStop func()
	// ShutdownHook is called after the server has stopped (e.g. close the record store)
	ShutdownHook func()
}

// NewGracefulServer creates a server wrapper with graceful shutdown
func NewGracefulServer(server *http.Server, opts *GracefulServerOptions) *GracefulServer {
	gs := &GracefulServer{server: server, shutdownTimeout: ShutdownTimeout}
	if opts != nil {
		if opts.ShutdownTimeout > 0 {
			gs.shutdownTimeout = opts.ShutdownTimeout
		}
		gs.beforeStop = opts.BeforeStop
		gs.shutdownHook = opts.ShutdownHook
	}
	return gs
}

// ListenAndServe serves until SIGINT/SIGTERM, then shuts down gracefully.
func (gs *GracefulServer) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	return gs.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down gracefully.
func (gs *GracefulServer) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		if err := gs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logging.Info("Listening", logging.String("addr", ln.Addr().String()))

	select {
	case err, ok := <-errCh:
		if ok {
			logging.Error("Server error", logging.Err(err))
			return err
		}
		return nil
	case <-ctx.Done():
		return gs.Shutdown()
	}
}

// Shutdown gracefully shuts down the server
func (gs *GracefulServer) Shutdown() error {
	logging.Info("Shutting down...")

	if gs.beforeStop != nil {
		gs.beforeStop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gs.shutdownTimeout)
	defer cancel()

	if err := gs.server.Shutdown(ctx); err != nil {
		return err
	}

	if gs.shutdownHook != nil {
		gs.shutdownHook()
	}

	logging.Info("Server stopped")
	return nil
}
