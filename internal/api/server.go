// Package api provides the HTTP control plane for backups, recovery and integrity audits
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/health"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/middleware"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/service"
)

// Mount attaches an extra handler, such as the RPC service, under Path.
type Mount struct {
	Path    string
	Handler http.Handler
}

// ServerOptions configures optional parts of the server
type ServerOptions struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RateLimit enables per-IP limiting when non-nil.
	RateLimit *middleware.RateLimitConfig
	// CORSOrigins lists allowed origins; empty allows any.
	CORSOrigins []string
	// Health is probed by GET /health; nil always reports ok.
	Health health.Prober
	Mounts []Mount
}

// Server is the HTTP API server
type Server struct {
	httpServer *http.Server
	limiter    *middleware.RateLimiter
	health     health.Prober
	addr       string

	// Services (business logic layer) - handlers MUST use these, not the pipeline directly
	backupSvc    *service.BackupService
	recoverySvc  *service.RecoveryService
	integritySvc *service.IntegrityService
	schedulerSvc *service.SchedulerService
}

// NewServer creates a new API server
func NewServer(svc *service.Services, addr string, opts *ServerOptions) *Server {
	if opts == nil {
		opts = &ServerOptions{}
	}
	readTimeout, writeTimeout := opts.ReadTimeout, opts.WriteTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	if writeTimeout <= 0 {
		// restores of large snapshots are slow
		writeTimeout = 5 * time.Minute
	}

	s := &Server{
		addr:         addr,
		health:       opts.Health,
		backupSvc:    svc.Backup,
		recoverySvc:  svc.Recovery,
		integritySvc: svc.Integrity,
		schedulerSvc: svc.Scheduler,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	for _, m := range opts.Mounts {
		mux.Handle(m.Path, m.Handler)
	}

	handler := withCORS(mux, opts.CORSOrigins)
	if opts.RateLimit != nil {
		s.limiter = middleware.NewRateLimiter(opts.RateLimit)
		handler = s.limiter.Middleware(handler)
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      withLogging(handler),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	logging.Info("Starting API server", logging.String("addr", s.addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()
	return s.httpServer.Shutdown(ctx)
}

// Close stops background work such as rate limiter cleanup. Use it when the
// http.Server lifecycle is managed elsewhere.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Addr returns the server's listen address
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HTTPServer exposes the underlying server for lifecycle management.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Warn("Failed to write response", logging.Err(err))
	}
}

func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, ErrorResponse{Success: false, Error: message})
}
