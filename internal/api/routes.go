package api

import (
	"net/http"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/metrics"
)

// registerRoutes sets up all API routes using Go 1.22+ method-based routing
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Health & metrics
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	// Backups
	mux.HandleFunc("POST /api/backup", s.handleTriggerBackup)
	mux.HandleFunc("GET /api/backup", s.handleListBackups)

	// Scheduler control
	mux.HandleFunc("GET /api/backup/scheduler", s.handleSchedulerStatus)
	mux.HandleFunc("POST /api/backup/scheduler", s.handleSchedulerControl)

	// Recovery
	mux.HandleFunc("GET /api/recovery", s.handleListRecovery)
	mux.HandleFunc("POST /api/recovery/validate", s.handleValidateBackup)
	mux.HandleFunc("POST /api/recovery/restore", s.handleRestoreBackup)

	// Integrity verification
	mux.HandleFunc("POST /api/integrity/audit", s.handleRunAudit)
	mux.HandleFunc("GET /api/integrity/history", s.handleAuditHistory)
}
