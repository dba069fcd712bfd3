package api

import (
	"net/http"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/integrity"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/service"
)

const maxHistoryLimit = 100

// handleRunAudit runs an integrity audit now. Findings are reported in the
// body; the audit itself never fails the request.
func (s *Server) handleRunAudit(w http.ResponseWriter, r *http.Request) {
	report := s.integritySvc.Audit(r.Context())
	jsonResponse(w, http.StatusOK, AuditResponseDTO{Success: true, Report: report})
}

// handleAuditHistory returns recent audit reports, newest first
func (s *Server) handleAuditHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := IntQueryParam(w, r, "limit", service.DefaultHistoryLimit, maxHistoryLimit)
	if !ok {
		return
	}

	reports, err := s.integritySvc.History(limit)
	if err != nil {
		logging.Error("Reading integrity history failed", logging.Err(err))
		jsonError(w, http.StatusInternalServerError, "failed to read integrity history")
		return
	}
	if reports == nil {
		reports = []integrity.Report{}
	}
	jsonResponse(w, http.StatusOK, AuditHistoryDTO{Success: true, Reports: reports})
}
