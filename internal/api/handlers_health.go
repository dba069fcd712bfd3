package api

import (
	"net/http"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
)

// handleHealth reports liveness of the service and, when configured, the record store
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Probe(r.Context()); err != nil {
			jsonResponse(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  apperrors.SanitizeError(err),
			})
			return
		}
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
