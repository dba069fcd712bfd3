package api

import (
	"net/http"
)

// handleTriggerBackup runs a manual backup. Every tier answers 200; the body
// carries the status.
func (s *Server) handleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	res := s.backupSvc.Trigger(r.Context())
	jsonResponse(w, http.StatusOK, ToBackupResultDTO(res))
}

// handleListBackups lists stored backups across all locations
func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, ToBackupListDTO(s.backupSvc.List(r.Context())))
}
