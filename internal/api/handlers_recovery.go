package api

import (
	"errors"
	"net/http"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recovery"
)

// handleListRecovery lists restorable copies, newest first
func (s *Server) handleListRecovery(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.recoverySvc.List(r.Context()))
}

// handleValidateBackup checks a stored copy without touching the record store
func (s *Server) handleValidateBackup(w http.ResponseWriter, r *http.Request) {
	var body BackupPathBody
	if err := decodeAndValidate(w, r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	v := s.recoverySvc.Validate(r.Context(), body.BackupPath)
	jsonResponse(w, validationStatus(v), ToValidationResponseDTO(v))
}

// handleRestoreBackup validates a copy, takes a pre-recovery backup and applies it
func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	var body RestoreBody
	if err := decodeAndValidate(w, r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, v := s.recoverySvc.Restore(r.Context(), body.BackupPath, recovery.Policy{
		OverwriteExisting: body.OverwriteExisting,
		Include:           body.Include,
	})
	if res == nil {
		jsonResponse(w, validationStatus(v), ToValidationResponseDTO(v))
		return
	}
	if !res.Success {
		logging.Warn("Restore failed", logging.String("path", body.BackupPath), logging.Err(res.Err))
	}
	jsonResponse(w, restoreStatus(res), ToRestoreResponseDTO(res))
}

func validationStatus(v recovery.ValidationResult) int {
	switch {
	case v.IsValid:
		return http.StatusOK
	case v.NotFound():
		return http.StatusNotFound
	}
	return http.StatusUnprocessableEntity
}

func restoreStatus(res *recovery.RestoreResult) int {
	if res.Success {
		return http.StatusOK
	}
	var preErr *apperrors.PreRestoreBackupError
	switch {
	case errors.Is(res.Err, apperrors.ErrRestoreInProgress):
		return http.StatusConflict
	case errors.As(res.Err, &preErr):
		return http.StatusInternalServerError
	case apperrors.IsConnectivity(res.Err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
