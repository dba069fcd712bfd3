package api

import (
	"net/http"
)

// handleSchedulerStatus returns the scheduler status
func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, SchedulerResponseDTO{
		Success: true,
		Status:  ToSchedulerStatusDTO(s.schedulerSvc.Status()),
	})
}

// handleSchedulerControl starts or stops the timers, or forces an emergency backup
func (s *Server) handleSchedulerControl(w http.ResponseWriter, r *http.Request) {
	var body SchedulerControlBody
	if err := decodeAndValidate(w, r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.schedulerSvc.Control(r.Context(), body.Action)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := SchedulerResponseDTO{
		Success: res.Success,
		Message: res.Message,
		Status:  ToSchedulerStatusDTO(res.Status),
	}
	if res.Backup != nil {
		b := ToBackupResultDTO(res.Backup)
		resp.Backup = &b
	}
	jsonResponse(w, http.StatusOK, resp)
}
