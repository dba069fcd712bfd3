package api

import (
	"strings"
	"time"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/backup"
	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/integrity"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recovery"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/scheduler"
)

// ============================================================================
// Request bodies
// ============================================================================

// SchedulerControlBody is the request body for POST /api/backup/scheduler
type SchedulerControlBody struct {
	Action string `json:"action" validate:"required,oneof=start stop force"`
}

// BackupPathBody is the request body for POST /api/recovery/validate
type BackupPathBody struct {
	BackupPath string `json:"backupPath" validate:"required"`
}

// RestoreBody is the request body for POST /api/recovery/restore
type RestoreBody struct {
	BackupPath        string   `json:"backupPath" validate:"required"`
	OverwriteExisting bool     `json:"overwriteExisting"`
	Include           []string `json:"include" validate:"omitempty,dive,required,collection"`
}

// ============================================================================
// Backup DTOs
// ============================================================================

// BackupRefDTO identifies the primary copy of a backup
type BackupRefDTO struct {
	ID       string `json:"id"`
	FilePath string `json:"filePath"`
	Size     int64  `json:"size"`
}

// LocationFailureDTO reports one location that could not be written
type LocationFailureDTO struct {
	Location string `json:"location"`
	Error    string `json:"error"`
}

// BackupResultDTO is the response to a backup run. Degraded tiers still
// answer with HTTP 200; Status and Warning carry the outcome.
type BackupResultDTO struct {
	Success      bool                 `json:"success"`
	Status       string               `json:"status"`
	Warning      bool                 `json:"warning,omitempty"`
	Message      string               `json:"message,omitempty"`
	Error        string               `json:"error,omitempty"`
	Timestamp    time.Time            `json:"timestamp"`
	TotalRecords int                  `json:"totalRecords"`
	Counts       map[string]int       `json:"perCollectionCounts,omitempty"`
	Backup       *BackupRefDTO        `json:"backup,omitempty"`
	Copies       []string             `json:"copies,omitempty"`
	Failures     []LocationFailureDTO `json:"failedLocations,omitempty"`
}

// ToBackupResultDTO converts a cascade result
func ToBackupResultDTO(res *backup.Result) BackupResultDTO {
	dto := BackupResultDTO{
		Success:      res.Success,
		Status:       string(res.Status),
		Warning:      res.Warning,
		Message:      res.Message,
		Error:        apperrors.SanitizeString(res.Error),
		Timestamp:    res.Timestamp,
		TotalRecords: res.TotalRecords,
		Counts:       res.Counts,
	}
	if p, ok := res.Primary(); ok {
		dto.Backup = &BackupRefDTO{ID: res.SnapshotID, FilePath: p.Ref, Size: p.Size}
	}
	for _, c := range res.Copies {
		dto.Copies = append(dto.Copies, c.Ref)
	}
	for _, f := range res.Failures {
		dto.Failures = append(dto.Failures, LocationFailureDTO{
			Location: f.Location,
			Error:    apperrors.SanitizeError(f.Err),
		})
	}
	return dto
}

// BackupListItemDTO is one stored backup
type BackupListItemDTO struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Location  string    `json:"location"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	Type      string    `json:"type"`
}

// BackupListDTO is the response to GET /api/backup
type BackupListDTO struct {
	Success bool                `json:"success"`
	Backups []BackupListItemDTO `json:"backups"`
}

// ToBackupListDTO converts recovery entries
func ToBackupListDTO(entries []recovery.Entry) BackupListDTO {
	items := make([]BackupListItemDTO, len(entries))
	for i, e := range entries {
		items[i] = BackupListItemDTO{
			ID:        backupID(e.Filename),
			Filename:  e.Filename,
			Path:      e.Path,
			Location:  e.Location,
			Size:      e.Size,
			CreatedAt: e.Created,
			Type:      string(e.Kind),
		}
	}
	return BackupListDTO{Success: true, Backups: items}
}

// backupID strips the document and codec extensions from a stored file name.
func backupID(filename string) string {
	id, _, _ := strings.Cut(filename, ".json")
	return id
}

// ============================================================================
// Scheduler DTOs
// ============================================================================

// SchedulerStatusDTO is the operator view of the scheduler
type SchedulerStatusDTO struct {
	IsRunning      bool            `json:"isRunning"`
	LastBackupTime *time.Time      `json:"lastBackupTime"`
	NextBackupIn   *string         `json:"nextBackupIn"`
	Tasks          []TaskStatusDTO `json:"tasks,omitempty"`
}

// TaskStatusDTO is the state of one scheduled task
type TaskStatusDTO struct {
	Name        string     `json:"name"`
	Schedule    string     `json:"schedule"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	LastOutcome string     `json:"lastOutcome,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
	Runs        int        `json:"runs"`
	Skips       int        `json:"skips"`
}

// SchedulerResponseDTO is the response to scheduler status and control requests
type SchedulerResponseDTO struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Status  SchedulerStatusDTO `json:"status"`
	Backup  *BackupResultDTO   `json:"backup,omitempty"`
}

// ToSchedulerStatusDTO converts a scheduler status
func ToSchedulerStatusDTO(st scheduler.Status) SchedulerStatusDTO {
	dto := SchedulerStatusDTO{IsRunning: st.IsRunning, LastBackupTime: st.LastBackupTime}
	if st.NextBackupIn != "" {
		next := st.NextBackupIn
		dto.NextBackupIn = &next
	}
	for _, t := range st.Tasks {
		td := TaskStatusDTO{
			Name:        t.Name,
			Schedule:    t.Schedule,
			LastOutcome: t.LastOutcome,
			LastError:   apperrors.SanitizeString(t.LastError),
			Runs:        t.Runs,
			Skips:       t.Skips,
		}
		td.LastRun = timePtr(t.LastRun)
		td.NextRun = timePtr(t.NextRun)
		dto.Tasks = append(dto.Tasks, td)
	}
	return dto
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// ============================================================================
// Recovery DTOs
// ============================================================================

// ValidationDataDTO summarizes a valid backup
type ValidationDataDTO struct {
	ID                  string         `json:"id"`
	Type                string         `json:"type"`
	Timestamp           time.Time      `json:"timestamp"`
	TotalRecords        int            `json:"totalRecords"`
	PerCollectionCounts map[string]int `json:"perCollectionCounts"`
}

// ValidationResponseDTO is the response to POST /api/recovery/validate
type ValidationResponseDTO struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Data    *ValidationDataDTO `json:"data,omitempty"`
}

// ToValidationResponseDTO converts a validation result
func ToValidationResponseDTO(v recovery.ValidationResult) ValidationResponseDTO {
	if !v.IsValid {
		return ValidationResponseDTO{Success: false, Message: apperrors.SanitizeString(v.Error)}
	}
	snap := v.Snapshot
	return ValidationResponseDTO{
		Success: true,
		Message: "backup is valid",
		Data: &ValidationDataDTO{
			ID:                  snap.ID,
			Type:                string(snap.Kind),
			Timestamp:           snap.Timestamp,
			TotalRecords:        snap.TotalRecords,
			PerCollectionCounts: snap.Counts(),
		},
	}
}

// RestoreResponseDTO is the response to POST /api/recovery/restore
type RestoreResponseDTO struct {
	Success           bool           `json:"success"`
	Message           string         `json:"message"`
	Recovered         map[string]int `json:"recovered"`
	Failed            map[string]int `json:"failed,omitempty"`
	Skipped           map[string]int `json:"skipped,omitempty"`
	PreRecoveryBackup string         `json:"preRecoveryBackup,omitempty"`
}

// ToRestoreResponseDTO converts a restore result
func ToRestoreResponseDTO(res *recovery.RestoreResult) RestoreResponseDTO {
	return RestoreResponseDTO{
		Success:           res.Success,
		Message:           apperrors.SanitizeString(res.Message),
		Recovered:         res.RecoveredCounts,
		Failed:            nonEmpty(res.FailedCounts),
		Skipped:           nonEmpty(res.SkippedCounts),
		PreRecoveryBackup: res.PreRestoreSnapshotRef,
	}
}

func nonEmpty(m map[string]int) map[string]int {
	if len(m) == 0 {
		return nil
	}
	return m
}

// ============================================================================
// Integrity DTOs
// ============================================================================

// AuditResponseDTO is the response to POST /api/integrity/audit
type AuditResponseDTO struct {
	Success bool              `json:"success"`
	Report  *integrity.Report `json:"report"`
}

// AuditHistoryDTO is the response to GET /api/integrity/history
type AuditHistoryDTO struct {
	Success bool               `json:"success"`
	Reports []integrity.Report `json:"reports"`
}
