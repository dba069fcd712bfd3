package rpc

import (
	"time"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/integrity"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recovery"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/scheduler"
)

// ============================================================================
// Backups
// ============================================================================

type TriggerBackupRequest struct{}

type TriggerBackupResponse struct {
	Success      bool           `json:"success"`
	Status       string         `json:"status"`
	Warning      bool           `json:"warning,omitempty"`
	Message      string         `json:"message,omitempty"`
	Error        string         `json:"error,omitempty"`
	SnapshotID   string         `json:"snapshotId,omitempty"`
	FilePath     string         `json:"filePath,omitempty"`
	Size         int64          `json:"size,omitempty"`
	TotalRecords int            `json:"totalRecords"`
	Counts       map[string]int `json:"perCollectionCounts,omitempty"`
}

type ListBackupsRequest struct {
	// Limit caps the number of entries; zero returns all.
	Limit int `json:"limit,omitempty"`
}

type ListBackupsResponse struct {
	Backups []recovery.Entry `json:"backups"`
}

// ============================================================================
// Scheduler
// ============================================================================

type ControlSchedulerRequest struct {
	// Action is start, stop or force; empty only reads the status.
	Action string `json:"action,omitempty"`
}

type ControlSchedulerResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Status  scheduler.Status `json:"status"`
}

// ============================================================================
// Recovery
// ============================================================================

type ValidateBackupRequest struct {
	BackupPath string `json:"backupPath"`
}

type ValidateBackupResponse struct {
	Valid        bool           `json:"valid"`
	Message      string         `json:"message"`
	SnapshotID   string         `json:"snapshotId,omitempty"`
	Timestamp    *time.Time     `json:"timestamp,omitempty"`
	TotalRecords int            `json:"totalRecords,omitempty"`
	Counts       map[string]int `json:"perCollectionCounts,omitempty"`
}

type RestoreBackupRequest struct {
	BackupPath        string   `json:"backupPath"`
	OverwriteExisting bool     `json:"overwriteExisting"`
	Include           []string `json:"include,omitempty"`
}

type RestoreBackupResponse struct {
	Success           bool           `json:"success"`
	Message           string         `json:"message"`
	Recovered         map[string]int `json:"recovered"`
	Failed            map[string]int `json:"failed,omitempty"`
	Skipped           map[string]int `json:"skipped,omitempty"`
	PreRecoveryBackup string         `json:"preRecoveryBackup"`
}

// ============================================================================
// Integrity
// ============================================================================

type RunAuditRequest struct{}

type RunAuditResponse struct {
	Report *integrity.Report `json:"report"`
}
