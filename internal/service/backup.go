package service

import (
	"context"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/backup"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recovery"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/snapshot"
)

// BackupRunner runs the fallback cascade.
type BackupRunner interface {
	Run(ctx context.Context, kind snapshot.Kind, trigger backup.Trigger) *backup.Result
}

// BackupService handles manual backups and backup listing
type BackupService struct {
	runner BackupRunner
	lister recovery.Lister
}

// NewBackupService creates a new backup service
func NewBackupService(runner BackupRunner, lister recovery.Lister) *BackupService {
	return &BackupService{runner: runner, lister: lister}
}

// Trigger runs a manual backup. The result is never nil; callers inspect
// Status and Success instead of an error.
func (s *BackupService) Trigger(ctx context.Context) *backup.Result {
	return s.runner.Run(ctx, snapshot.KindManual, backup.TriggerManual)
}

// List returns every stored copy across all locations, newest first.
func (s *BackupService) List(ctx context.Context) []recovery.Entry {
	return recovery.ListBackups(ctx, s.lister)
}
