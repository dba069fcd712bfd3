package service

import (
	"context"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recovery"
)

// RecoveryService lists, validates and restores stored snapshots
type RecoveryService struct {
	lister       recovery.Lister
	validator    *recovery.Validator
	orchestrator *recovery.Orchestrator
}

// NewRecoveryService creates a new recovery service
func NewRecoveryService(lister recovery.Lister, validator *recovery.Validator, orchestrator *recovery.Orchestrator) *RecoveryService {
	return &RecoveryService{lister: lister, validator: validator, orchestrator: orchestrator}
}

// List returns restorable copies, newest first.
func (s *RecoveryService) List(ctx context.Context) []recovery.Entry {
	return recovery.ListBackups(ctx, s.lister)
}

// Validate checks the copy at ref without touching the record store.
func (s *RecoveryService) Validate(ctx context.Context, ref string) recovery.ValidationResult {
	return s.validator.Validate(ctx, ref)
}

// Restore validates ref and, when valid, applies it under policy. The restore
// result is nil when validation failed.
func (s *RecoveryService) Restore(ctx context.Context, ref string, policy recovery.Policy) (*recovery.RestoreResult, recovery.ValidationResult) {
	validated := s.validator.Validate(ctx, ref)
	if !validated.IsValid {
		return nil, validated
	}
	return s.orchestrator.Restore(ctx, validated, policy), validated
}
