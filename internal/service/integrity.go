package service

import (
	"context"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/integrity"
)

// DefaultHistoryLimit is used when a caller asks for history without a limit.
const DefaultHistoryLimit = 10

// IntegrityService runs audits on demand and serves report history
type IntegrityService struct {
	auditor *integrity.Auditor
}

// NewIntegrityService creates a new integrity service
func NewIntegrityService(auditor *integrity.Auditor) *IntegrityService {
	return &IntegrityService{auditor: auditor}
}

// Audit runs one audit. It never fails; problems are reported as issues.
func (s *IntegrityService) Audit(ctx context.Context) *integrity.Report {
	return s.auditor.Audit(ctx)
}

// History returns up to limit reports, newest first.
func (s *IntegrityService) History(limit int) ([]integrity.Report, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.auditor.History(limit)
}
