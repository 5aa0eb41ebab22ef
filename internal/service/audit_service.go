package service

import (
	"context"

	"expensehub/internal/model"
	"expensehub/internal/repository"

	"github.com/google/uuid"
)

// AuditService exposes the company audit trail
type AuditService interface {
	ListCompanyLogs(ctx context.Context, companyID uuid.UUID, page, limit int) ([]model.AuditLog, int64, error)
}

type auditService struct {
	audits repository.AuditRepository
}

func NewAuditService(audits repository.AuditRepository) AuditService {
	return &auditService{audits: audits}
}

func (s *auditService) ListCompanyLogs(ctx context.Context, companyID uuid.UUID, page, limit int) ([]model.AuditLog, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.audits.ListByCompany(ctx, companyID, page, limit)
}
