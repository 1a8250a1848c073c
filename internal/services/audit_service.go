package services

import (
	"context"

	"rental-backend/internal/apperror"
	"rental-backend/internal/models"
	"rental-backend/internal/repositories"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

type AuditService struct {
	Repo *repositories.AuditLogRepository
}

func NewAuditService(repo *repositories.AuditLogRepository) *AuditService {
	return &AuditService{Repo: repo}
}

// List returns the owner's own audit trail, newest first.
func (s *AuditService) List(ctx context.Context, ownerID, limit, offset int, action string) ([]*models.AuditLog, error) {
	if limit == 0 {
		limit = defaultAuditLimit
	}
	if limit < 1 || limit > maxAuditLimit {
		return nil, apperror.Validation("Invalid limit",
			apperror.FieldError{Field: "limit", Message: "must be between 1 and 200"})
	}
	if offset < 0 {
		return nil, apperror.Validation("Invalid offset",
			apperror.FieldError{Field: "offset", Message: "must not be negative"})
	}
	return s.Repo.ListByUser(ctx, ownerID, limit, offset, action)
}
