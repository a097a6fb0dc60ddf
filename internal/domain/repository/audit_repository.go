package repository

import (
	"context"

	"github.com/oksasatya/prevently-api/internal/domain/entity"
)

// AuditRepository stores account-level audit events.
type AuditRepository interface {
	Insert(ctx context.Context, a *entity.AuditLog) error
	ListByUser(ctx context.Context, userID string, limit int) ([]entity.AuditLog, error)
}
