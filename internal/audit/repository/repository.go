package repository

import (
	"context"

	"safeday/backend/internal/audit/domain"
)

// Repository defines persistence for auth audit events.
type Repository interface {
	Create(ctx context.Context, e *domain.AuthEvent) error
}
