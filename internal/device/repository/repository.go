package repository

import (
	"context"

	"safeday/backend/internal/device/domain"
)

// Repository defines persistence for device push bindings.
type Repository interface {
	// Upsert records or refreshes the push address for (userID, deviceID).
	Upsert(ctx context.Context, b *domain.Binding) error
	// ListByUser returns all bindings for the user, newest first. Consumed by
	// the notification fan-out collaborator.
	ListByUser(ctx context.Context, userID int64) ([]*domain.Binding, error)
}
