package repository

import (
	"context"

	"safeday/backend/internal/lookup/domain"
)

// Repository reads the site and department reference lists.
type Repository interface {
	// ListSites returns all non-deleted sites ordered by name.
	ListSites(ctx context.Context) ([]domain.Site, error)
	// ListDepartments returns departments ordered by name, limited to the
	// given site when siteID is nonzero.
	ListDepartments(ctx context.Context, siteID int64) ([]domain.Department, error)
}
