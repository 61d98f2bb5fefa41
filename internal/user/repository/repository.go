package repository

import (
	"context"
	"errors"

	"safeday/backend/internal/user/domain"
)

// ErrDataIntegrity is returned when the natural key resolves to more than one
// user. The tuple is contractually unique; multiple matches are a data fault,
// not a business error.
var ErrDataIntegrity = errors.New("natural key matched multiple users")

// Repository defines read access to users. The user table is owned by the
// user-management side; the authentication core only reads it, except for
// the password-change path.
type Repository interface {
	// GetByNaturalKey returns the single non-deleted user matching
	// (name, siteID, departmentID). Name matching is case and surrounding
	// whitespace insensitive. Returns nil when no user matches and
	// ErrDataIntegrity when more than one does.
	GetByNaturalKey(ctx context.Context, name string, siteID, departmentID int64) (*domain.User, error)

	// GetByID returns the non-deleted user with its current role name, or nil.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// UpdatePassword replaces the user's password hash and clears the
	// must-change-password flag.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}
