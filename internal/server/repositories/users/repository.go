// Package users declares the credential-store contract: user records,
// password hashes and role assignments.
package users

import (
	"context"

	"github.com/deepdive-club/deepdive-api/internal/server/models"
)

// Repository defines operations over persisted user accounts.
//
// GetByEmail, GetByUserName and GetByID exclude soft-deleted accounts.
// GetByEmailAny is the narrow raw accessor that bypasses the deleted filter;
// it exists so the login path can distinguish a disabled account from an
// unknown one, and for admin re-enable flows.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByEmailAny(ctx context.Context, email string) (*models.User, error)
	GetByUserName(ctx context.Context, userName string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetRoles(ctx context.Context, userID string) ([]string, error)
	AddToRole(ctx context.Context, userID string, role string) error
	SetEmailConfirmed(ctx context.Context, userID string) error
	UpdatePasswordHash(ctx context.Context, userID string, hash string) error
	SetDeleted(ctx context.Context, userID string, deleted bool) error
}
