// Package passwordresets declares the repository contract for password
// reset requests.
package passwordresets

import (
	"context"
	"time"

	"github.com/deepdive-club/deepdive-api/internal/server/models"
)

type Repository interface {
	// Add stores a new reset row for userID with the given opaque token and
	// expiry of now+validity, in Requested status.
	Add(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find returns the reset row matching (userID, token), or common.ErrNotFound.
	Find(ctx context.Context, userID string, token string) (*models.PasswordReset, error)

	// MarkChanged moves a Requested row to PwdChanged. It returns whether a
	// row was updated; false means the row was already consumed.
	MarkChanged(ctx context.Context, userID string, token string) (bool, error)
}
