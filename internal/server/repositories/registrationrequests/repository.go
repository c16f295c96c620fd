// Package registrationrequests declares the repository contract for the
// admin approval workflow rows created at registration.
package registrationrequests

import (
	"context"

	"github.com/deepdive-club/deepdive-api/internal/server/models"
)

type Repository interface {
	// Add creates a new request for userID in Requested status.
	Add(ctx context.Context, userID string) error

	// GetByUserID returns the request for a user, or common.ErrNotFound.
	GetByUserID(ctx context.Context, userID string) (*models.RegistrationRequest, error)

	// UpdateStatus moves the request to a new status, recording the
	// admin comment and the decision timestamp where applicable.
	UpdateStatus(ctx context.Context, requestID int64, status models.RegistrationStatus, adminComment *string) error
}
