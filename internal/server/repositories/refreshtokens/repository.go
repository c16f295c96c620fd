// Package refreshtokens declares the contract for the append-only refresh
// token ledger used by the authentication flow.
package refreshtokens

import (
	"context"
	"time"

	"github.com/deepdive-club/deepdive-api/internal/common"
	"github.com/deepdive-club/deepdive-api/internal/server/models"
)

// tokenBytes is the amount of raw entropy in an opaque refresh token.
const tokenBytes = 32

// GenerateToken returns a new opaque refresh token: 32 cryptographically
// random bytes, base64-encoded.
func GenerateToken() (string, error) {
	return common.MakeRandBase64String(tokenBytes)
}

// Repository defines operations for issuing, checking and rotating refresh
// tokens. Rows are never deleted; rotation marks the old row revoked and
// records its replacement, forming a traceable chain.
type Repository interface {
	// Create appends a new active entry for userID with an expiry of
	// now+validity. It does not deduplicate: a user may hold many
	// simultaneously active tokens, one per session or device.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// IsValid reports whether a row matching (userID, token) exists that is
	// neither revoked nor expired.
	IsValid(ctx context.Context, userID string, token string) (bool, error)

	// Revoke marks the active row matching (userID, oldToken) as revoked now
	// and records newToken as its replacement, in a single conditional
	// update. It returns whether a row was actually revoked; false means the
	// token was already rotated, expired or never existed. Callers should
	// treat false as a signal worth auditing (possible token replay), not as
	// an error.
	Revoke(ctx context.Context, userID string, oldToken string, newToken string) (bool, error)

	// Find returns the ledger row for (userID, token), or common.ErrNotFound.
	Find(ctx context.Context, userID string, token string) (*models.RefreshToken, error)
}
