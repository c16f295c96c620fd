package models

import "time"

// RefreshToken is one row of the append-only refresh token ledger. A token is
// never deleted; rotation sets Revoked and ReplacedByToken on the old row.
type RefreshToken struct {
	ID              int64
	UserID          string
	Token           string
	CreatedAt       time.Time
	Expires         time.Time
	Revoked         *time.Time
	ReplacedByToken *string
}

// IsActive reports whether the token can still be redeemed.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return t.Revoked == nil && now.Before(t.Expires)
}
