// Package auth implements the access-token signer: HS256 JWT issuance,
// claims construction from user state, and claim recovery from expired
// tokens for the refresh flow.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/deepdive-club/deepdive-api/internal/common"
	"github.com/deepdive-club/deepdive-api/internal/server/models"
)

// Claims is the signed claim bundle carried by every access token.
// EmailVerified is set to "false" only for accounts whose email is still
// unconfirmed; confirmed accounts carry no marker at all.
type Claims struct {
	jwt.RegisteredClaims
	Email         string   `json:"email,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	EmailVerified string   `json:"email_verified,omitempty"`
}

// Manager signs and verifies access tokens with a shared HMAC secret.
type Manager struct {
	secret   []byte
	issuer   string
	audience string
	validity time.Duration
}

func NewManager(secret []byte, issuer, audience string, validity time.Duration) *Manager {
	return &Manager{secret: secret, issuer: issuer, audience: audience, validity: validity}
}

// BuildClaims assembles claims from current user state: subject, email, one
// entry per role, and the low-trust marker for unconfirmed emails.
func (m *Manager) BuildClaims(user *models.User, roles []string) *Claims {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID,
		},
		Email: user.Email,
		Roles: roles,
	}
	if !user.EmailConfirmed {
		claims.EmailVerified = "false"
	}
	return claims
}

// Generate stamps issuer, audience, issued-at and expiry onto the claims and
// returns the signed token string.
func (m *Manager) Generate(claims *Claims) (string, error) {
	now := time.Now()
	claims.Issuer = m.issuer
	claims.Audience = jwt.ClaimStrings{m.audience}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.validity))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseExpired verifies the signature of an access token while deliberately
// skipping expiry, issuer and audience checks. It exists solely so the
// refresh flow can recover the subject from a token that has already
// expired. Tokens signed with any algorithm other than HS256 are rejected.
func (m *Manager) ParseExpired(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidSignature
	}

	return claims, nil
}

// Parse fully validates an access token (signature, expiry, issuer,
// audience) and returns its claims. Used by the HTTP auth middleware.
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidSignature
	}

	return claims, nil
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, common.ErrInvalidSignature
	}
	return m.secret, nil
}
