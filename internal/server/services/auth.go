// Package services contains server-side business logic. This file implements
// AuthService: login, registration, password validation and the
// refresh-token rotation flow.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/deepdive-club/deepdive-api/internal/common"
	"github.com/deepdive-club/deepdive-api/internal/dbx"
	"github.com/deepdive-club/deepdive-api/internal/logging"
	"github.com/deepdive-club/deepdive-api/internal/server/auth"
	"github.com/deepdive-club/deepdive-api/internal/server/models"
	"github.com/deepdive-club/deepdive-api/internal/server/repositories/refreshtokens"
	"github.com/deepdive-club/deepdive-api/internal/server/repositories/repomanager"
	"github.com/deepdive-club/deepdive-api/internal/server/repositories/users"
)

// refreshTokenValidity is fixed at 7 days and deliberately not configurable.
const refreshTokenValidity = 7 * 24 * time.Hour

// defaultRole is assigned to every new account until an admin approves the
// registration request.
const defaultRole = "CandidateUser"

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterInput carries the profile fields accepted at registration.
type RegisterInput struct {
	UserName  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthService orchestrates the credential store, the token signer and the
// refresh-token ledger:
//   - Login: verify credentials and mint a token pair
//   - Register: create the account, its approval request, and a token pair
//   - Refresh: rotate refresh tokens and mint new access tokens
//   - ValidatePassword / ConfirmEmail: read-mostly helper flows
type AuthService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	tokens *auth.Manager
	logger logging.Logger
}

// NewAuthService constructs an AuthService using repositories, the token
// signer and an injected logger.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.Manager, logger logging.Logger) *AuthService {
	return &AuthService{
		db:     db,
		repos:  m,
		tokens: tokens,
		logger: logger.With("module", "auth_service"),
	}
}

// Login verifies credentials and returns a fresh token pair. The lookup
// bypasses the soft-delete filter so a disabled account fails with
// ErrAccountDeleted rather than the generic ErrInvalidCredentials; an absent
// user and a wrong password are indistinguishable. Token issuance and
// storage run in one transaction.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByEmailAny(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Warn(ctx, "invalid authentication attempt", "email", email)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	if user.Deleted {
		s.logger.Warn(ctx, "deleted user tried logging in", "email", email)
		return nil, common.ErrAccountDeleted
	}
	if !users.CheckPassword(user.PasswordHash, password) {
		s.logger.Warn(ctx, "invalid authentication attempt", "email", email)
		return nil, common.ErrInvalidCredentials
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user, tx)
		return genErr
	}); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user authenticated", "email", email)
	return pair, nil
}

// Register creates the account, assigns the default role, files a
// registration request in Requested status and issues a token pair. The
// username check runs before the email check; the first match wins. All
// steps share one transaction, so a failure anywhere rolls back everything.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*TokenPair, error) {
	var pair *TokenPair

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		usersTx := s.repos.Users(tx)

		if _, err := usersTx.GetByUserName(ctx, input.UserName); err == nil {
			return common.ErrUsernameTaken
		} else if !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("error searching user: %w", err)
		}
		if _, err := usersTx.GetByEmail(ctx, input.Email); err == nil {
			return common.ErrEmailTaken
		} else if !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("error searching user: %w", err)
		}

		hash, err := users.HashPassword(input.Password)
		if err != nil {
			return common.ErrInternal
		}

		user, err := usersTx.Create(ctx, &models.User{
			UserName:     input.UserName,
			Email:        input.Email,
			PasswordHash: hash,
			FirstName:    input.FirstName,
			LastName:     input.LastName,
		})
		if err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}

		if err := usersTx.AddToRole(ctx, user.ID, defaultRole); err != nil {
			return fmt.Errorf("error assigning role: %w", err)
		}

		if err := s.repos.RegistrationRequests(tx).Add(ctx, user.ID); err != nil {
			return fmt.Errorf("error creating registration request: %w", err)
		}

		pair, err = s.generateTokenPair(ctx, user, tx)
		return err
	}); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "username", input.UserName)
	return pair, nil
}

// Refresh rotates a refresh token. The subject comes from the expired access
// token (signature still verified); claims are rebuilt from current user
// state so role and email-confirmation changes since the original login are
// picked up. The new token is stored and the old one revoked atomically; a
// revocation that matches no row means the old token was already rotated,
// which is logged as suspected replay but does not fail the call.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ParseExpired(accessToken)
	if err != nil {
		return nil, err
	}
	userID := claims.Subject

	user, err := s.repos.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Warn(ctx, "refresh for unknown user", "user_id", userID)
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	valid, err := s.repos.RefreshTokens(s.db).IsValid(ctx, userID, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("error checking refresh token: %w", err)
	}
	if !valid {
		s.logger.Warn(ctx, "invalid refresh token", "user_id", userID)
		return nil, common.ErrInvalidRefreshToken
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user, tx)
		if genErr != nil {
			return genErr
		}

		revoked, revErr := s.repos.RefreshTokens(tx).Revoke(ctx, userID, refreshToken, pair.RefreshToken)
		if revErr != nil {
			return fmt.Errorf("error revoking refresh token: %w", revErr)
		}
		if !revoked {
			// the conditional update matched no active row: the token was
			// rotated concurrently between IsValid and here
			s.logger.Warn(ctx, "refresh token already rotated, possible replay", "user_id", userID)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "tokens rotated", "user_id", userID)
	return pair, nil
}

// ValidatePassword is a read-only credential check used for
// re-authentication before sensitive changes. It mutates nothing.
func (s *AuthService) ValidatePassword(ctx context.Context, email, password string) error {
	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrUserNotFound
		}
		return fmt.Errorf("error searching user: %w", err)
	}
	if !users.CheckPassword(user.PasswordHash, password) {
		return common.ErrInvalidCredentials
	}
	return nil
}

// ConfirmEmail flips the email-confirmed flag for the user identified by
// both id and email. Confirming twice fails with ErrEmailAlreadyConfirmed.
func (s *AuthService) ConfirmEmail(ctx context.Context, userID, email string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		usersTx := s.repos.Users(tx)

		user, err := usersTx.GetByID(ctx, userID)
		if err != nil || user.Email != email {
			if err != nil && !errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("error searching user: %w", err)
			}
			return common.ErrUserNotFound
		}
		if user.EmailConfirmed {
			return common.ErrEmailAlreadyConfirmed
		}
		return usersTx.SetEmailConfirmed(ctx, userID)
	})
}

// generateTokenPair builds claims from current user state, signs an access
// token and appends a new refresh token to the ledger via tx.
func (s *AuthService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	roles, err := s.repos.Users(tx).GetRoles(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading roles: %w", err)
	}

	access, err := s.tokens.Generate(s.tokens.BuildClaims(user, roles))
	if err != nil {
		return nil, common.ErrInternal
	}

	refresh, err := refreshtokens.GenerateToken()
	if err != nil {
		return nil, common.ErrInternal
	}

	if err := s.repos.RefreshTokens(tx).Create(ctx, user.ID, refresh, refreshTokenValidity); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
