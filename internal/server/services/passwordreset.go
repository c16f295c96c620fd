package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deepdive-club/deepdive-api/internal/common"
	"github.com/deepdive-club/deepdive-api/internal/dbx"
	"github.com/deepdive-club/deepdive-api/internal/logging"
	"github.com/deepdive-club/deepdive-api/internal/server/models"
	"github.com/deepdive-club/deepdive-api/internal/server/repositories/repomanager"
	"github.com/deepdive-club/deepdive-api/internal/server/repositories/users"
)

// resetValidity is how long a password-reset link stays usable.
const resetValidity = 10 * time.Minute

// Mailer delivers the reset link to the user. Actual email transport is an
// external service; implementations only need to hand the link over.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email string, userID string, token string) error
}

// PasswordResetService manages the reset ledger: request, validate, complete.
type PasswordResetService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	mailer Mailer
	logger logging.Logger
}

func NewPasswordResetService(db *sql.DB, m repomanager.RepositoryManager, mailer Mailer, logger logging.Logger) *PasswordResetService {
	return &PasswordResetService{
		db:     db,
		repos:  m,
		mailer: mailer,
		logger: logger.With("module", "password_reset_service"),
	}
}

// RequestReset files a reset row and asks the mailer to deliver the link.
// An unknown email is silently ignored so the endpoint cannot be used to
// probe which addresses have accounts.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Warn(ctx, "password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("error searching user: %w", err)
	}

	token := uuid.NewString()
	if err := s.repos.PasswordResets(s.db).Add(ctx, user.ID, token, resetValidity); err != nil {
		return fmt.Errorf("error storing password reset: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.ID, token); err != nil {
		s.logger.Error(ctx, "failed to send password reset", "user_id", user.ID, "error", err.Error())
		return common.ErrInternal
	}

	s.logger.Info(ctx, "password reset requested", "user_id", user.ID)
	return nil
}

// ValidateReset checks that the row exists, has not expired and has not
// already been used.
func (s *PasswordResetService) ValidateReset(ctx context.Context, userID, token string) error {
	reset, err := s.repos.PasswordResets(s.db).Find(ctx, userID, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrResetInvalid
		}
		return fmt.Errorf("error searching password reset: %w", err)
	}
	if reset.Status != models.PasswordResetRequested || time.Now().After(reset.ExpireOn) {
		return common.ErrResetInvalid
	}
	return nil
}

// CompleteReset consumes the reset row and replaces the password hash in one
// transaction. The conditional status update guarantees a token completes a
// reset at most once.
func (s *PasswordResetService) CompleteReset(ctx context.Context, userID, token, newPassword string) error {
	hash, err := users.HashPassword(newPassword)
	if err != nil {
		return common.ErrInternal
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		changed, err := s.repos.PasswordResets(tx).MarkChanged(ctx, userID, token)
		if err != nil {
			return fmt.Errorf("error consuming password reset: %w", err)
		}
		if !changed {
			return common.ErrResetInvalid
		}
		return s.repos.Users(tx).UpdatePasswordHash(ctx, userID, hash)
	}); err != nil {
		return err
	}

	s.logger.Info(ctx, "password reset completed", "user_id", userID)
	return nil
}
