// Package refreshtokens provides a PostgreSQL-backed implementation of the
// refresh token ledger.
package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/deepdive-club/deepdive-api/internal/common"
	"github.com/deepdive-club/deepdive-api/internal/dbx"
	"github.com/deepdive-club/deepdive-api/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new active ledger row with an expiry of now+validity.
func (r *PostgresRepository) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, userID, token, time.Now().Add(validity)); err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

// IsValid reports whether an active row matches (userID, token).
func (r *PostgresRepository) IsValid(ctx context.Context, userID string, token string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM refresh_tokens
			WHERE user_id = $1 AND token = $2 AND revoked IS NULL AND expires_at > now()
		)
	`
	var valid bool
	if err := r.db.QueryRowContext(ctx, query, userID, token).Scan(&valid); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return valid, nil
}

// Revoke rotates the old token out in one conditional update. The WHERE
// clause only matches a still-active row, so concurrent refreshes using the
// same token can revoke it at most once; the loser sees zero rows affected.
func (r *PostgresRepository) Revoke(ctx context.Context, userID string, oldToken string, newToken string) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = now(), replaced_by_token = $3
		WHERE user_id = $1 AND token = $2 AND revoked IS NULL AND expires_at > now()
	`
	res, err := r.db.ExecContext(ctx, query, userID, oldToken, newToken)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affected > 0, nil
}

// Find returns the ledger row for (userID, token).
// If not found, it returns common.ErrNotFound.
func (r *PostgresRepository) Find(ctx context.Context, userID string, token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token, created_at, expires_at, revoked, replaced_by_token
		FROM refresh_tokens
		WHERE user_id = $1 AND token = $2
	`
	rt := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, userID, token).
		Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.CreatedAt, &rt.Expires, &rt.Revoked, &rt.ReplacedByToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rt, nil
}
