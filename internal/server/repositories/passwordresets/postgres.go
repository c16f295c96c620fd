package passwordresets

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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Add(ctx context.Context, userID string, token string, validity time.Duration) error {
	query := `
		INSERT INTO password_resets (user_id, token, expire_on, status)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, userID, token,
		time.Now().Add(validity), models.PasswordResetRequested); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, userID string, token string) (*models.PasswordReset, error) {
	query := `
		SELECT id, user_id, token, created_on, expire_on, status
		FROM password_resets
		WHERE user_id = $1 AND token = $2
	`
	reset := &models.PasswordReset{}
	err := r.db.QueryRowContext(ctx, query, userID, token).
		Scan(&reset.ID, &reset.UserID, &reset.Token, &reset.CreatedOn, &reset.ExpireOn, &reset.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return reset, nil
}

// MarkChanged consumes a reset row with a single conditional update so a
// token can complete a reset at most once.
func (r *PostgresRepository) MarkChanged(ctx context.Context, userID string, token string) (bool, error) {
	query := `
		UPDATE password_resets
		SET status = $3
		WHERE user_id = $1 AND token = $2 AND status = $4 AND expire_on > now()
	`
	res, err := r.db.ExecContext(ctx, query, userID, token,
		models.PasswordResetChanged, models.PasswordResetRequested)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affected > 0, nil
}
