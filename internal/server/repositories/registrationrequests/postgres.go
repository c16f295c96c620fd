package registrationrequests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) Add(ctx context.Context, userID string) error {
	query := `
		INSERT INTO registration_requests (user_id, status)
		VALUES ($1, $2)
	`
	if _, err := r.db.ExecContext(ctx, query, userID, models.RegistrationRequested); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.RegistrationRequest, error) {
	query := `
		SELECT id, user_id, status, admin_comment, created_on, edited_on, approved_or_denied_on
		FROM registration_requests
		WHERE user_id = $1
	`
	req := &models.RegistrationRequest{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&req.ID, &req.UserID, &req.Status, &req.AdminComment,
			&req.CreatedOn, &req.EditedOn, &req.ApprovedOrDeniedOn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return req, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, requestID int64, status models.RegistrationStatus, adminComment *string) error {
	// approved_or_denied_on is only stamped for terminal decisions
	query := `
		UPDATE registration_requests
		SET status = $2,
		    admin_comment = $3,
		    edited_on = now(),
		    approved_or_denied_on = CASE WHEN $2 IN ($4, $5) THEN now() ELSE approved_or_denied_on END
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, requestID, status, adminComment,
		models.RegistrationApproved, models.RegistrationDenied)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}
