package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

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

func (r *PostgresRepository) Add(ctx context.Context, doc *models.RegisterDocument) (*models.RegisterDocument, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	query := `
		INSERT INTO register_documents (id, user_id, document_name, storage_key, document_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_on
	`
	err := r.db.QueryRowContext(ctx, query,
		doc.ID, doc.UserID, doc.DocumentName, doc.StorageKey, doc.DocumentType).
		Scan(&doc.CreatedOn)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string, userID string) (*models.RegisterDocument, error) {
	query := `
		SELECT id, user_id, document_name, storage_key, document_type, created_on
		FROM register_documents
		WHERE id = $1 AND user_id = $2
	`
	doc := &models.RegisterDocument{}
	err := r.db.QueryRowContext(ctx, query, id, userID).
		Scan(&doc.ID, &doc.UserID, &doc.DocumentName, &doc.StorageKey, &doc.DocumentType, &doc.CreatedOn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.RegisterDocument, error) {
	query := `
		SELECT id, user_id, document_name, storage_key, document_type, created_on
		FROM register_documents
		WHERE user_id = $1
		ORDER BY created_on
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var docs []*models.RegisterDocument
	for rows.Next() {
		doc := &models.RegisterDocument{}
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.DocumentName, &doc.StorageKey,
			&doc.DocumentType, &doc.CreatedOn); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return docs, nil
}
