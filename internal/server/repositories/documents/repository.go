// Package documents declares the bookkeeping contract for register-document
// metadata. Document binaries live in object storage; these rows only track
// ownership, type and the storage key.
package documents

import (
	"context"

	"github.com/deepdive-club/deepdive-api/internal/server/models"
)

type Repository interface {
	Add(ctx context.Context, doc *models.RegisterDocument) (*models.RegisterDocument, error)

	// Get returns the row only if it belongs to userID, else common.ErrNotFound.
	Get(ctx context.Context, id string, userID string) (*models.RegisterDocument, error)

	ListByUser(ctx context.Context, userID string) ([]*models.RegisterDocument, error)
}
