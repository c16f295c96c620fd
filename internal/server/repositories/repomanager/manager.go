package repomanager

import (
	"context"
	"database/sql"

	"github.com/deepdive-club/deepdive-api/internal/dbx"
	"github.com/deepdive-club/deepdive-api/internal/server/repositories/documents"
	"github.com/deepdive-club/deepdive-api/internal/server/repositories/passwordresets"
	"github.com/deepdive-club/deepdive-api/internal/server/repositories/refreshtokens"
	"github.com/deepdive-club/deepdive-api/internal/server/repositories/registrationrequests"
	"github.com/deepdive-club/deepdive-api/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX, so a
// service can use the same repositories inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	RegistrationRequests(db dbx.DBTX) registrationrequests.Repository
	PasswordResets(db dbx.DBTX) passwordresets.Repository
	Documents(db dbx.DBTX) documents.Repository
}
