package repomanager

import (
	"context"
	"database/sql"

	"contactkeeper/internal/dbx"
	"contactkeeper/internal/server/repositories/contacts"
	"contactkeeper/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX, so the
// same repository code runs inside and outside transactions, and exposes a
// schema migration hook.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Contacts(db dbx.DBTX) contacts.Repository
}
