package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/bookmarker/internal/dbx"
	"github.com/dmitrijs2005/bookmarker/internal/server/repositories/bookmarks"
	"github.com/dmitrijs2005/bookmarker/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/bookmarker/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same service
// code runs against a plain connection or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Bookmarks(db dbx.DBTX) bookmarks.Repository
}
