package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/pdtools/internal/dbx"
	"github.com/dmitrijs2005/pdtools/internal/server/repositories/history"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	History(db dbx.DBTX) history.Repository
}
