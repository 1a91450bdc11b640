package repomanager

import (
	"context"
	"database/sql"

	"github.com/blindvote/blindvote/internal/dbx"
	"github.com/blindvote/blindvote/internal/server/repositories/elections"
	"github.com/blindvote/blindvote/internal/server/repositories/receipts"
	"github.com/blindvote/blindvote/internal/server/repositories/tokens"
	"github.com/blindvote/blindvote/internal/server/repositories/voters"
	"github.com/blindvote/blindvote/internal/server/repositories/votes"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Voters(db dbx.DBTX) voters.Repository
	Elections(db dbx.DBTX) elections.Repository
	Tokens(db dbx.DBTX) tokens.Repository
	Votes(db dbx.DBTX) votes.Repository
	Receipts(db dbx.DBTX) receipts.Repository
}
