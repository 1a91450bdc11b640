package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/blindvote/blindvote/internal/client/store/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Vault bundles the local repositories over one SQLite database.
type Vault struct {
	DB       *sql.DB
	Metadata MetadataRepository
	Secrets  SecretsRepository
	Receipts ReceiptsRepository
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the vault database at dsn and applies
// the migrations.
func Open(ctx context.Context, dsn string) (*Vault, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Vault{
		DB:       db,
		Metadata: NewSQLiteMetadataRepository(db),
		Secrets:  NewSQLiteSecretsRepository(db),
		Receipts: NewSQLiteReceiptsRepository(db),
	}, nil
}

func (v *Vault) Close() error {
	return v.DB.Close()
}
