package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/blindvote/blindvote/internal/server/repositories/elections"
	"github.com/blindvote/blindvote/internal/server/repositories/receipts"
	"github.com/blindvote/blindvote/internal/server/repositories/tokens"
	"github.com/blindvote/blindvote/internal/server/repositories/voters"
	"github.com/blindvote/blindvote/internal/server/repositories/votes"
	"github.com/pressly/goose/v3"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestFactoriesReturnConcreteRepositories(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m, err := NewPostgresRepositoryManager(db)
	if err != nil {
		t.Fatalf("NewPostgresRepositoryManager error: %v", err)
	}

	if _, ok := m.Voters(db).(*voters.PostgresRepository); !ok {
		t.Fatalf("Voters: unexpected type %T", m.Voters(db))
	}
	if _, ok := m.Elections(db).(*elections.PostgresRepository); !ok {
		t.Fatalf("Elections: unexpected type %T", m.Elections(db))
	}
	if _, ok := m.Tokens(db).(*tokens.PostgresRepository); !ok {
		t.Fatalf("Tokens: unexpected type %T", m.Tokens(db))
	}
	if _, ok := m.Votes(db).(*votes.PostgresRepository); !ok {
		t.Fatalf("Votes: unexpected type %T", m.Votes(db))
	}
	if _, ok := m.Receipts(db).(*receipts.PostgresRepository); !ok {
		t.Fatalf("Receipts: unexpected type %T", m.Receipts(db))
	}
}

func TestRunMigrations_PropagatesError(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	wantErr := errors.New("migrate failed")
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return wantErr
	}

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); !errors.Is(err, wantErr) {
		t.Fatalf("want %v, got %v", wantErr, err)
	}
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
	if gotDir != "." {
		t.Fatalf("want dir \".\", got %q", gotDir)
	}
}
