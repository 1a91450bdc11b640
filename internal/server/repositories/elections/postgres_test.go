package elections

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/blindvote/blindvote/internal/common"
	"github.com/blindvote/blindvote/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	created := time.Now()

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+elections\s*\(title,\s*description,\s*start_date,\s*end_date,\s*is_active,\s*institution_key\)`).
		WithArgs("Board 2025", nil, start, end, true, "KEYPEM").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	e := &models.Election{Title: "Board 2025", StartDate: start, EndDate: end, IsActive: true, InstitutionKeyPEM: "KEYPEM"}
	got, err := repo.Create(context.Background(), e)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 7 {
		t.Fatalf("unexpected election: %+v", got)
	}
}

func TestCreateOption_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+options\s*\(election_id,\s*option_text,\s*option_order\)`).
		WithArgs(int64(7), "Alice", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), time.Now()))

	o := &models.Option{ElectionID: 7, OptionText: "Alice", OptionOrder: 1}
	got, err := repo.CreateOption(context.Background(), o)
	if err != nil {
		t.Fatalf("CreateOption error: %v", err)
	}
	if got.ID != 11 {
		t.Fatalf("unexpected option: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+elections\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 404)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func electionRows(id int64, title string, start, end time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "description", "start_date", "end_date", "is_active", "institution_key", "created_at",
	}).AddRow(id, title, nil, start, end, true, "KEYPEM", time.Now())
}

func TestGetWithOptions_OrdersOptions(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	start := time.Now()
	end := start.Add(time.Hour)

	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+elections\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(int64(7)).
		WillReturnRows(electionRows(7, "Board 2025", start, end))

	optRows := sqlmock.NewRows([]string{"id", "election_id", "option_text", "option_order", "created_at"}).
		AddRow(int64(1), int64(7), "Alice", 1, time.Now()).
		AddRow(int64(2), int64(7), "Bob", 2, time.Now())
	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+options\s+WHERE\s+election_id\s*=\s*\$1\s+ORDER\s+BY\s+option_order`).
		WithArgs(int64(7)).
		WillReturnRows(optRows)

	got, err := repo.GetWithOptions(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetWithOptions error: %v", err)
	}
	if len(got.Options) != 2 || got.Options[0].OptionText != "Alice" || got.Options[1].OptionOrder != 2 {
		t.Fatalf("unexpected options: %+v", got.Options)
	}
}

func TestListActive_FiltersByWindow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2025, 5, 2, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+elections\s+WHERE\s+is_active\s*=\s*TRUE\s+AND\s+start_date\s*<=\s*\$1\s+AND\s+end_date\s*>=\s*\$1`).
		WithArgs(now).
		WillReturnRows(electionRows(7, "Board 2025", now.Add(-time.Hour), now.Add(time.Hour)))

	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+options`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "election_id", "option_text", "option_order", "created_at"}))

	got, err := repo.ListActive(context.Background(), now)
	if err != nil {
		t.Fatalf("ListActive error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 7 {
		t.Fatalf("unexpected elections: %+v", got)
	}
}

func TestSetActive_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)UPDATE\s+elections\s+SET\s+is_active\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(int64(99), false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetActive(context.Background(), 99, false)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestUpdateInstitutionKey_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)UPDATE\s+elections\s+SET\s+institution_key\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(int64(7), "NEWKEY").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateInstitutionKey(context.Background(), 7, "NEWKEY"); err != nil {
		t.Fatalf("UpdateInstitutionKey error: %v", err)
	}
}

func TestListAll_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+elections\s+ORDER\s+BY\s+created_at\s+DESC`).
		WithArgs(10, 0).
		WillReturnError(errors.New("db down"))

	_, err := repo.ListAll(context.Background(), 10, 0)
	if err == nil || !regexp.MustCompile(`db down`).MatchString(err.Error()) {
		t.Fatalf("expected db error, got %v", err)
	}
}
