// Package elections provides PostgreSQL-backed persistence for elections
// and their options.
package elections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/blindvote/blindvote/internal/common"
	"github.com/blindvote/blindvote/internal/dbx"
	"github.com/blindvote/blindvote/internal/server/models"
)

// PostgresRepository implements election storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const electionColumns = `id, title, description, start_date, end_date, is_active, institution_key, created_at`

func (r *PostgresRepository) Create(ctx context.Context, e *models.Election) (*models.Election, error) {
	query := `
		INSERT INTO elections (title, description, start_date, end_date, is_active, institution_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		e.Title, e.Description, e.StartDate, e.EndDate, e.IsActive, e.InstitutionKeyPEM,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) CreateOption(ctx context.Context, o *models.Option) (*models.Option, error) {
	query := `
		INSERT INTO options (election_id, option_text, option_order)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, o.ElectionID, o.OptionText, o.OptionOrder).
		Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE id = $1`
	e := &models.Election{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.StartDate, &e.EndDate,
		&e.IsActive, &e.InstitutionKeyPEM, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) GetWithOptions(ctx context.Context, id int64) (*models.Election, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.loadOptions(ctx, []*models.Election{e}); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *PostgresRepository) ListActive(ctx context.Context, now time.Time) ([]*models.Election, error) {
	query := `
		SELECT ` + electionColumns + ` FROM elections
		WHERE is_active = TRUE AND start_date <= $1 AND end_date >= $1
		ORDER BY start_date
	`
	return r.list(ctx, query, now)
}

func (r *PostgresRepository) ListAll(ctx context.Context, limit, offset int) ([]*models.Election, error) {
	query := `
		SELECT ` + electionColumns + ` FROM elections
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.list(ctx, query, limit, offset)
}

func (r *PostgresRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE elections SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) UpdateInstitutionKey(ctx context.Context, id int64, privatePEM string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE elections SET institution_key = $2 WHERE id = $1`, id, privatePEM)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Election, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select elections: %w", err)
	}
	defer rows.Close()

	var result []*models.Election
	for rows.Next() {
		e := &models.Election{}
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.StartDate, &e.EndDate,
			&e.IsActive, &e.InstitutionKeyPEM, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadOptions(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// loadOptions fetches options for the given elections one election at a time.
// Election pages are small; keeping the query trivial beats batching here.
func (r *PostgresRepository) loadOptions(ctx context.Context, elections []*models.Election) error {
	query := `
		SELECT id, election_id, option_text, option_order, created_at
		FROM options
		WHERE election_id = $1
		ORDER BY option_order
	`
	for _, e := range elections {
		rows, err := r.db.QueryContext(ctx, query, e.ID)
		if err != nil {
			return fmt.Errorf("failed to select options: %w", err)
		}
		var options []models.Option
		for rows.Next() {
			var o models.Option
			if err := rows.Scan(&o.ID, &o.ElectionID, &o.OptionText, &o.OptionOrder, &o.CreatedAt); err != nil {
				rows.Close()
				return err
			}
			options = append(options, o)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
		e.Options = options
	}
	return nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
