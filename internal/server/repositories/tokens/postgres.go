// Package tokens provides PostgreSQL-backed persistence for blind tokens.
package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/blindvote/blindvote/internal/common"
	"github.com/blindvote/blindvote/internal/dbx"
	"github.com/blindvote/blindvote/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRepository implements blind token storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tokenColumns = `id, voter_id, election_id, blinded_token, signed_token, is_used, created_at, used_at`

func (r *PostgresRepository) Create(ctx context.Context, t *models.BlindToken) (*models.BlindToken, error) {
	query := `
		INSERT INTO blind_tokens (voter_id, election_id, blinded_token, signed_token)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_used, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		t.VoterID, t.ElectionID, t.BlindedToken, t.SignedToken,
	).Scan(&t.ID, &t.IsUsed, &t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 unique_violation: the (voter_id, election_id) row already exists
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) GetByVoterElection(ctx context.Context, voterID, electionID int64) (*models.BlindToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM blind_tokens WHERE voter_id = $1 AND election_id = $2`
	t := &models.BlindToken{}
	err := r.db.QueryRowContext(ctx, query, voterID, electionID).Scan(
		&t.ID, &t.VoterID, &t.ElectionID, &t.BlindedToken, &t.SignedToken,
		&t.IsUsed, &t.CreatedAt, &t.UsedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// MarkUsed is guarded by "is_used = FALSE" so a double spend loses the race
// at the database rather than in application code.
func (r *PostgresRepository) MarkUsed(ctx context.Context, id int64) error {
	query := `
		UPDATE blind_tokens
		SET is_used = TRUE, used_at = NOW()
		WHERE id = $1 AND is_used = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		// Distinguish a spent token from a missing one.
		var used bool
		err := r.db.QueryRowContext(ctx, `SELECT is_used FROM blind_tokens WHERE id = $1`, id).Scan(&used)
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return common.ErrTokenUsed
	}
	return nil
}

func (r *PostgresRepository) ListByElection(ctx context.Context, electionID *int64) ([]*models.BlindToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM blind_tokens`
	var args []any
	if electionID != nil {
		query += ` WHERE election_id = $1`
		args = append(args, *electionID)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select tokens: %w", err)
	}
	defer rows.Close()

	var result []*models.BlindToken
	for rows.Next() {
		t := &models.BlindToken{}
		if err := rows.Scan(
			&t.ID, &t.VoterID, &t.ElectionID, &t.BlindedToken, &t.SignedToken,
			&t.IsUsed, &t.CreatedAt, &t.UsedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DeleteUnsigned(ctx context.Context, electionID int64) (int64, error) {
	query := `
		DELETE FROM blind_tokens
		WHERE election_id = $1 AND signed_token IS NULL AND is_used = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, electionID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
