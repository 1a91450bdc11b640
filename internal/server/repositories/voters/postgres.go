// Package voters provides PostgreSQL-backed persistence for voter accounts.
package voters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/blindvote/blindvote/internal/common"
	"github.com/blindvote/blindvote/internal/dbx"
	"github.com/blindvote/blindvote/internal/server/models"
)

// PostgresRepository implements voter storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, voter *models.Voter) (*models.Voter, error) {
	query := `
		INSERT INTO voters (username, display_name, salt, verifier, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		voter.Username, voter.DisplayName, voter.Salt, voter.Verifier, voter.IsAdmin,
	).Scan(&voter.ID, &voter.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return voter, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.Voter, error) {
	query := `
		SELECT id, username, display_name, salt, verifier, public_key, is_admin, created_at
		FROM voters
		WHERE username = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Voter, error) {
	query := `
		SELECT id, username, display_name, salt, verifier, public_key, is_admin, created_at
		FROM voters
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) SetPublicKey(ctx context.Context, voterID int64, publicKeyPEM string) error {
	query := `UPDATE voters SET public_key = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, voterID, publicKeyPEM)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Voter, error) {
	voter := &models.Voter{}
	err := row.Scan(
		&voter.ID, &voter.Username, &voter.DisplayName, &voter.Salt, &voter.Verifier,
		&voter.PublicKeyPEM, &voter.IsAdmin, &voter.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return voter, nil
}
