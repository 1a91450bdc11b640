// Package votes provides PostgreSQL-backed persistence for anonymous ballots.
package votes

import (
	"context"
	"fmt"

	"github.com/blindvote/blindvote/internal/dbx"
	"github.com/blindvote/blindvote/internal/server/models"
	"github.com/blindvote/blindvote/internal/tally"
)

// PostgresRepository implements vote storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, v *models.Vote) (*models.Vote, error) {
	query := `
		INSERT INTO votes (election_id, option_id, unblinded_signature, vote_hash, vote_payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		v.ElectionID, v.OptionID, v.UnblindedSignature, v.VoteHash, v.VotePayload,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) ExistsByHash(ctx context.Context, voteHash string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM votes WHERE vote_hash = $1)`
	if err := r.db.QueryRowContext(ctx, query, voteHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// CountsByElection joins from options so choices nobody picked still show up
// with a zero count.
func (r *PostgresRepository) CountsByElection(ctx context.Context, electionID int64) ([]tally.OptionCount, error) {
	query := `
		SELECT o.id, o.option_text, o.option_order, COUNT(v.id)
		FROM options o
		LEFT JOIN votes v ON v.option_id = o.id
		WHERE o.election_id = $1
		GROUP BY o.id, o.option_text, o.option_order
		ORDER BY o.option_order
	`
	rows, err := r.db.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to select vote counts: %w", err)
	}
	defer rows.Close()

	var result []tally.OptionCount
	for rows.Next() {
		var c tally.OptionCount
		if err := rows.Scan(&c.OptionID, &c.OptionText, &c.Order, &c.Count); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
