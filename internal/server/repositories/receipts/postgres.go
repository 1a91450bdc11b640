// Package receipts provides PostgreSQL-backed persistence for voting receipts.
package receipts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/blindvote/blindvote/internal/common"
	"github.com/blindvote/blindvote/internal/dbx"
	"github.com/blindvote/blindvote/internal/server/models"
)

// PostgresRepository implements receipt storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.VotingReceipt) (*models.VotingReceipt, error) {
	query := `
		INSERT INTO voting_receipts (voter_id, election_id, receipt_hash, digital_signature, voted_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.VoterID, rec.ElectionID, rec.ReceiptHash, rec.DigitalSignature, rec.VotedAt,
	).Scan(&rec.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) GetByVoterElection(ctx context.Context, voterID, electionID int64) (*models.VotingReceipt, error) {
	query := `
		SELECT id, voter_id, election_id, receipt_hash, digital_signature, voted_at
		FROM voting_receipts
		WHERE voter_id = $1 AND election_id = $2
	`
	rec := &models.VotingReceipt{}
	err := r.db.QueryRowContext(ctx, query, voterID, electionID).Scan(
		&rec.ID, &rec.VoterID, &rec.ElectionID, &rec.ReceiptHash,
		&rec.DigitalSignature, &rec.VotedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, voterID, electionID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM voting_receipts WHERE voter_id = $1 AND election_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, voterID, electionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}
