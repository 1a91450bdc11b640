package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/blindvote/blindvote/internal/common"
	"github.com/blindvote/blindvote/internal/dbx"
)

type SQLiteReceiptsRepository struct {
	db dbx.DBTX
}

func NewSQLiteReceiptsRepository(db dbx.DBTX) *SQLiteReceiptsRepository {
	return &SQLiteReceiptsRepository{db: db}
}

func (r *SQLiteReceiptsRepository) Save(ctx context.Context, receipt *StoredReceipt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO receipts (election_id, receipt_hash, signature, vote_hash, voted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(election_id) DO UPDATE SET
			receipt_hash = excluded.receipt_hash,
			signature = excluded.signature,
			vote_hash = excluded.vote_hash,
			voted_at = excluded.voted_at
	`, receipt.ElectionID, receipt.ReceiptHash, receipt.Signature, receipt.VoteHash, receipt.VotedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save receipt: %w", err)
	}
	return nil
}

func (r *SQLiteReceiptsRepository) Get(ctx context.Context, electionID int64) (*StoredReceipt, error) {
	rec := &StoredReceipt{}
	var votedAt int64
	err := r.db.QueryRowContext(ctx, `
		SELECT election_id, receipt_hash, signature, vote_hash, voted_at
		FROM receipts WHERE election_id = ?
	`, electionID).Scan(&rec.ElectionID, &rec.ReceiptHash, &rec.Signature, &rec.VoteHash, &votedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	rec.VotedAt = time.Unix(votedAt, 0)
	return rec, nil
}
