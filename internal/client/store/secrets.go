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

type SQLiteSecretsRepository struct {
	db dbx.DBTX
}

func NewSQLiteSecretsRepository(db dbx.DBTX) *SQLiteSecretsRepository {
	return &SQLiteSecretsRepository{db: db}
}

func (r *SQLiteSecretsRepository) Save(ctx context.Context, secret *VoteSecret) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blinding_secrets (election_id, token, r_hex, unblinded_signature, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(election_id) DO UPDATE SET
			token = excluded.token,
			r_hex = excluded.r_hex,
			unblinded_signature = excluded.unblinded_signature
	`, secret.ElectionID, secret.Token, secret.RHex, secret.UnblindedSignature, secret.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save blinding secret: %w", err)
	}
	return nil
}

func (r *SQLiteSecretsRepository) Get(ctx context.Context, electionID int64) (*VoteSecret, error) {
	s := &VoteSecret{}
	var createdAt int64
	err := r.db.QueryRowContext(ctx, `
		SELECT election_id, token, r_hex, unblinded_signature, created_at
		FROM blinding_secrets WHERE election_id = ?
	`, electionID).Scan(&s.ElectionID, &s.Token, &s.RHex, &s.UnblindedSignature, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blinding secret: %w", err)
	}
	s.CreatedAt = time.Unix(createdAt, 0)
	return s, nil
}

func (r *SQLiteSecretsRepository) SetUnblindedSignature(ctx context.Context, electionID int64, signature string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE blinding_secrets SET unblinded_signature = ? WHERE election_id = ?
	`, signature, electionID)
	if err != nil {
		return fmt.Errorf("failed to update blinding secret: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update blinding secret: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteSecretsRepository) Delete(ctx context.Context, electionID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM blinding_secrets WHERE election_id = ?`, electionID)
	if err != nil {
		return fmt.Errorf("failed to delete blinding secret: %w", err)
	}
	return nil
}
