// Package store is the client-side vault. It keeps the voter's blinding
// secrets and receipts in a local SQLite database so that a vote can be
// resumed or proven after a crash or restart.
package store

import (
	"context"
	"time"

	"github.com/blindvote/blindvote/internal/votecrypt"
)

// VoteSecret is everything the client must remember between requesting a
// blind token and casting the vote. Losing the blinding factor makes the
// unblinded signature unrecoverable.
type VoteSecret struct {
	ElectionID         int64
	Token              string
	RHex               string
	UnblindedSignature *string
	CreatedAt          time.Time
}

// Secret reconstructs the crypto form of the stored blinding secret.
func (s *VoteSecret) Secret() (*votecrypt.BlindingSecret, error) {
	return votecrypt.ParseBlindingSecret(s.Token, s.RHex)
}

// StoredReceipt is the locally cached proof of a cast vote.
type StoredReceipt struct {
	ElectionID  int64
	ReceiptHash string
	Signature   string
	VoteHash    string
	VotedAt     time.Time
}

type MetadataRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type SecretsRepository interface {
	Save(ctx context.Context, secret *VoteSecret) error
	Get(ctx context.Context, electionID int64) (*VoteSecret, error)
	SetUnblindedSignature(ctx context.Context, electionID int64, signature string) error
	Delete(ctx context.Context, electionID int64) error
}

type ReceiptsRepository interface {
	Save(ctx context.Context, receipt *StoredReceipt) error
	Get(ctx context.Context, electionID int64) (*StoredReceipt, error)
}
