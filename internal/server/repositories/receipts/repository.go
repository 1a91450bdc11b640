package receipts

import (
	"context"

	"github.com/blindvote/blindvote/internal/server/models"
)

// Repository describes persistence operations for voting receipts.
type Repository interface {
	// Create inserts a receipt and returns it with the assigned id.
	Create(ctx context.Context, rec *models.VotingReceipt) (*models.VotingReceipt, error)

	// GetByVoterElection returns the voter's receipt for an election, or
	// common.ErrorNotFound.
	GetByVoterElection(ctx context.Context, voterID, electionID int64) (*models.VotingReceipt, error)

	// Exists reports whether the voter already holds a receipt for the
	// election.
	Exists(ctx context.Context, voterID, electionID int64) (bool, error)
}
