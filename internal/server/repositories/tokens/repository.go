package tokens

import (
	"context"

	"github.com/blindvote/blindvote/internal/server/models"
)

// Repository describes persistence operations for blind tokens.
type Repository interface {
	// Create inserts a new token row and returns it with the assigned id.
	Create(ctx context.Context, t *models.BlindToken) (*models.BlindToken, error)

	// GetByVoterElection returns the voter's token for an election, or
	// common.ErrorNotFound.
	GetByVoterElection(ctx context.Context, voterID, electionID int64) (*models.BlindToken, error)

	// MarkUsed flips is_used and stamps used_at. Returns common.ErrTokenUsed
	// if the token was already spent and common.ErrorNotFound if absent.
	MarkUsed(ctx context.Context, id int64) error

	// ListByElection returns tokens for one election, or for all elections
	// when electionID is nil, ordered by creation time.
	ListByElection(ctx context.Context, electionID *int64) ([]*models.BlindToken, error)

	// DeleteUnsigned removes unsigned, unused tokens for an election and
	// reports how many rows were removed.
	DeleteUnsigned(ctx context.Context, electionID int64) (int64, error)
}
