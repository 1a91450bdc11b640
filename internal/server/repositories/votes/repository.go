package votes

import (
	"context"

	"github.com/blindvote/blindvote/internal/server/models"
	"github.com/blindvote/blindvote/internal/tally"
)

// Repository describes persistence operations for anonymous votes.
type Repository interface {
	// Create inserts a ballot and returns it with the assigned id.
	Create(ctx context.Context, v *models.Vote) (*models.Vote, error)

	// ExistsByHash reports whether a vote with the given hash was already
	// recorded.
	ExistsByHash(ctx context.Context, voteHash string) (bool, error)

	// CountsByElection returns per-option vote counts for an election,
	// including options with zero votes, ordered by option_order.
	CountsByElection(ctx context.Context, electionID int64) ([]tally.OptionCount, error)
}
