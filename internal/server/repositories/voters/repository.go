package voters

import (
	"context"

	"github.com/blindvote/blindvote/internal/server/models"
)

// Repository describes persistence operations for voters.
type Repository interface {
	// Create inserts a new voter and returns it with the assigned id.
	Create(ctx context.Context, voter *models.Voter) (*models.Voter, error)

	// GetByUsername returns a voter by username, or common.ErrorNotFound.
	GetByUsername(ctx context.Context, username string) (*models.Voter, error)

	// GetByID returns a voter by id, or common.ErrorNotFound.
	GetByID(ctx context.Context, id int64) (*models.Voter, error)

	// SetPublicKey stores (or overwrites) the voter's registered public key.
	SetPublicKey(ctx context.Context, voterID int64, publicKeyPEM string) error
}
