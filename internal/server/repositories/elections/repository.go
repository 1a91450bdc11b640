package elections

import (
	"context"
	"time"

	"github.com/blindvote/blindvote/internal/server/models"
)

// Repository describes persistence operations for elections and their options.
type Repository interface {
	// Create inserts a new election and returns it with the assigned id.
	Create(ctx context.Context, e *models.Election) (*models.Election, error)

	// CreateOption inserts one option for an election.
	CreateOption(ctx context.Context, o *models.Option) (*models.Option, error)

	// GetByID returns an election without options, or common.ErrorNotFound.
	GetByID(ctx context.Context, id int64) (*models.Election, error)

	// GetWithOptions returns an election with options ordered by option_order.
	GetWithOptions(ctx context.Context, id int64) (*models.Election, error)

	// ListActive returns active elections whose window contains now, with
	// options, ordered by start date.
	ListActive(ctx context.Context, now time.Time) ([]*models.Election, error)

	// ListAll returns a page of elections (newest first), with options.
	ListAll(ctx context.Context, limit, offset int) ([]*models.Election, error)

	// SetActive toggles the activity flag.
	SetActive(ctx context.Context, id int64, active bool) error

	// UpdateInstitutionKey replaces the election's institution keypair.
	UpdateInstitutionKey(ctx context.Context, id int64, privatePEM string) error
}
