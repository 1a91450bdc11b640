package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/blindvote/blindvote/internal/common"
	"github.com/blindvote/blindvote/internal/dbx"
	"github.com/blindvote/blindvote/internal/election"
	"github.com/blindvote/blindvote/internal/server/config"
	"github.com/blindvote/blindvote/internal/server/models"
	"github.com/blindvote/blindvote/internal/server/repositories/repomanager"
	"github.com/blindvote/blindvote/internal/votecrypt"
)

// KeyRegenerationWarning is returned whenever an election's institution key
// is replaced. Tokens signed with the old key can no longer be verified.
const KeyRegenerationWarning = "institution key replaced: previously issued signed tokens are now invalid and affected voters must request new ones"

type ElectionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager

	// now is a seam so lifecycle decisions can be tested at fixed instants.
	now func() time.Time
}

func NewElectionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *ElectionService {
	return &ElectionService{
		db:          db,
		repomanager: m,
		now:         time.Now,
	}
}

// Create inserts an election with its options in one transaction. A fresh
// institution keypair is generated for blind signing; only the private half
// is stored, the public half is derivable on demand.
func (s *ElectionService) Create(ctx context.Context, title string, description *string, start, end time.Time, options []string) (*models.Election, error) {
	if title == "" || len(options) < 2 || !end.After(start) {
		return nil, common.ErrorValidation
	}

	privatePEM, _, err := votecrypt.GenerateKeyPairPEM()
	if err != nil {
		return nil, common.ErrCryptoUnavailable
	}

	e := &models.Election{
		Title:             title,
		Description:       description,
		StartDate:         start,
		EndDate:           end,
		IsActive:          true,
		InstitutionKeyPEM: privatePEM,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Elections(tx)

		e, err = repo.Create(ctx, e)
		if err != nil {
			return fmt.Errorf("error creating election: %w", err)
		}

		for i, text := range options {
			o := &models.Option{ElectionID: e.ID, OptionText: text, OptionOrder: i + 1}
			o, err = repo.CreateOption(ctx, o)
			if err != nil {
				return fmt.Errorf("error creating option: %w", err)
			}
			e.Options = append(e.Options, *o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return e, nil
}

// Get returns an election with its options.
func (s *ElectionService) Get(ctx context.Context, id int64) (*models.Election, error) {
	repo := s.repomanager.Elections(s.db)
	return repo.GetWithOptions(ctx, id)
}

// ListActive returns elections currently open for voting.
func (s *ElectionService) ListActive(ctx context.Context) ([]*models.Election, error) {
	repo := s.repomanager.Elections(s.db)
	return repo.ListActive(ctx, s.now())
}

// ListAll returns a page of all elections, newest first.
func (s *ElectionService) ListAll(ctx context.Context, limit, offset int) ([]*models.Election, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	repo := s.repomanager.Elections(s.db)
	return repo.ListAll(ctx, limit, offset)
}

// State classifies the election's lifecycle at the current instant.
func (s *ElectionService) State(e *models.Election) election.State {
	w := election.Window{IsActive: e.IsActive, StartDate: e.StartDate, EndDate: e.EndDate}
	return election.Classify(w, s.now())
}

// SetActive toggles the election's activity flag.
func (s *ElectionService) SetActive(ctx context.Context, id int64, active bool) error {
	repo := s.repomanager.Elections(s.db)
	return repo.SetActive(ctx, id, active)
}

// PublicKey returns the election's institution public key in PEM form.
func (s *ElectionService) PublicKey(ctx context.Context, id int64) (string, error) {
	repo := s.repomanager.Elections(s.db)

	e, err := repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	publicPEM, err := votecrypt.PublicKeyFromPrivatePEM(e.InstitutionKeyPEM)
	if err != nil {
		return "", common.ErrCryptoUnavailable
	}
	return publicPEM, nil
}

// RegenerateKey replaces the election's institution keypair and purges
// unsigned tokens so they can be reissued under the new key. Returns the new
// public key and a warning describing the blast radius.
func (s *ElectionService) RegenerateKey(ctx context.Context, id int64) (publicKeyPEM, warning string, err error) {
	privatePEM, publicPEM, err := votecrypt.GenerateKeyPairPEM()
	if err != nil {
		return "", "", common.ErrCryptoUnavailable
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Elections(tx).UpdateInstitutionKey(ctx, id, privatePEM); err != nil {
			return err
		}
		if _, err := s.repomanager.Tokens(tx).DeleteUnsigned(ctx, id); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}

	return publicPEM, KeyRegenerationWarning, nil
}
