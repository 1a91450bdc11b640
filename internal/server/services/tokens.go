package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/blindvote/blindvote/internal/common"
	"github.com/blindvote/blindvote/internal/election"
	"github.com/blindvote/blindvote/internal/server/config"
	"github.com/blindvote/blindvote/internal/server/models"
	"github.com/blindvote/blindvote/internal/server/repositories/repomanager"
	"github.com/blindvote/blindvote/internal/tokenaudit"
	"github.com/blindvote/blindvote/internal/votecrypt"
)

type TokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *TokenService {
	return &TokenService{
		db:          db,
		repomanager: m,
		now:         time.Now,
	}
}

// GetOrCreateBlindToken issues the voter's blind token for an election,
// signing the blinded value with the institution key synchronously. The call
// is idempotent: on repeat it returns the existing row unchanged and ignores
// the submitted blinded value, so a voter holds at most one token per
// election. Signing failure still records the token; the unsigned row
// surfaces in the audit as an anomaly instead of silently vanishing.
func (s *TokenService) GetOrCreateBlindToken(ctx context.Context, voterID, electionID int64, blindedToken string) (*models.BlindToken, error) {
	if blindedToken == "" {
		return nil, common.ErrorValidation
	}

	electionRepo := s.repomanager.Elections(s.db)
	e, err := electionRepo.GetByID(ctx, electionID)
	if err != nil {
		return nil, err
	}

	w := election.Window{IsActive: e.IsActive, StartDate: e.StartDate, EndDate: e.EndDate}
	if !election.IsOpen(w, s.now()) {
		return nil, common.ErrElectionNotOpen
	}

	tokenRepo := s.repomanager.Tokens(s.db)

	existing, err := tokenRepo.GetByVoterElection(ctx, voterID, electionID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	t := &models.BlindToken{
		VoterID:      voterID,
		ElectionID:   electionID,
		BlindedToken: blindedToken,
	}

	priv, err := votecrypt.ParsePrivateKeyPEM(e.InstitutionKeyPEM)
	if err == nil {
		if signed, signErr := votecrypt.BlindSign(priv, blindedToken); signErr == nil {
			t.SignedToken = &signed
		}
	}

	created, err := tokenRepo.Create(ctx, t)
	if errors.Is(err, common.ErrorConflict) {
		// Lost a concurrent first-issuance race; the winner's row is the
		// voter's token.
		return tokenRepo.GetByVoterElection(ctx, voterID, electionID)
	}
	return created, err
}

// GetToken returns the voter's token for an election.
func (s *TokenService) GetToken(ctx context.Context, voterID, electionID int64) (*models.BlindToken, error) {
	repo := s.repomanager.Tokens(s.db)
	return repo.GetByVoterElection(ctx, voterID, electionID)
}

// Audit lists tokens, optionally scoped to one election, together with a
// state summary. Blinded and signed values stay opaque; the audit sees state
// flags only.
func (s *TokenService) Audit(ctx context.Context, electionID *int64) ([]*models.BlindToken, tokenaudit.Summary, error) {
	repo := s.repomanager.Tokens(s.db)

	tokens, err := repo.ListByElection(ctx, electionID)
	if err != nil {
		return nil, tokenaudit.Summary{}, err
	}

	records := make([]tokenaudit.TokenRecord, 0, len(tokens))
	for _, t := range tokens {
		records = append(records, tokenaudit.TokenRecord{
			ID:         t.ID,
			ElectionID: t.ElectionID,
			Signed:     t.IsSigned(),
			Used:       t.IsUsed,
		})
	}

	return tokens, tokenaudit.Summarize(records), nil
}
