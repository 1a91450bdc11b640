package services

import (
	"context"
	"database/sql"

	"github.com/blindvote/blindvote/internal/server/config"
	"github.com/blindvote/blindvote/internal/server/repositories/repomanager"
	"github.com/blindvote/blindvote/internal/tally"
)

type ResultsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewResultsService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *ResultsService {
	return &ResultsService{db: db, repomanager: m}
}

// Results tallies the election's votes. Counting never touches the ballots
// themselves, only the aggregated per-option counts, so nothing here can
// link a ballot back to a voter.
func (s *ResultsService) Results(ctx context.Context, electionID int64) (tally.Result, error) {
	if _, err := s.repomanager.Elections(s.db).GetByID(ctx, electionID); err != nil {
		return tally.Result{}, err
	}

	counts, err := s.repomanager.Votes(s.db).CountsByElection(ctx, electionID)
	if err != nil {
		return tally.Result{}, err
	}

	return tally.Compute(electionID, counts), nil
}
