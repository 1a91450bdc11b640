package services

import (
	"context"
	"errors"
	"testing"

	"github.com/blindvote/blindvote/internal/common"
	"github.com/blindvote/blindvote/internal/server/config"
	"github.com/blindvote/blindvote/internal/server/models"
	"github.com/blindvote/blindvote/internal/tally"
)

func newResultsService(t *testing.T, rm *fakeRepoManager) *ResultsService {
	t.Helper()
	db, _ := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })
	return NewResultsService(db, rm, &config.Config{})
}

func TestResults_TalliesCounts(t *testing.T) {
	rm := newFakeRepoManager()
	rm.elections.byID[7] = &models.Election{ID: 7}
	rm.votes.counts = []tally.OptionCount{
		{OptionID: 11, OptionText: "Alice", Order: 1, Count: 4},
		{OptionID: 12, OptionText: "Bob", Order: 2, Count: 2},
	}
	s := newResultsService(t, rm)

	res, err := s.Results(context.Background(), 7)
	if err != nil {
		t.Fatalf("Results error: %v", err)
	}
	if res.TotalVotes != 6 || len(res.Winners) != 1 || res.Winners[0] != 11 || res.Tie {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Options[0].Percent != 66.7 {
		t.Fatalf("unexpected percent: %v", res.Options[0].Percent)
	}
}

func TestResults_UnknownElection(t *testing.T) {
	rm := newFakeRepoManager()
	s := newResultsService(t, rm)

	_, err := s.Results(context.Background(), 404)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}
