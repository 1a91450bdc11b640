package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/blindvote/blindvote/internal/common"
	"github.com/blindvote/blindvote/internal/dbx"
	"github.com/blindvote/blindvote/internal/server/models"
	electionsrepo "github.com/blindvote/blindvote/internal/server/repositories/elections"
	receiptsrepo "github.com/blindvote/blindvote/internal/server/repositories/receipts"
	tokensrepo "github.com/blindvote/blindvote/internal/server/repositories/tokens"
	votersrepo "github.com/blindvote/blindvote/internal/server/repositories/voters"
	votesrepo "github.com/blindvote/blindvote/internal/server/repositories/votes"
	"github.com/blindvote/blindvote/internal/tally"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

// --- fake repositories ---

type fakeVotersRepo struct {
	byID       map[int64]*models.Voter
	byUsername map[string]*models.Voter
	createErr  error
	setKeyErr  error
	setKeyPEM  string
}

func (f *fakeVotersRepo) Create(ctx context.Context, v *models.Voter) (*models.Voter, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	v.ID = 1
	return v, nil
}

func (f *fakeVotersRepo) GetByUsername(ctx context.Context, username string) (*models.Voter, error) {
	if v, ok := f.byUsername[username]; ok {
		return v, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeVotersRepo) GetByID(ctx context.Context, id int64) (*models.Voter, error) {
	if v, ok := f.byID[id]; ok {
		return v, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeVotersRepo) SetPublicKey(ctx context.Context, voterID int64, publicKeyPEM string) error {
	f.setKeyPEM = publicKeyPEM
	return f.setKeyErr
}

type fakeElectionsRepo struct {
	byID      map[int64]*models.Election
	createErr error
	keyPEM    string
	deactive  map[int64]bool
}

func (f *fakeElectionsRepo) Create(ctx context.Context, e *models.Election) (*models.Election, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	e.ID = 7
	return e, nil
}

func (f *fakeElectionsRepo) CreateOption(ctx context.Context, o *models.Option) (*models.Option, error) {
	o.ID = o.ElectionID*100 + int64(o.OptionOrder)
	return o, nil
}

func (f *fakeElectionsRepo) GetByID(ctx context.Context, id int64) (*models.Election, error) {
	if e, ok := f.byID[id]; ok {
		return e, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeElectionsRepo) GetWithOptions(ctx context.Context, id int64) (*models.Election, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeElectionsRepo) ListActive(ctx context.Context, now time.Time) ([]*models.Election, error) {
	var out []*models.Election
	for _, e := range f.byID {
		if e.IsActive && !now.Before(e.StartDate) && !now.After(e.EndDate) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeElectionsRepo) ListAll(ctx context.Context, limit, offset int) ([]*models.Election, error) {
	var out []*models.Election
	for _, e := range f.byID {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeElectionsRepo) SetActive(ctx context.Context, id int64, active bool) error {
	e, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	e.IsActive = active
	return nil
}

func (f *fakeElectionsRepo) UpdateInstitutionKey(ctx context.Context, id int64, privatePEM string) error {
	e, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	e.InstitutionKeyPEM = privatePEM
	f.keyPEM = privatePEM
	return nil
}

type fakeTokensRepo struct {
	byVoterElection map[[2]int64]*models.BlindToken
	created         *models.BlindToken
	createErr       error
	missFirstGet    bool
	markUsedID      int64
	markUsedErr     error
	deletedFor      int64
	deletedCount    int64
}

func (f *fakeTokensRepo) Create(ctx context.Context, t *models.BlindToken) (*models.BlindToken, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	t.ID = 5
	f.created = t
	return t, nil
}

func (f *fakeTokensRepo) GetByVoterElection(ctx context.Context, voterID, electionID int64) (*models.BlindToken, error) {
	if f.missFirstGet {
		f.missFirstGet = false
		return nil, common.ErrorNotFound
	}
	if t, ok := f.byVoterElection[[2]int64{voterID, electionID}]; ok {
		return t, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTokensRepo) MarkUsed(ctx context.Context, id int64) error {
	f.markUsedID = id
	return f.markUsedErr
}

func (f *fakeTokensRepo) ListByElection(ctx context.Context, electionID *int64) ([]*models.BlindToken, error) {
	var out []*models.BlindToken
	for _, t := range f.byVoterElection {
		if electionID == nil || t.ElectionID == *electionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTokensRepo) DeleteUnsigned(ctx context.Context, electionID int64) (int64, error) {
	f.deletedFor = electionID
	return f.deletedCount, nil
}

type fakeVotesRepo struct {
	created   *models.Vote
	createErr error
	hashes    map[string]bool
	counts    []tally.OptionCount
}

func (f *fakeVotesRepo) Create(ctx context.Context, v *models.Vote) (*models.Vote, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	v.ID = 1
	f.created = v
	return v, nil
}

func (f *fakeVotesRepo) ExistsByHash(ctx context.Context, voteHash string) (bool, error) {
	return f.hashes[voteHash], nil
}

func (f *fakeVotesRepo) CountsByElection(ctx context.Context, electionID int64) ([]tally.OptionCount, error) {
	return f.counts, nil
}

type fakeReceiptsRepo struct {
	byVoterElection map[[2]int64]*models.VotingReceipt
	created         *models.VotingReceipt
	createErr       error
}

func (f *fakeReceiptsRepo) Create(ctx context.Context, rec *models.VotingReceipt) (*models.VotingReceipt, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	rec.ID = 3
	f.created = rec
	return rec, nil
}

func (f *fakeReceiptsRepo) GetByVoterElection(ctx context.Context, voterID, electionID int64) (*models.VotingReceipt, error) {
	if r, ok := f.byVoterElection[[2]int64{voterID, electionID}]; ok {
		return r, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeReceiptsRepo) Exists(ctx context.Context, voterID, electionID int64) (bool, error) {
	_, ok := f.byVoterElection[[2]int64{voterID, electionID}]
	return ok, nil
}

type fakeRepoManager struct {
	voters    *fakeVotersRepo
	elections *fakeElectionsRepo
	tokens    *fakeTokensRepo
	votes     *fakeVotesRepo
	receipts  *fakeReceiptsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		voters:    &fakeVotersRepo{byID: map[int64]*models.Voter{}, byUsername: map[string]*models.Voter{}},
		elections: &fakeElectionsRepo{byID: map[int64]*models.Election{}},
		tokens:    &fakeTokensRepo{byVoterElection: map[[2]int64]*models.BlindToken{}},
		votes:     &fakeVotesRepo{hashes: map[string]bool{}},
		receipts:  &fakeReceiptsRepo{byVoterElection: map[[2]int64]*models.VotingReceipt{}},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error     { return nil }
func (m *fakeRepoManager) Voters(db dbx.DBTX) votersrepo.Repository         { return m.voters }
func (m *fakeRepoManager) Elections(db dbx.DBTX) electionsrepo.Repository   { return m.elections }
func (m *fakeRepoManager) Tokens(db dbx.DBTX) tokensrepo.Repository         { return m.tokens }
func (m *fakeRepoManager) Votes(db dbx.DBTX) votesrepo.Repository           { return m.votes }
func (m *fakeRepoManager) Receipts(db dbx.DBTX) receiptsrepo.Repository     { return m.receipts }
