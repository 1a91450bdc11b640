// Package httpapi exposes the voting server over a JSON REST API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/blindvote/blindvote/internal/election"
	"github.com/blindvote/blindvote/internal/logging"
	"github.com/blindvote/blindvote/internal/server/config"
	"github.com/blindvote/blindvote/internal/server/models"
	"github.com/blindvote/blindvote/internal/server/services"
	"github.com/blindvote/blindvote/internal/tally"
	"github.com/blindvote/blindvote/internal/tokenaudit"
)

// Service interfaces consumed by the handlers. The concrete implementations
// live in internal/server/services; tests substitute fakes.

type VoterService interface {
	Register(ctx context.Context, username, displayName, password string) (*models.Voter, error)
	Login(ctx context.Context, username, password string) (string, error)
	RegisterPublicKey(ctx context.Context, voterID int64, publicKeyPEM string) error
	GetVoter(ctx context.Context, voterID int64) (*models.Voter, error)
}

type ElectionService interface {
	Create(ctx context.Context, title string, description *string, start, end time.Time, options []string) (*models.Election, error)
	Get(ctx context.Context, id int64) (*models.Election, error)
	ListActive(ctx context.Context) ([]*models.Election, error)
	ListAll(ctx context.Context, limit, offset int) ([]*models.Election, error)
	State(e *models.Election) election.State
	SetActive(ctx context.Context, id int64, active bool) error
	PublicKey(ctx context.Context, id int64) (string, error)
	RegenerateKey(ctx context.Context, id int64) (publicKeyPEM, warning string, err error)
}

type TokenService interface {
	GetOrCreateBlindToken(ctx context.Context, voterID, electionID int64, blindedToken string) (*models.BlindToken, error)
	GetToken(ctx context.Context, voterID, electionID int64) (*models.BlindToken, error)
	Audit(ctx context.Context, electionID *int64) ([]*models.BlindToken, tokenaudit.Summary, error)
}

type VotingService interface {
	CastVote(ctx context.Context, voterID, electionID int64, b services.Ballot) (*models.VotingReceipt, error)
	HasVoted(ctx context.Context, voterID, electionID int64) (bool, error)
	GetReceipt(ctx context.Context, voterID, electionID int64) (*models.VotingReceipt, error)
}

type ResultsService interface {
	Results(ctx context.Context, electionID int64) (tally.Result, error)
}

type ArchiveService interface {
	ExportTally(ctx context.Context, electionID int64, result any) (string, error)
	ExportAudit(ctx context.Context, electionID int64, summary any) (string, error)
}

type Server struct {
	voters    VoterService
	elections ElectionService
	tokens    TokenService
	voting    VotingService
	results   ResultsService
	archive   ArchiveService
	jwtSecret []byte
	log       logging.Logger
}

func NewServer(
	cfg *config.Config,
	log logging.Logger,
	voters VoterService,
	elections ElectionService,
	tokens TokenService,
	voting VotingService,
	results ResultsService,
	archive ArchiveService,
) *Server {
	return &Server{
		voters:    voters,
		elections: elections,
		tokens:    tokens,
		voting:    voting,
		results:   results,
		archive:   archive,
		jwtSecret: []byte(cfg.SecretKey),
		log:       log,
	}
}

// Handler builds the route table. Authenticated routes require a Bearer
// token; admin routes additionally require the admin claim.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/register", s.handleRegister)
	mux.HandleFunc("POST /api/v1/login", s.handleLogin)

	mux.Handle("POST /api/v1/keys", s.authenticated(s.handleRegisterPublicKey))
	mux.Handle("GET /api/v1/me", s.authenticated(s.handleMe))

	mux.HandleFunc("GET /api/v1/elections", s.handleListActiveElections)
	mux.HandleFunc("GET /api/v1/elections/{id}", s.handleGetElection)
	mux.HandleFunc("GET /api/v1/elections/{id}/public-key", s.handleElectionPublicKey)
	mux.HandleFunc("GET /api/v1/elections/{id}/results", s.handleResults)

	mux.Handle("POST /api/v1/elections/{id}/tokens", s.authenticated(s.handleIssueToken))
	mux.Handle("GET /api/v1/elections/{id}/tokens/status", s.authenticated(s.handleTokenStatus))
	mux.Handle("POST /api/v1/elections/{id}/votes", s.authenticated(s.handleCastVote))
	mux.Handle("GET /api/v1/elections/{id}/has-voted", s.authenticated(s.handleHasVoted))
	mux.Handle("GET /api/v1/elections/{id}/receipt", s.authenticated(s.handleGetReceipt))

	mux.Handle("POST /api/v1/admin/elections", s.admin(s.handleCreateElection))
	mux.Handle("GET /api/v1/admin/elections", s.admin(s.handleListAllElections))
	mux.Handle("PATCH /api/v1/admin/elections/{id}/active", s.admin(s.handleSetActive))
	mux.Handle("POST /api/v1/admin/elections/{id}/regenerate-key", s.admin(s.handleRegenerateKey))
	mux.Handle("GET /api/v1/admin/tokens", s.admin(s.handleAuditTokens))
	mux.Handle("POST /api/v1/admin/elections/{id}/archive", s.admin(s.handleArchive))

	return s.withRequestID(s.withLogging(mux))
}
