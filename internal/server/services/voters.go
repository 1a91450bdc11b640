// Package services implements the server-side application logic: voter
// accounts, election administration, blind token issuance, vote casting and
// results aggregation. Services own transactions; repositories stay dumb.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/blindvote/blindvote/internal/common"
	"github.com/blindvote/blindvote/internal/server/auth"
	"github.com/blindvote/blindvote/internal/server/config"
	"github.com/blindvote/blindvote/internal/server/models"
	"github.com/blindvote/blindvote/internal/server/repositories/repomanager"
	"github.com/blindvote/blindvote/internal/votecrypt"
)

type VoterService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

func NewVoterService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *VoterService {
	return &VoterService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register creates a voter account. The password is never stored; only an
// argon2id verifier derived with a per-account salt.
func (s *VoterService) Register(ctx context.Context, username, displayName, password string) (*models.Voter, error) {
	salt := common.GenerateRandByteArray(32)
	verifier := votecrypt.DerivePasswordVerifier([]byte(password), salt)

	voter := &models.Voter{
		Username:    username,
		DisplayName: displayName,
		Salt:        salt,
		Verifier:    verifier,
	}

	repo := s.repomanager.Voters(s.db)

	voter, err := repo.Create(ctx, voter)
	if err != nil {
		return nil, fmt.Errorf("error creating voter: %w", err)
	}

	return voter, nil
}

// Login checks the password against the stored verifier and returns a signed
// access token. Unknown usernames and wrong passwords are indistinguishable.
func (s *VoterService) Login(ctx context.Context, username, password string) (string, error) {
	repo := s.repomanager.Voters(s.db)

	voter, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}

	candidate := votecrypt.DerivePasswordVerifier([]byte(password), voter.Salt)
	if subtle.ConstantTimeCompare(voter.Verifier, candidate) != 1 {
		return "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(voter.ID, voter.IsAdmin, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}

	return token, nil
}

// RegisterPublicKey stores the voter's public key after validating that it
// parses as an RSA public key in PEM form.
func (s *VoterService) RegisterPublicKey(ctx context.Context, voterID int64, publicKeyPEM string) error {
	if _, err := votecrypt.ParsePublicKeyPEM(publicKeyPEM); err != nil {
		return common.ErrorValidation
	}

	repo := s.repomanager.Voters(s.db)
	return repo.SetPublicKey(ctx, voterID, publicKeyPEM)
}

// GetVoter returns the voter record for the given id.
func (s *VoterService) GetVoter(ctx context.Context, voterID int64) (*models.Voter, error) {
	repo := s.repomanager.Voters(s.db)
	return repo.GetByID(ctx, voterID)
}
