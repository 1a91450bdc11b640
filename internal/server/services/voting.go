package services

import (
	"context"
	"crypto/rsa"
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

type VotingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewVotingService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *VotingService {
	return &VotingService{
		db:          db,
		repomanager: m,
		now:         time.Now,
	}
}

// Ballot is the client-built cast input: the chosen option, the unblinded
// eligibility proof, the vote payload with its hash, and the receipt hash
// signed with the voter's own key.
type Ballot struct {
	OptionID         int64
	UnblindedProof   string
	VoteHash         string
	VotePayload      string
	ReceiptHash      string
	ReceiptSignature string
}

// CastVote records an anonymous ballot and issues the receipt in one
// transaction. The unblinded proof is checked against the election's
// institution key; a proof that does not parse as a token/signature pair is
// treated as a legacy raw signed token and compared byte-for-byte with the
// stored signed value. Both hashes are re-derived from the payload, and the
// receipt signature must verify against the voter's registered public key,
// so the server never holds a key that could forge a receipt. Either the
// vote, the receipt and the token-spend all land, or none do.
func (s *VotingService) CastVote(ctx context.Context, voterID, electionID int64, b Ballot) (*models.VotingReceipt, error) {
	if b.UnblindedProof == "" || b.VoteHash == "" || b.VotePayload == "" ||
		b.ReceiptHash == "" || b.ReceiptSignature == "" {
		return nil, common.ErrorValidation
	}
	optionID := b.OptionID

	voter, err := s.repomanager.Voters(s.db).GetByID(ctx, voterID)
	if err != nil {
		return nil, err
	}
	if !voter.HasPublicKey() {
		return nil, common.ErrNoPublicKey
	}

	e, err := s.repomanager.Elections(s.db).GetWithOptions(ctx, electionID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	w := election.Window{IsActive: e.IsActive, StartDate: e.StartDate, EndDate: e.EndDate}
	if !election.IsOpen(w, now) {
		return nil, common.ErrElectionNotOpen
	}

	validOption := false
	for _, o := range e.Options {
		if o.ID == optionID {
			validOption = true
			break
		}
	}
	if !validOption {
		return nil, common.ErrorValidation
	}

	token, err := s.repomanager.Tokens(s.db).GetByVoterElection(ctx, voterID, electionID)
	if err != nil {
		return nil, err
	}
	if !token.IsSigned() {
		return nil, common.ErrTokenNotSigned
	}
	if token.IsUsed {
		return nil, common.ErrTokenUsed
	}

	if err := s.verifyProof(e, token, b.UnblindedProof); err != nil {
		return nil, err
	}

	voted, err := s.repomanager.Receipts(s.db).Exists(ctx, voterID, electionID)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, common.ErrAlreadyVoted
	}

	if err := s.verifyBallot(voterID, electionID, voter, b); err != nil {
		return nil, err
	}

	duplicate, err := s.repomanager.Votes(s.db).ExistsByHash(ctx, b.VoteHash)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, common.ErrDuplicateVoteHash
	}

	receipt := &models.VotingReceipt{
		VoterID:          voterID,
		ElectionID:       electionID,
		ReceiptHash:      b.ReceiptHash,
		DigitalSignature: b.ReceiptSignature,
		VotedAt:          now,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		vote := &models.Vote{
			ElectionID:         electionID,
			OptionID:           optionID,
			UnblindedSignature: b.UnblindedProof,
			VoteHash:           b.VoteHash,
			VotePayload:        b.VotePayload,
		}
		if _, err := s.repomanager.Votes(tx).Create(ctx, vote); err != nil {
			return fmt.Errorf("error recording vote: %w", err)
		}

		if err := s.repomanager.Tokens(tx).MarkUsed(ctx, token.ID); err != nil {
			return err
		}

		if _, err := s.repomanager.Receipts(tx).Create(ctx, receipt); err != nil {
			return fmt.Errorf("error recording receipt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// verifyBallot re-derives both hashes from the payload and checks the
// receipt signature against the voter's registered public key. A signature
// that does not verify means the receipt was not produced by this voter.
func (s *VotingService) verifyBallot(voterID, electionID int64, voter *models.Voter, b Ballot) error {
	payload, err := votecrypt.DecodeVotePayload(b.VotePayload)
	if err != nil {
		return err
	}
	if payload.ElectionID != electionID || payload.OptionID != b.OptionID {
		return common.ErrorValidation
	}
	if payload.VoteHash() != b.VoteHash {
		return common.ErrorValidation
	}
	if votecrypt.HashReceipt(voterID, electionID, b.VoteHash, payload.Timestamp) != b.ReceiptHash {
		return common.ErrorValidation
	}

	pub, err := votecrypt.ParsePublicKeyPEM(*voter.PublicKeyPEM)
	if err != nil {
		return common.ErrCryptoUnavailable
	}
	return votecrypt.VerifyReceiptSignature(pub, b.ReceiptHash, b.ReceiptSignature)
}

func (s *VotingService) verifyProof(e *models.Election, token *models.BlindToken, unblindedProof string) error {
	if proof, ok := votecrypt.DecodeUnblindedProof(unblindedProof); ok {
		pub, err := publicKeyOf(e)
		if err != nil {
			return common.ErrCryptoUnavailable
		}
		if err := votecrypt.VerifyUnblinded(pub, proof.Token, proof.Signature); err != nil {
			return common.ErrInvalidToken
		}
		return nil
	}

	// Legacy clients that lost the blinding secret resubmit the raw signed
	// token; all we can do is match it against the stored value.
	if token.SignedToken == nil || unblindedProof != *token.SignedToken {
		return common.ErrInvalidToken
	}
	return nil
}

func publicKeyOf(e *models.Election) (pub *rsa.PublicKey, err error) {
	priv, err := votecrypt.ParsePrivateKeyPEM(e.InstitutionKeyPEM)
	if err != nil {
		return nil, err
	}
	return &priv.PublicKey, nil
}

// HasVoted reports whether the voter already holds a receipt for the
// election.
func (s *VotingService) HasVoted(ctx context.Context, voterID, electionID int64) (bool, error) {
	return s.repomanager.Receipts(s.db).Exists(ctx, voterID, electionID)
}

// GetReceipt returns the voter's receipt for an election.
func (s *VotingService) GetReceipt(ctx context.Context, voterID, electionID int64) (*models.VotingReceipt, error) {
	return s.repomanager.Receipts(s.db).GetByVoterElection(ctx, voterID, electionID)
}
