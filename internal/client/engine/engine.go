// Package engine drives the vote-casting flow: obtain a signed blind
// token, unblind the institution's signature, and submit the vote through
// the atomic cast operation. The flow is an explicit state machine; every
// run produces an execution log naming the step each decision was made at.
package engine

import (
	"context"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/blindvote/blindvote/internal/client/api"
	"github.com/blindvote/blindvote/internal/client/store"
	"github.com/blindvote/blindvote/internal/common"
	"github.com/blindvote/blindvote/internal/election"
	"github.com/blindvote/blindvote/internal/votecrypt"
)

// Step names one stage of the casting flow.
type Step string

const (
	StepCheckEligibility Step = "check_eligibility"
	StepFetchElectionKey Step = "fetch_election_key"
	StepBlindToken       Step = "blind_token"
	StepObtainSignature  Step = "obtain_signature"
	StepUnblind          Step = "unblind"
	StepSignReceipt      Step = "sign_receipt"
	StepSubmitVote       Step = "submit_vote"
	StepSaveReceipt      Step = "save_receipt"
)

// LogEntry records the outcome of one step.
type LogEntry struct {
	Step   Step
	At     time.Time
	Detail string
	Err    error
}

// CastResult carries the receipt and the execution log of a cast attempt.
// The log is populated up to the failing step even when Cast returns an
// error.
type CastResult struct {
	Receipt *api.Receipt
	Log     []LogEntry
}

// API is the slice of the server client the engine needs.
type API interface {
	Me(ctx context.Context) (*api.Profile, error)
	GetElection(ctx context.Context, electionID int64) (*api.Election, error)
	ElectionPublicKey(ctx context.Context, electionID int64) (string, error)
	IssueToken(ctx context.Context, electionID int64, blindedToken string) (*api.BlindToken, error)
	CastVote(ctx context.Context, electionID int64, ballot api.Ballot) (*api.Receipt, error)
	HasVoted(ctx context.Context, electionID int64) (bool, error)
	GetReceipt(ctx context.Context, electionID int64) (*api.Receipt, error)
}

// Signer provides the voter's private key for receipt signing. The key
// workflow implements it.
type Signer interface {
	PrivateKey(ctx context.Context) (*rsa.PrivateKey, error)
}

type Engine struct {
	client   API
	secrets  store.SecretsRepository
	receipts store.ReceiptsRepository
	signer   Signer
	now      func() time.Time
}

func NewEngine(client API, secrets store.SecretsRepository, receipts store.ReceiptsRepository, signer Signer) *Engine {
	return &Engine{
		client:   client,
		secrets:  secrets,
		receipts: receipts,
		signer:   signer,
		now:      time.Now,
	}
}

// ObtainToken fetches or creates the blind token for an election, storing
// the blinding secret in the vault before the blinded value leaves the
// machine. Calling it twice before the vote is cast returns the same
// token. An unsigned token in the reply is a fatal issuance anomaly.
func (e *Engine) ObtainToken(ctx context.Context, voterID, electionID int64) (*api.BlindToken, error) {
	pub, err := e.institutionKey(ctx, electionID)
	if err != nil {
		return nil, err
	}

	_, blinded, err := e.loadOrBlind(ctx, voterID, electionID, pub)
	if err != nil {
		return nil, err
	}

	token, err := e.client.IssueToken(ctx, electionID, blinded)
	if err != nil {
		return nil, err
	}
	if !token.IsSigned || token.SignedToken == nil {
		return token, common.ErrTokenNotSigned
	}
	return token, nil
}

// Cast runs the full casting flow for one option. Any failure before the
// vote submission leaves no server-side trace; a network failure during
// submission is resolved by checking HasVoted before retrying, which the
// caller can do safely because issuance is idempotent.
func (e *Engine) Cast(ctx context.Context, electionID, optionID int64) (*CastResult, error) {
	res := &CastResult{}

	// Eligibility gate: registered key, open election, option membership,
	// not voted yet. All checked before any token is requested.
	profile, err := e.client.Me(ctx)
	if err != nil {
		return res, e.fail(res, StepCheckEligibility, err)
	}
	if !profile.HasPublicKey {
		return res, e.fail(res, StepCheckEligibility, common.ErrNoPublicKey)
	}
	el, err := e.client.GetElection(ctx, electionID)
	if err != nil {
		return res, e.fail(res, StepCheckEligibility, err)
	}
	w := election.Window{IsActive: el.IsActive, StartDate: el.StartDate, EndDate: el.EndDate}
	if !election.IsOpen(w, e.now()) {
		return res, e.fail(res, StepCheckEligibility, common.ErrElectionNotOpen)
	}
	if !hasOption(el, optionID) {
		return res, e.fail(res, StepCheckEligibility, common.ErrorValidation)
	}
	voted, err := e.client.HasVoted(ctx, electionID)
	if err != nil {
		return res, e.fail(res, StepCheckEligibility, err)
	}
	if voted {
		return res, e.fail(res, StepCheckEligibility, common.ErrAlreadyVoted)
	}
	e.log(res, StepCheckEligibility, "eligible")

	pub, err := e.institutionKey(ctx, electionID)
	if err != nil {
		return res, e.fail(res, StepFetchElectionKey, err)
	}
	e.log(res, StepFetchElectionKey, "institution key loaded")

	secret, blinded, err := e.loadOrBlind(ctx, profile.ID, electionID, pub)
	if err != nil {
		return res, e.fail(res, StepBlindToken, err)
	}
	e.log(res, StepBlindToken, "token blinded")

	token, err := e.client.IssueToken(ctx, electionID, blinded)
	if err != nil {
		return res, e.fail(res, StepObtainSignature, err)
	}
	if !token.IsSigned || token.SignedToken == nil {
		return res, e.fail(res, StepObtainSignature, common.ErrTokenNotSigned)
	}
	e.log(res, StepObtainSignature, "institution signature obtained")

	proof, err := e.unblindProof(ctx, electionID, pub, secret, token, blinded)
	if err != nil {
		return res, e.fail(res, StepUnblind, err)
	}
	e.log(res, StepUnblind, "eligibility proof prepared")

	ballot, err := e.buildBallot(ctx, profile.ID, electionID, optionID, proof)
	if err != nil {
		return res, e.fail(res, StepSignReceipt, err)
	}
	e.log(res, StepSignReceipt, "ballot hashed, receipt signed")

	receipt, err := e.client.CastVote(ctx, electionID, *ballot)
	if err != nil {
		return res, e.fail(res, StepSubmitVote, err)
	}
	res.Receipt = receipt
	e.log(res, StepSubmitVote, "vote accepted")

	stored := &store.StoredReceipt{
		ElectionID:  electionID,
		ReceiptHash: receipt.ReceiptHash,
		Signature:   receipt.DigitalSignature,
		VotedAt:     receipt.VotedAt,
	}
	if err := e.receipts.Save(ctx, stored); err != nil {
		// The vote is already durable server-side; a vault write failure
		// must not look like a failed cast.
		e.log(res, StepSaveReceipt, "receipt not cached: "+err.Error())
		return res, nil
	}
	e.log(res, StepSaveReceipt, "receipt stored in vault")

	return res, nil
}

// Receipt returns the locally cached receipt, falling back to the server
// copy when the vault has none.
func (e *Engine) Receipt(ctx context.Context, electionID int64) (*api.Receipt, error) {
	cached, err := e.receipts.Get(ctx, electionID)
	if err == nil {
		return &api.Receipt{
			ElectionID:       cached.ElectionID,
			ReceiptHash:      cached.ReceiptHash,
			DigitalSignature: cached.Signature,
			VotedAt:          cached.VotedAt,
		}, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	return e.client.GetReceipt(ctx, electionID)
}

func (e *Engine) institutionKey(ctx context.Context, electionID int64) (*rsa.PublicKey, error) {
	pubPEM, err := e.client.ElectionPublicKey(ctx, electionID)
	if err != nil {
		return nil, err
	}
	pub, err := votecrypt.ParsePublicKeyPEM(pubPEM)
	if err != nil {
		return nil, common.ErrCryptoUnavailable
	}
	return pub, nil
}

// loadOrBlind returns the stored blinding secret and its blinded form,
// blinding a fresh token when the vault has none. The secret is persisted
// before the blinded value is returned, so a crash between blinding and
// issuance cannot orphan a server-side token.
func (e *Engine) loadOrBlind(ctx context.Context, voterID, electionID int64, pub *rsa.PublicKey) (*votecrypt.BlindingSecret, string, error) {
	existing, err := e.secrets.Get(ctx, electionID)
	if err == nil {
		secret, err := existing.Secret()
		if err != nil {
			return nil, "", err
		}
		blinded, err := votecrypt.Reblind(pub, secret)
		if err != nil {
			return nil, "", common.ErrCryptoUnavailable
		}
		return secret, blinded, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, "", err
	}

	token, err := votecrypt.NewTokenID(voterID, electionID, e.now())
	if err != nil {
		return nil, "", common.ErrCryptoUnavailable
	}
	blinded, secret, err := votecrypt.Blind(pub, token)
	if err != nil {
		return nil, "", common.ErrCryptoUnavailable
	}

	saved := &store.VoteSecret{
		ElectionID: electionID,
		Token:      secret.Token,
		RHex:       secret.RHex(),
		CreatedAt:  e.now(),
	}
	if err := e.secrets.Save(ctx, saved); err != nil {
		return nil, "", err
	}
	return secret, blinded, nil
}

// unblindProof turns the institution's signature into the proof submitted
// with the vote. When the server returned a token issued for a different
// blinding (the vault was wiped after issuance, so the local secret does
// not match), the raw signed token is sent as-is; the server accepts that
// legacy form.
func (e *Engine) unblindProof(ctx context.Context, electionID int64, pub *rsa.PublicKey, secret *votecrypt.BlindingSecret, token *api.BlindToken, blinded string) (string, error) {
	if token.BlindedToken != "" && token.BlindedToken != blinded {
		return *token.SignedToken, nil
	}

	sig, err := votecrypt.Unblind(pub, *token.SignedToken, secret)
	if err != nil {
		return "", common.ErrCryptoUnavailable
	}
	if err := votecrypt.VerifyUnblinded(pub, secret.Token, sig); err != nil {
		return "", common.ErrInvalidToken
	}

	if err := e.secrets.SetUnblindedSignature(ctx, electionID, sig); err != nil {
		return "", err
	}
	return votecrypt.UnblindedProof{Token: secret.Token, Signature: sig}.Encode(), nil
}

// buildBallot constructs the payload and both hashes locally and signs the
// receipt hash with the voter's own key. The server can re-derive every
// hash but cannot produce the signature, so a receipt proves the voter
// made it.
func (e *Engine) buildBallot(ctx context.Context, voterID, electionID, optionID int64, proof string) (*api.Ballot, error) {
	priv, err := e.signer.PrivateKey(ctx)
	if err != nil {
		return nil, err
	}

	nonce, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, common.ErrCryptoUnavailable
	}
	payload := votecrypt.VotePayload{
		ElectionID: electionID,
		OptionID:   optionID,
		Timestamp:  e.now().Unix(),
		Nonce:      nonce,
	}
	encoded, err := payload.Encode()
	if err != nil {
		return nil, err
	}

	voteHash := payload.VoteHash()
	receiptHash := votecrypt.HashReceipt(voterID, electionID, voteHash, payload.Timestamp)
	receiptSig, err := votecrypt.SignReceipt(priv, receiptHash)
	if err != nil {
		return nil, err
	}

	return &api.Ballot{
		OptionID:           optionID,
		UnblindedSignature: proof,
		VoteHash:           voteHash,
		VotePayload:        encoded,
		ReceiptHash:        receiptHash,
		ReceiptSignature:   receiptSig,
	}, nil
}

func (e *Engine) log(res *CastResult, step Step, detail string) {
	res.Log = append(res.Log, LogEntry{Step: step, At: e.now(), Detail: detail})
}

func (e *Engine) fail(res *CastResult, step Step, err error) error {
	res.Log = append(res.Log, LogEntry{Step: step, At: e.now(), Err: err})
	return err
}

func hasOption(el *api.Election, optionID int64) bool {
	for _, o := range el.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}
