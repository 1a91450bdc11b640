package services

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/blindvote/blindvote/internal/common"
	"github.com/blindvote/blindvote/internal/server/config"
	"github.com/blindvote/blindvote/internal/server/models"
	"github.com/blindvote/blindvote/internal/votecrypt"
)

// castFixture wires up a voter with a real keypair, an open election with
// two options and a signed blind token, plus a verifiable unblinded proof.
type castFixture struct {
	rm        *fakeRepoManager
	s         *VotingService
	now       time.Time
	proof     string
	voterPriv *rsa.PrivateKey
}

func newCastFixture(t *testing.T, expectTx bool) *castFixture {
	t.Helper()

	now := time.Date(2025, 5, 2, 12, 0, 0, 0, time.UTC)

	rm := newFakeRepoManager()

	voterPrivPEM, voterPubPEM, err := votecrypt.GenerateKeyPairPEM()
	if err != nil {
		t.Fatalf("GenerateKeyPairPEM error: %v", err)
	}
	voterPriv, err := votecrypt.ParsePrivateKeyPEM(voterPrivPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKeyPEM error: %v", err)
	}
	rm.voters.byID[1] = &models.Voter{ID: 1, Username: "alice", PublicKeyPEM: &voterPubPEM}

	e := openElection(t, now)
	e.Options = []models.Option{
		{ID: 11, ElectionID: 7, OptionText: "Alice", OptionOrder: 1},
		{ID: 12, ElectionID: 7, OptionText: "Bob", OptionOrder: 2},
	}
	rm.elections.byID[7] = e

	priv, err := votecrypt.ParsePrivateKeyPEM(e.InstitutionKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKeyPEM error: %v", err)
	}

	tokenID, err := votecrypt.NewTokenID(1, 7, now)
	if err != nil {
		t.Fatalf("NewTokenID error: %v", err)
	}
	blinded, secret, err := votecrypt.Blind(&priv.PublicKey, tokenID)
	if err != nil {
		t.Fatalf("Blind error: %v", err)
	}
	signedBlinded, err := votecrypt.BlindSign(priv, blinded)
	if err != nil {
		t.Fatalf("BlindSign error: %v", err)
	}
	sig, err := votecrypt.Unblind(&priv.PublicKey, signedBlinded, secret)
	if err != nil {
		t.Fatalf("Unblind error: %v", err)
	}

	rm.tokens.byVoterElection[[2]int64{1, 7}] = &models.BlindToken{
		ID: 5, VoterID: 1, ElectionID: 7,
		BlindedToken: blinded, SignedToken: &signedBlinded,
	}

	db, mock := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })
	if expectTx {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	s := NewVotingService(db, rm, &config.Config{})
	s.now = func() time.Time { return now }

	return &castFixture{
		rm:        rm,
		s:         s,
		now:       now,
		proof:     votecrypt.UnblindedProof{Token: tokenID, Signature: sig}.Encode(),
		voterPriv: voterPriv,
	}
}

// ballot builds a cast input the way the client does: payload and hashes
// derived locally, receipt hash signed with the voter's own key.
func (f *castFixture) ballot(t *testing.T, optionID int64) Ballot {
	t.Helper()

	nonce, err := common.MakeRandHexString(16)
	if err != nil {
		t.Fatalf("MakeRandHexString error: %v", err)
	}
	payload := votecrypt.VotePayload{
		ElectionID: 7,
		OptionID:   optionID,
		Timestamp:  f.now.Unix(),
		Nonce:      nonce,
	}
	encoded, err := payload.Encode()
	if err != nil {
		t.Fatalf("payload encode error: %v", err)
	}

	voteHash := payload.VoteHash()
	receiptHash := votecrypt.HashReceipt(1, 7, voteHash, payload.Timestamp)
	receiptSig, err := votecrypt.SignReceipt(f.voterPriv, receiptHash)
	if err != nil {
		t.Fatalf("SignReceipt error: %v", err)
	}

	return Ballot{
		OptionID:         optionID,
		UnblindedProof:   f.proof,
		VoteHash:         voteHash,
		VotePayload:      encoded,
		ReceiptHash:      receiptHash,
		ReceiptSignature: receiptSig,
	}
}

func TestCastVote_HappyPath(t *testing.T) {
	f := newCastFixture(t, true)
	b := f.ballot(t, 11)

	receipt, err := f.s.CastVote(context.Background(), 1, 7, b)
	if err != nil {
		t.Fatalf("CastVote error: %v", err)
	}

	// vote stored anonymously with the client-built payload
	vote := f.rm.votes.created
	if vote == nil || vote.ElectionID != 7 || vote.OptionID != 11 {
		t.Fatalf("unexpected vote: %+v", vote)
	}
	if vote.VotePayload != b.VotePayload || vote.VoteHash != b.VoteHash {
		t.Fatalf("stored vote does not match submitted ballot")
	}

	var payload votecrypt.VotePayload
	if err := json.Unmarshal([]byte(vote.VotePayload), &payload); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	if vote.VoteHash != votecrypt.HashVote(7, 11, payload.Timestamp, payload.Nonce) {
		t.Fatalf("vote hash does not match payload")
	}

	// token spent
	if f.rm.tokens.markUsedID != 5 {
		t.Fatalf("token not marked used")
	}

	// receipt carries the voter-signed hash unchanged
	if receipt.VoterID != 1 || receipt.ElectionID != 7 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if receipt.ReceiptHash != b.ReceiptHash || receipt.DigitalSignature != b.ReceiptSignature {
		t.Fatalf("receipt does not match submitted ballot")
	}

	// the signature verifies under the voter's key, not the institution's:
	// only the holder of the registered private key can produce a receipt
	if err := votecrypt.VerifyReceiptSignature(&f.voterPriv.PublicKey, receipt.ReceiptHash, receipt.DigitalSignature); err != nil {
		t.Fatalf("receipt signature invalid under voter key: %v", err)
	}
	instPriv, _ := votecrypt.ParsePrivateKeyPEM(f.rm.elections.byID[7].InstitutionKeyPEM)
	if err := votecrypt.VerifyReceiptSignature(&instPriv.PublicKey, receipt.ReceiptHash, receipt.DigitalSignature); err == nil {
		t.Fatalf("receipt signature unexpectedly verifies under the institution key")
	}
}

func TestCastVote_NoPublicKey(t *testing.T) {
	f := newCastFixture(t, false)
	b := f.ballot(t, 11)
	f.rm.voters.byID[1].PublicKeyPEM = nil

	_, err := f.s.CastVote(context.Background(), 1, 7, b)
	if !errors.Is(err, common.ErrNoPublicKey) {
		t.Fatalf("want ErrNoPublicKey, got %v", err)
	}
}

func TestCastVote_ElectionClosed(t *testing.T) {
	f := newCastFixture(t, false)
	f.rm.elections.byID[7].EndDate = f.now.Add(-time.Minute)

	_, err := f.s.CastVote(context.Background(), 1, 7, f.ballot(t, 11))
	if !errors.Is(err, common.ErrElectionNotOpen) {
		t.Fatalf("want ErrElectionNotOpen, got %v", err)
	}
}

func TestCastVote_OptionFromOtherElection(t *testing.T) {
	f := newCastFixture(t, false)

	_, err := f.s.CastVote(context.Background(), 1, 7, f.ballot(t, 999))
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want ErrorValidation, got %v", err)
	}
}

func TestCastVote_TokenNotSigned(t *testing.T) {
	f := newCastFixture(t, false)
	f.rm.tokens.byVoterElection[[2]int64{1, 7}].SignedToken = nil

	_, err := f.s.CastVote(context.Background(), 1, 7, f.ballot(t, 11))
	if !errors.Is(err, common.ErrTokenNotSigned) {
		t.Fatalf("want ErrTokenNotSigned, got %v", err)
	}
}

func TestCastVote_TokenAlreadyUsed(t *testing.T) {
	f := newCastFixture(t, false)
	f.rm.tokens.byVoterElection[[2]int64{1, 7}].IsUsed = true

	_, err := f.s.CastVote(context.Background(), 1, 7, f.ballot(t, 11))
	if !errors.Is(err, common.ErrTokenUsed) {
		t.Fatalf("want ErrTokenUsed, got %v", err)
	}
}

func TestCastVote_ForgedProof(t *testing.T) {
	f := newCastFixture(t, false)

	b := f.ballot(t, 11)
	b.UnblindedProof = votecrypt.UnblindedProof{Token: "someone-elses-token", Signature: "00ff"}.Encode()
	_, err := f.s.CastVote(context.Background(), 1, 7, b)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestCastVote_AlreadyVoted(t *testing.T) {
	f := newCastFixture(t, false)
	f.rm.receipts.byVoterElection[[2]int64{1, 7}] = &models.VotingReceipt{ID: 1}

	_, err := f.s.CastVote(context.Background(), 1, 7, f.ballot(t, 11))
	if !errors.Is(err, common.ErrAlreadyVoted) {
		t.Fatalf("want ErrAlreadyVoted, got %v", err)
	}
}

func TestCastVote_ReceiptSignedByWrongKey(t *testing.T) {
	f := newCastFixture(t, false)

	// a receipt signature produced with the institution key instead of the
	// voter's own must be rejected, otherwise the server could forge receipts
	b := f.ballot(t, 11)
	instPriv, err := votecrypt.ParsePrivateKeyPEM(f.rm.elections.byID[7].InstitutionKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKeyPEM error: %v", err)
	}
	b.ReceiptSignature, err = votecrypt.SignReceipt(instPriv, b.ReceiptHash)
	if err != nil {
		t.Fatalf("SignReceipt error: %v", err)
	}

	_, err = f.s.CastVote(context.Background(), 1, 7, b)
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want ErrorValidation, got %v", err)
	}
}

func TestCastVote_VoteHashMismatch(t *testing.T) {
	f := newCastFixture(t, false)

	b := f.ballot(t, 11)
	b.VoteHash = votecrypt.HashVote(7, 12, f.now.Unix(), "other-nonce")

	_, err := f.s.CastVote(context.Background(), 1, 7, b)
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want ErrorValidation, got %v", err)
	}
}

func TestCastVote_PayloadElectionMismatch(t *testing.T) {
	f := newCastFixture(t, false)

	b := f.ballot(t, 11)
	payload := votecrypt.VotePayload{ElectionID: 8, OptionID: 11, Timestamp: f.now.Unix(), Nonce: "aa"}
	b.VotePayload, _ = payload.Encode()

	_, err := f.s.CastVote(context.Background(), 1, 7, b)
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want ErrorValidation, got %v", err)
	}
}

func TestCastVote_DuplicateVoteHash(t *testing.T) {
	f := newCastFixture(t, false)

	b := f.ballot(t, 11)
	f.rm.votes.hashes[b.VoteHash] = true

	_, err := f.s.CastVote(context.Background(), 1, 7, b)
	if !errors.Is(err, common.ErrDuplicateVoteHash) {
		t.Fatalf("want ErrDuplicateVoteHash, got %v", err)
	}
}

func TestCastVote_LegacyRawSignedToken(t *testing.T) {
	f := newCastFixture(t, true)

	// a client that lost its blinding secret falls back to sending the
	// stored signed value verbatim
	raw := *f.rm.tokens.byVoterElection[[2]int64{1, 7}].SignedToken
	if _, ok := votecrypt.DecodeUnblindedProof(raw); ok {
		t.Fatalf("fixture signed token unexpectedly parses as a proof pair")
	}

	b := f.ballot(t, 11)
	b.UnblindedProof = raw
	if _, err := f.s.CastVote(context.Background(), 1, 7, b); err != nil {
		t.Fatalf("CastVote with legacy proof error: %v", err)
	}
}

func TestCastVote_LegacyMismatchRejected(t *testing.T) {
	f := newCastFixture(t, false)

	b := f.ballot(t, 11)
	b.UnblindedProof = "deadbeef"
	_, err := f.s.CastVote(context.Background(), 1, 7, b)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestHasVoted(t *testing.T) {
	f := newCastFixture(t, false)

	voted, err := f.s.HasVoted(context.Background(), 1, 7)
	if err != nil || voted {
		t.Fatalf("want not voted, got %v %v", voted, err)
	}

	f.rm.receipts.byVoterElection[[2]int64{1, 7}] = &models.VotingReceipt{ID: 1}
	voted, err = f.s.HasVoted(context.Background(), 1, 7)
	if err != nil || !voted {
		t.Fatalf("want voted, got %v %v", voted, err)
	}
}
