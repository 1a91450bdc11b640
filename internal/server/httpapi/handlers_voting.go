package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/blindvote/blindvote/internal/common"
	"github.com/blindvote/blindvote/internal/server/models"
	"github.com/blindvote/blindvote/internal/server/services"
)

type issueTokenRequest struct {
	BlindedToken string `json:"blinded_token"`
}

type tokenView struct {
	ID           int64      `json:"id"`
	ElectionID   int64      `json:"election_id"`
	BlindedToken string     `json:"blinded_token"`
	SignedToken  *string    `json:"signed_token"`
	IsSigned     bool       `json:"is_signed"`
	IsUsed       bool       `json:"is_used"`
	CreatedAt    time.Time  `json:"created_at"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
}

func newTokenView(t *models.BlindToken) tokenView {
	return tokenView{
		ID:           t.ID,
		ElectionID:   t.ElectionID,
		BlindedToken: t.BlindedToken,
		SignedToken:  t.SignedToken,
		IsSigned:     t.IsSigned(),
		IsUsed:       t.IsUsed,
		CreatedAt:    t.CreatedAt,
		UsedAt:       t.UsedAt,
	}
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	electionID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BlindedToken == "" {
		writeError(w, common.ErrorValidation)
		return
	}

	claims := claimsFrom(r.Context())
	token, err := s.tokens.GetOrCreateBlindToken(r.Context(), claims.VoterID, electionID, req.BlindedToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newTokenView(token))
}

func (s *Server) handleTokenStatus(w http.ResponseWriter, r *http.Request) {
	electionID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	claims := claimsFrom(r.Context())
	token, err := s.tokens.GetToken(r.Context(), claims.VoterID, electionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newTokenView(token))
}

type castVoteRequest struct {
	OptionID           int64  `json:"option_id"`
	UnblindedSignature string `json:"unblinded_signature"`
	VoteHash           string `json:"vote_hash"`
	VotePayload        string `json:"vote_payload"`
	ReceiptHash        string `json:"receipt_hash"`
	ReceiptSignature   string `json:"receipt_signature"`
}

type receiptView struct {
	ElectionID       int64     `json:"election_id"`
	ReceiptHash      string    `json:"receipt_hash"`
	DigitalSignature string    `json:"digital_signature"`
	VotedAt          time.Time `json:"voted_at"`
}

func newReceiptView(rec *models.VotingReceipt) receiptView {
	return receiptView{
		ElectionID:       rec.ElectionID,
		ReceiptHash:      rec.ReceiptHash,
		DigitalSignature: rec.DigitalSignature,
		VotedAt:          rec.VotedAt,
	}
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	electionID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OptionID <= 0 || req.UnblindedSignature == "" {
		writeError(w, common.ErrorValidation)
		return
	}

	claims := claimsFrom(r.Context())
	ballot := services.Ballot{
		OptionID:         req.OptionID,
		UnblindedProof:   req.UnblindedSignature,
		VoteHash:         req.VoteHash,
		VotePayload:      req.VotePayload,
		ReceiptHash:      req.ReceiptHash,
		ReceiptSignature: req.ReceiptSignature,
	}
	receipt, err := s.voting.CastVote(r.Context(), claims.VoterID, electionID, ballot)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newReceiptView(receipt))
}

func (s *Server) handleHasVoted(w http.ResponseWriter, r *http.Request) {
	electionID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	claims := claimsFrom(r.Context())
	voted, err := s.voting.HasVoted(r.Context(), claims.VoterID, electionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"has_voted": voted})
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	electionID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	claims := claimsFrom(r.Context())
	receipt, err := s.voting.GetReceipt(r.Context(), claims.VoterID, electionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newReceiptView(receipt))
}
