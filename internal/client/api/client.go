// Package api is the voting client's view of the server REST API.
package api

import (
	"context"
	"time"
)

// Profile is the authenticated voter summary.
type Profile struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	DisplayName  string `json:"display_name"`
	HasPublicKey bool   `json:"has_public_key"`
	IsAdmin      bool   `json:"is_admin"`
}

type Option struct {
	ID    int64  `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type Election struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	IsActive    bool      `json:"is_active"`
	State       string    `json:"state"`
	Options     []Option  `json:"options"`
}

type BlindToken struct {
	ID           int64      `json:"id"`
	ElectionID   int64      `json:"election_id"`
	BlindedToken string     `json:"blinded_token"`
	SignedToken  *string    `json:"signed_token"`
	IsSigned     bool       `json:"is_signed"`
	IsUsed       bool       `json:"is_used"`
	CreatedAt    time.Time  `json:"created_at"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
}

// Ballot is everything the client submits with a cast: the chosen option,
// the eligibility proof, the payload with its hash, and the receipt hash
// signed with the voter's own key. The server re-derives both hashes and
// verifies the signature against the registered public key.
type Ballot struct {
	OptionID           int64  `json:"option_id"`
	UnblindedSignature string `json:"unblinded_signature"`
	VoteHash           string `json:"vote_hash"`
	VotePayload        string `json:"vote_payload"`
	ReceiptHash        string `json:"receipt_hash"`
	ReceiptSignature   string `json:"receipt_signature"`
}

type Receipt struct {
	ElectionID       int64     `json:"election_id"`
	ReceiptHash      string    `json:"receipt_hash"`
	DigitalSignature string    `json:"digital_signature"`
	VotedAt          time.Time `json:"voted_at"`
}

type OptionResult struct {
	OptionID   int64   `json:"option_id"`
	OptionText string  `json:"option_text"`
	Count      int64   `json:"count"`
	Percent    float64 `json:"percent"`
	Winner     bool    `json:"winner"`
}

// AuditToken is the admin view of one blind token. Voter identity is
// visible here: token records are eligibility bookkeeping, not votes.
type AuditToken struct {
	ID         int64      `json:"id"`
	VoterID    int64      `json:"voter_id"`
	ElectionID int64      `json:"election_id"`
	IsSigned   bool       `json:"is_signed"`
	IsUsed     bool       `json:"is_used"`
	CreatedAt  time.Time  `json:"created_at"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
}

type AuditReport struct {
	Tokens  []AuditToken   `json:"tokens"`
	Summary map[string]int `json:"summary"`
}

type Results struct {
	ElectionID int64          `json:"election_id"`
	TotalVotes int64          `json:"total_votes"`
	Options    []OptionResult `json:"options"`
	Winners    []int64        `json:"winners"`
	Tie        bool           `json:"tie"`
}

// Client talks to the voting server. Errors carry the server's sentinel via
// errors.Is; transient transport failures wrap common.ErrNetwork.
type Client interface {
	Register(ctx context.Context, username, displayName, password string) error
	Login(ctx context.Context, username, password string) error
	RegisterPublicKey(ctx context.Context, publicKeyPEM string) error
	Me(ctx context.Context) (*Profile, error)

	ListActiveElections(ctx context.Context) ([]Election, error)
	GetElection(ctx context.Context, electionID int64) (*Election, error)
	ElectionPublicKey(ctx context.Context, electionID int64) (string, error)

	IssueToken(ctx context.Context, electionID int64, blindedToken string) (*BlindToken, error)
	TokenStatus(ctx context.Context, electionID int64) (*BlindToken, error)

	CastVote(ctx context.Context, electionID int64, ballot Ballot) (*Receipt, error)
	HasVoted(ctx context.Context, electionID int64) (bool, error)
	GetReceipt(ctx context.Context, electionID int64) (*Receipt, error)

	Results(ctx context.Context, electionID int64) (*Results, error)

	AuditTokens(ctx context.Context, electionID *int64) (*AuditReport, error)
}
