package votecrypt

import (
	"encoding/json"
	"fmt"

	"github.com/blindvote/blindvote/internal/common"
)

// VotePayload is the canonical ballot content. It carries no voter
// identity; the nonce makes two ballots for the same option distinct.
// The client builds and hashes it, the server re-derives the hashes from
// the encoded form before accepting the vote.
type VotePayload struct {
	ElectionID int64  `json:"election_id"`
	OptionID   int64  `json:"option_id"`
	Timestamp  int64  `json:"timestamp"`
	Nonce      string `json:"nonce"`
}

// Encode returns the JSON wire form persisted alongside the vote.
func (p VotePayload) Encode() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("%w: payload encoding", common.ErrorInternal)
	}
	return string(raw), nil
}

// VoteHash returns the integrity hash over the payload fields.
func (p VotePayload) VoteHash() string {
	return HashVote(p.ElectionID, p.OptionID, p.Timestamp, p.Nonce)
}

// DecodeVotePayload parses the JSON wire form.
func DecodeVotePayload(s string) (*VotePayload, error) {
	var p VotePayload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("%w: malformed vote payload", common.ErrorValidation)
	}
	if p.Nonce == "" {
		return nil, fmt.Errorf("%w: vote payload missing nonce", common.ErrorValidation)
	}
	return &p, nil
}
