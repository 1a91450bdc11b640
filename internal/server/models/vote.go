package models

import "time"

// Vote is an anonymous ballot. It deliberately carries no voter reference:
// eligibility is proven by the unblinded signature, not by identity.
type Vote struct {
	ID                 int64
	ElectionID         int64
	OptionID           int64
	UnblindedSignature string
	VoteHash           string
	VotePayload        string
	CreatedAt          time.Time
}
