package models

import "time"

// BlindToken is the per-(voter, election) eligibility token. SignedToken is
// nil only in the anomalous case where institutional signing failed at
// issuance. Once IsUsed is set the row is immutable.
type BlindToken struct {
	ID           int64
	VoterID      int64
	ElectionID   int64
	BlindedToken string
	SignedToken  *string
	IsUsed       bool
	CreatedAt    time.Time
	UsedAt       *time.Time
}

// IsSigned reports whether the institution signed this token at issuance.
func (t *BlindToken) IsSigned() bool {
	return t.SignedToken != nil && *t.SignedToken != ""
}
