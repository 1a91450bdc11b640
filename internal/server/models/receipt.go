package models

import "time"

// VotingReceipt proves a voter participated in an election without revealing
// the chosen option. Exactly one exists per (voter, election), created in the
// same transaction as the vote.
type VotingReceipt struct {
	ID               int64
	VoterID          int64
	ElectionID       int64
	ReceiptHash      string
	DigitalSignature string
	VotedAt          time.Time
}
