// Package models holds the persisted record types of the voting server.
package models

import "time"

// Voter is a registered participant. PublicKeyPEM is nil until the voter
// completes the key workflow; without it no vote can be cast.
type Voter struct {
	ID           int64
	Username     string
	DisplayName  string
	Salt         []byte
	Verifier     []byte
	PublicKeyPEM *string
	IsAdmin      bool
	CreatedAt    time.Time
}

// HasPublicKey reports whether the voter may enter the casting flow.
func (v *Voter) HasPublicKey() bool {
	return v.PublicKeyPEM != nil && *v.PublicKeyPEM != ""
}
