package models

import "time"

// Election is an admin-defined contest. InstitutionKeyPEM holds the signing
// keypair's private half; it never leaves the server process and is excluded
// from every API response.
type Election struct {
	ID                int64
	Title             string
	Description       *string
	StartDate         time.Time
	EndDate           time.Time
	IsActive          bool
	InstitutionKeyPEM string
	CreatedAt         time.Time
	Options           []Option
}

// Option is one choice within an election. OptionOrder values are unique per
// election and define display order.
type Option struct {
	ID          int64
	ElectionID  int64
	OptionText  string
	OptionOrder int
	CreatedAt   time.Time
}
