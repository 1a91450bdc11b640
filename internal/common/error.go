// Package common defines shared constants and sentinel errors used across
// client and server layers of blindvote. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors (malformed or mismatched option/election reference).
	ErrorValidation = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Voting protocol errors. These map one-to-one onto the error codes the
	// server returns, so the client can rebuild them with errors.Is.
	ErrCryptoUnavailable = errors.New("crypto unavailable")
	ErrTokenNotSigned    = errors.New("token not signed")
	ErrElectionNotOpen   = errors.New("election not open")
	ErrAlreadyVoted      = errors.New("already voted")
	ErrTokenUsed         = errors.New("blind token already used")
	ErrNoPublicKey       = errors.New("voter has no registered public key")
	ErrDuplicateVoteHash = errors.New("duplicate vote hash")

	// ErrNetwork marks transient transport failures. The whole casting flow is
	// safe to retry after it: token issuance and the atomic cast are both
	// idempotent/conflict-detecting on the server.
	ErrNetwork = errors.New("network error")
)
