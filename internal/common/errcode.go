package common

import "errors"

// Wire error codes. The server puts one of these in every error response and
// the client turns it back into the matching sentinel, so errors.Is works
// the same on both sides of the HTTP boundary.
const (
	CodeNotFound          = "not_found"
	CodeInternal          = "internal"
	CodeUnauthorized      = "unauthorized"
	CodeValidation        = "validation"
	CodeInvalidToken      = "invalid_token"
	CodeCryptoUnavailable = "crypto_unavailable"
	CodeTokenNotSigned    = "token_not_signed"
	CodeElectionNotOpen   = "election_not_open"
	CodeAlreadyVoted      = "already_voted"
	CodeTokenUsed         = "token_used"
	CodeNoPublicKey       = "no_public_key"
	CodeDuplicateVoteHash = "duplicate_vote_hash"
)

var codeToError = map[string]error{
	CodeNotFound:          ErrorNotFound,
	CodeInternal:          ErrorInternal,
	CodeUnauthorized:      ErrorUnauthorized,
	CodeValidation:        ErrorValidation,
	CodeInvalidToken:      ErrInvalidToken,
	CodeCryptoUnavailable: ErrCryptoUnavailable,
	CodeTokenNotSigned:    ErrTokenNotSigned,
	CodeElectionNotOpen:   ErrElectionNotOpen,
	CodeAlreadyVoted:      ErrAlreadyVoted,
	CodeTokenUsed:         ErrTokenUsed,
	CodeNoPublicKey:       ErrNoPublicKey,
	CodeDuplicateVoteHash: ErrDuplicateVoteHash,
}

var errorToCode = map[error]string{
	ErrorNotFound:        CodeNotFound,
	ErrorInternal:        CodeInternal,
	ErrorUnauthorized:    CodeUnauthorized,
	ErrorValidation:      CodeValidation,
	ErrInvalidToken:      CodeInvalidToken,
	ErrCryptoUnavailable: CodeCryptoUnavailable,
	ErrTokenNotSigned:    CodeTokenNotSigned,
	ErrElectionNotOpen:   CodeElectionNotOpen,
	ErrAlreadyVoted:      CodeAlreadyVoted,
	ErrTokenUsed:         CodeTokenUsed,
	ErrNoPublicKey:       CodeNoPublicKey,
	ErrDuplicateVoteHash: CodeDuplicateVoteHash,
}

// ErrorCode maps a sentinel (or anything wrapping one) to its wire code.
// Unknown errors map to CodeInternal.
func ErrorCode(err error) string {
	for sentinel, code := range errorToCode {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeInternal
}

// ErrorFromCode is the inverse of ErrorCode. Unknown codes map to
// ErrorInternal.
func ErrorFromCode(code string) error {
	if err, ok := codeToError[code]; ok {
		return err
	}
	return ErrorInternal
}
