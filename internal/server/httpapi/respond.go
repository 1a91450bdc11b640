package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/blindvote/blindvote/internal/common"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a sentinel to an HTTP status and a wire error code.
// Unrecognized errors deliberately collapse to a bare internal error so
// driver and SQL details never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	code := common.ErrorCode(err)
	writeJSON(w, statusFor(err), errorResponse{Code: code, Message: common.ErrorFromCode(code).Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrElectionNotOpen),
		errors.Is(err, common.ErrAlreadyVoted),
		errors.Is(err, common.ErrTokenUsed),
		errors.Is(err, common.ErrTokenNotSigned),
		errors.Is(err, common.ErrNoPublicKey),
		errors.Is(err, common.ErrDuplicateVoteHash):
		return http.StatusConflict
	case errors.Is(err, common.ErrCryptoUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
