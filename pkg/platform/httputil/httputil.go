// Package httputil holds the small JSON response helpers every handler uses.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"trustgraph/pkg/apperrors"
)

// WriteJSON serializes v with the given status. Encoding failures are
// swallowed; by that point the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody is the JSON error envelope shared by HTTP and RPC transports.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteError translates a coded error into the matching HTTP status and a
// stable error code in the body.
func WriteError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	WriteJSON(w, StatusFor(code), ErrorBody{Error: string(code), Message: messageOf(err)})
}

// StatusFor maps error codes to HTTP statuses. Conflicts (duplicates) are
// distinguished from bad input (check/range and referential violations).
func StatusFor(code apperrors.Code) int {
	switch code {
	case apperrors.CodeInvalidInput, apperrors.CodeForeignKeyViolation:
		return http.StatusBadRequest
	case apperrors.CodeCheckViolation:
		return http.StatusUnprocessableEntity
	case apperrors.CodeDuplicateKey:
		return http.StatusConflict
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.CodeForbidden:
		return http.StatusForbidden
	case apperrors.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func messageOf(err error) string {
	var coded *apperrors.Error
	if errors.As(err, &coded) {
		return coded.Message
	}
	return ""
}
