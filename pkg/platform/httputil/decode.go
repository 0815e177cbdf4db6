package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"trustgraph/pkg/apperrors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeAndValidate decodes the JSON body into T and runs struct validation.
// On failure the 400 response is already written and ok is false.
func DecodeAndValidate[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, apperrors.New(apperrors.CodeInvalidInput, "malformed JSON body"))
		return req, false
	}
	if err := validate.Struct(req); err != nil {
		WriteError(w, apperrors.New(apperrors.CodeInvalidInput, validationMessage(err)))
		return req, false
	}
	return req, true
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "invalid request body"
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fe.Field()+" failed "+fe.Tag()+" validation")
	}
	return strings.Join(parts, "; ")
}
