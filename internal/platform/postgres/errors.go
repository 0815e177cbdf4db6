package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"trustgraph/pkg/apperrors"
)

// PostgreSQL error classes the stores branch on. Constraint names are stable
// identifiers, but the code is the primary contract.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
)

// TranslateError converts a driver error into a coded constraint-violation
// error. Non-constraint errors pass through unmodified so callers see the
// original failure.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case codeUniqueViolation:
		return apperrors.Wrap(err, apperrors.CodeDuplicateKey, "duplicate key: "+pqErr.Constraint)
	case codeForeignKeyViolation:
		return apperrors.Wrap(err, apperrors.CodeForeignKeyViolation, "referenced row does not exist: "+pqErr.Constraint)
	case codeCheckViolation, codeNotNullViolation:
		return apperrors.Wrap(err, apperrors.CodeCheckViolation, "check constraint failed: "+pqErr.Constraint)
	default:
		return err
	}
}

// WrapError translates constraint violations into coded errors and annotates
// everything else with the failing operation.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if translated := TranslateError(err); translated != err {
		return translated
	}
	return fmt.Errorf("%s: %w", op, err)
}
