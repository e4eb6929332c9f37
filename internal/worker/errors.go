package worker

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	verrs "github.com/jbellamy/veilleur/internal/errors"
)

// Error types
//
// These are error types in the temporal sense, not the general "go" error
// types sense. They are used since between activities error types are
// marshaled and type information is lost.
const (
	errTypeResolve = "resolve"
	errTypeIngest  = "ingest"
)

// Unwraps the application error from temporal into a structured error if
// possible.
//
// Returns true if the error is convertible to a structured error.
// Returns false otherwise.
func asAppErr(err error, vErr **verrs.Error) bool {
	if err == nil {
		return false
	}

	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Details(vErr) == nil
}
