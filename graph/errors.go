package graph

import (
	"errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Sentinel errors for graph client operations.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrInvalidInput indicates a caller error: a node missing its primary
	// key property, an endpoint label with no configured primary key, or a
	// malformed query argument. Never retried.
	ErrInvalidInput = errors.New("invalid graph input")

	// ErrTransient marks a failure the client considers retryable. It is
	// retried internally and only surfaces once the retry budget is
	// exhausted. Test doubles wrap errors with ErrTransient to signal
	// retryability without a live driver.
	ErrTransient = errors.New("transient graph failure")

	// ErrUnreachable indicates a control-flow bug in the retry loop itself.
	// It should never be observed; treat it as fatal.
	ErrUnreachable = errors.New("unreachable retry state")
)

// isTransient reports whether an error is worth retrying. Driver errors are
// classified by the driver's own retryability rules; anything wrapping
// ErrTransient is retryable by definition.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	return neo4j.IsRetryable(err)
}
