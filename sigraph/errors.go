package sigraph

import (
	"errors"

	"github.com/sigraph-ai/sigraph/provenance"
)

// ErrInvalidInput marks caller-supplied data that cannot be processed. It is
// the same sentinel the provenance codec uses, so precondition failures and
// decode failures classify identically under errors.Is.
var ErrInvalidInput = provenance.ErrInvalidInput

var (
	// ErrInvalidElement reports a violation of an invariant the graph
	// itself should guarantee, such as two nodes of the same label sharing
	// an artifact. It indicates a data-integrity bug, not a caller error.
	ErrInvalidElement = errors.New("invalid graph element")

	// ErrGraphDBInteraction wraps any graph client failure raised during
	// behavior logic. The offending identifiers are attached to the
	// message and the underlying failure stays reachable via errors.Is.
	ErrGraphDBInteraction = errors.New("graph database interaction failed")
)
