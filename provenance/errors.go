package provenance

import "errors"

// ErrInvalidInput indicates that a provenance encoding or enum token was
// missing or malformed. Decoding failures are caller errors: they are never
// retried and always surface unchanged to the caller.
//
// Use errors.Is to classify:
//
//	if errors.Is(err, provenance.ErrInvalidInput) {
//	    // reject the event, do not retry
//	}
var ErrInvalidInput = errors.New("invalid provenance input")
