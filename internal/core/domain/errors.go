package domain

import "errors"

// Error taxonomy of the conversion pipeline. Callers classify failures with
// errors.Is; the HTTP layer maps each class to a status code.
var (
	// ErrInvalidParameter marks bad or missing request inputs.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrModelUnreachable marks network or auth failure against the store.
	ErrModelUnreachable = errors.New("model store unreachable")

	// ErrModelNotFound marks a reference the store does not know.
	ErrModelNotFound = errors.New("model not found")

	// ErrModelMalformed marks a payload that cannot be parsed as a node graph.
	ErrModelMalformed = errors.New("model payload malformed")

	// ErrUnsupportedGeometry marks a per-node payload shape no extraction rule
	// recognizes. Recovered locally: the node is skipped, the request proceeds.
	ErrUnsupportedGeometry = errors.New("unsupported geometry")

	// ErrTransformFailure marks a non-finite transform result. Request-fatal:
	// parameter ranges were validated up front, so this is an internal bug.
	ErrTransformFailure = errors.New("coordinate transform failure")
)
