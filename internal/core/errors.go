package core

import "fmt"

// InvalidInputError reports a contract violation by the caller: a missing
// embedding, malformed keyword weights, a non-positive k. It is surfaced
// synchronously and never silently corrected.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// NewInvalidInput builds an InvalidInputError with a formatted reason.
func NewInvalidInput(format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}

// UpstreamUnavailableError reports that an external collaborator (embedding
// provider, vector index) was unreachable or timed out. The core does not
// retry; retry policy belongs to the calling orchestration layer.
type UpstreamUnavailableError struct {
	Op  string
	Err error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("upstream unavailable during %s: %v", e.Op, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

// ModelMismatchError reports a dimensionality disagreement between a query
// embedding and the vectors already stored in the index. A silent mismatch
// would produce meaningless similarity scores, so it is always surfaced.
type ModelMismatchError struct {
	Want int // Dimensionality recorded in the index
	Got  int // Dimensionality of the offending embedding
}

func (e *ModelMismatchError) Error() string {
	return fmt.Sprintf("embedding dimensionality mismatch: index stores %d-dim vectors, got %d-dim", e.Want, e.Got)
}
