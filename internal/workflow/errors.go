package workflow

import (
	"fmt"
)

// UpstreamError wraps a failed publish or registration call. It names the
// sub-operation so the caller can tell which stage of the pipeline broke.
// Upstream failures are never retried here; retry policy belongs to the
// caller, since creation is idempotent per plan id.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
