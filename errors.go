package observe

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrNilValue reports that a compute closure or external source produced
// an absent value (nil interface or typed nil of a nilable kind). This
// is a programming contract violation, not a transient failure.
var ErrNilValue = errors.New("observe: nil value produced")

// ComputeError wraps a failure raised while building or recomputing a
// node. On the first synchronous build it is returned to the
// constructing caller; on asynchronous recomputation it is contained at
// the node and only visible to hooks.
type ComputeError struct {
	Node       NodeInfo
	Cause      error
	StackTrace []byte
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("observe: compute failed in %s (node %d): %v", e.Node.Name, e.Node.ID, e.Cause)
}

func (e *ComputeError) Unwrap() error {
	return e.Cause
}

func newComputeError(node NodeInfo, cause error) *ComputeError {
	var ce *ComputeError
	if errors.As(cause, &ce) {
		// Already wrapped further down a nested construction.
		return ce
	}
	return &ComputeError{
		Node:       node,
		Cause:      cause,
		StackTrace: debug.Stack(),
	}
}
