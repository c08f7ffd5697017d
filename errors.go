package revstream

import (
	"errors"
	"fmt"

	"github.com/revstream/revstream-go/segment"
)

// Sentinel errors for common conditions.
var (
	// Done is returned by iterators when iteration is complete.
	// Check with errors.Is(err, revstream.Done).
	Done = errors.New("revstream: no more entries in iterator")

	// ErrTruncated indicates the requested revision, or an iterator's
	// current position, is below the segment's starting offset and the
	// data has been truncated away.
	ErrTruncated = errors.New("revstream: data at the requested revision has been truncated")

	// ErrCorruptedState indicates the segment was sealed during an append.
	// The client owns exactly one segment and cannot recover from this.
	ErrCorruptedState = errors.New("revstream: segment sealed during append")

	// ErrShrunkSegment indicates the segment reported end-of-segment below
	// an iterator's snapshot bound, which violates the provider contract.
	ErrShrunkSegment = errors.New("revstream: segment shrank below the iterator bound")

	// ErrWrongSegment indicates a revision bound to a different segment
	// was passed to this client.
	ErrWrongSegment = errors.New("revstream: revision does not belong to this client's segment")

	// ErrClientClosed indicates an operation on a closed client.
	ErrClientClosed = errors.New("revstream: client is closed")
)

// ClientError wraps errors with the operation and segment that failed.
type ClientError struct {
	// Op is the operation that failed: "write", "read", "mark",
	// "truncate", "info".
	Op string

	// Segment is the id of the client's segment.
	Segment segment.ID

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	return fmt.Sprintf("revstream: %s on segment %s failed: %v", e.Op, e.Segment, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ClientError) Unwrap() error {
	return e.Err
}

func newClientError(op string, id segment.ID, err error) *ClientError {
	return &ClientError{Op: op, Segment: id, Err: err}
}
