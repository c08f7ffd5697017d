package revstream

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/revstream/revstream-go/segment"
)

// Entry is one value of the stream together with the revision that
// addresses the position after it.
type Entry[T any] struct {
	Revision Revision
	Value    T
}

// Iterator is a single-pass reader over the entries committed between a
// start revision and the write offset sampled when the iterator was
// created. Appends that commit after creation are not yielded.
//
// Next takes the client's guard for each entry, so iteration may interleave
// with writes from other goroutines on the same client.
type Iterator[T any] struct {
	client *Client[T]
	ctx    context.Context
	cursor atomic.Int64
	end    int64
}

// HasNext returns true if the cursor has not reached the snapshot bound.
func (it *Iterator[T]) HasNext() bool {
	return it.cursor.Load() < it.end
}

// Next reads the entry at the cursor and advances past it.
//
// Returns Done when the snapshot bound has been reached, ErrTruncated when
// the cursor's data was truncated after the iterator was created, and
// ErrShrunkSegment if the provider reports end-of-segment below the bound.
func (it *Iterator[T]) Next() (Entry[T], error) {
	c := it.client

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Entry[T]{}, newClientError("read", c.segment, ErrClientClosed)
	}
	if !it.HasNext() {
		c.mu.Unlock()
		return Entry[T]{}, Done
	}

	c.reader.SetOffset(it.cursor.Load())
	payload, err := c.reader.Read(it.ctx)
	if err != nil {
		c.mu.Unlock()
		switch {
		case errors.Is(err, segment.ErrEndOfSegment):
			return Entry[T]{}, newClientError("read", c.segment, ErrShrunkSegment)
		case errors.Is(err, segment.ErrTruncated):
			return Entry[T]{}, newClientError("read", c.segment, ErrTruncated)
		default:
			return Entry[T]{}, newClientError("read", c.segment, err)
		}
	}

	// The reader's post-read position is authoritative.
	pos := c.reader.Offset()
	it.cursor.Store(pos)
	rev := newRevision(c.segment, pos)
	c.mu.Unlock()

	value, err := c.ser.Deserialize(payload)
	if err != nil {
		return Entry[T]{}, newClientError("read", c.segment, err)
	}
	return Entry[T]{Revision: rev, Value: value}, nil
}
