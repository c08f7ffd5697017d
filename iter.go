package revstream

import (
	"context"
	"errors"
	"iter"
)

// Entries returns a range iterator over the stream's entries starting at
// the given revision, bounded by the write offset sampled at the first
// step. Use with Go 1.23+ range syntax:
//
//	for entry, err := range client.Entries(ctx, start) {
//	    if err != nil {
//	        return err
//	    }
//	    process(entry.Revision, entry.Value)
//	}
func (c *Client[T]) Entries(ctx context.Context, start Revision) iter.Seq2[Entry[T], error] {
	return func(yield func(Entry[T], error) bool) {
		it, err := c.ReadFrom(ctx, start)
		if err != nil {
			yield(Entry[T]{}, err)
			return
		}
		for {
			entry, err := it.Next()
			if errors.Is(err, Done) {
				return
			}
			if !yield(entry, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}
