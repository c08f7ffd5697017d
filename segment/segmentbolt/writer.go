package segmentbolt

import (
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/revstream/revstream-go/segment"
)

// writer buffers submitted events and commits them in one update
// transaction on Flush. Results are delivered only after the transaction
// commits, so an acknowledged append is durable.
type writer struct {
	store   *Store
	id      segment.ID
	pending []*segment.PendingEvent
	closed  bool
}

func (w *writer) Submit(ev *segment.PendingEvent) error {
	if w.closed {
		return segment.ErrWriterClosed
	}
	if len(ev.Payload) > segment.MaxPayloadSize {
		return segment.ErrPayloadTooLarge
	}
	w.pending = append(w.pending, ev)
	return nil
}

func (w *writer) Flush() error {
	if err := w.store.check(); err != nil {
		return err
	}
	if len(w.pending) == 0 {
		// Nothing to commit, but a sealed segment is still reported.
		return w.store.db.View(func(tx *bbolt.Tx) error {
			_, st, err := getSegment(tx, w.id)
			if err != nil {
				return err
			}
			if st.Sealed {
				return segment.ErrSealed
			}
			return nil
		})
	}

	events := w.pending
	w.pending = nil
	results := make([]segment.Result, len(events))

	err := w.store.db.Update(func(tx *bbolt.Tx) error {
		b, st, err := getSegment(tx, w.id)
		if err != nil {
			return err
		}
		if st.Sealed {
			return segment.ErrSealed
		}
		log := b.Bucket(logBucket)
		for i, ev := range events {
			if ev.Conditional() && ev.ExpectedOffset != st.WriteOffset {
				results[i] = segment.Result{Committed: false}
				continue
			}
			if err := log.Put(offsetKey(st.WriteOffset), frame(ev.Payload)); err != nil {
				return err
			}
			st.WriteOffset += segment.FrameOverhead + int64(len(ev.Payload))
			results[i] = segment.Result{Committed: true}
		}
		return putState(b, st)
	})
	if err != nil {
		// Nothing committed; the caller sees the flush error and the
		// events never resolve.
		return err
	}

	for i, ev := range events {
		ev.Complete(results[i])
		w.store.logger.Debug("flushed event",
			zap.String("segment", string(w.id)),
			zap.String("writer", ev.WriterID.String()),
			zap.Bool("committed", results[i].Committed))
	}
	return nil
}

func (w *writer) Close() error {
	if w.closed {
		return nil
	}
	err := w.Flush()
	w.closed = true
	return err
}
