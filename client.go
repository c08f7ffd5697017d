package revstream

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/revstream/revstream-go/segment"
)

// Client is a revisioned stream client bound to one append-only segment.
//
// It exposes the segment as a log of strongly-ordered typed values where
// every value is addressable by a Revision, supports optimistic concurrency
// through conditional appends, keeps a single persistent mark with
// compare-and-set semantics, and permits prefix truncation.
//
// A Client is safe for concurrent use. Internally one mutex guards the
// reader, writer and metadata handles, so interleaving iteration with
// appends from other goroutines is safe but serialized.
type Client[T any] struct {
	segment  segment.ID
	writerID uuid.UUID
	ser      Serializer[T]
	token    string
	logger   *zap.Logger

	// mu guards reader, writer and the closed flag, and meta in every
	// method except OldestRevision and TruncateTo.
	mu     sync.Mutex
	reader segment.Reader
	writer segment.Writer
	meta   segment.MetadataClient
	closed bool
}

// New creates a client bound to one segment. The client takes exclusive
// ownership of the reader, writer and metadata handles for its lifetime and
// releases them on Close.
func New[T any](id segment.ID, reader segment.Reader, writer segment.Writer, meta segment.MetadataClient, ser Serializer[T], opts ...Option) *Client[T] {
	cfg := &config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client[T]{
		segment:  id,
		writerID: uuid.New(),
		ser:      ser,
		token:    cfg.token,
		logger:   cfg.logger,
		reader:   reader,
		writer:   writer,
		meta:     meta,
	}
}

// Segment returns the id of the segment the client is bound to.
func (c *Client[T]) Segment() segment.ID {
	return c.segment
}

// Write appends a value unconditionally and returns once it is committed.
func (c *Client[T]) Write(ctx context.Context, value T) error {
	payload, err := c.ser.Serialize(value)
	if err != nil {
		return newClientError("write", c.segment, err)
	}

	ev := segment.NewPendingEvent(c.writerID, payload)
	_, _, err = c.submit(ctx, "write", ev)
	return err
}

// WriteConditionally appends a value only if the segment's write offset
// still equals the expected revision's offset at commit time.
//
// On commit it returns the revision after the new record and true. A
// rejection because another append got there first returns false with a nil
// error; the caller re-reads and retries.
func (c *Client[T]) WriteConditionally(ctx context.Context, expected Revision, value T) (Revision, bool, error) {
	if expected.segment != c.segment {
		return Revision{}, false, newClientError("write", c.segment, ErrWrongSegment)
	}

	payload, err := c.ser.Serialize(value)
	if err != nil {
		return Revision{}, false, newClientError("write", c.segment, err)
	}

	ev := segment.NewConditionalEvent(c.writerID, payload, expected.offset)
	_, committed, err := c.submit(ctx, "write", ev)
	if err != nil {
		return Revision{}, false, err
	}
	if !committed {
		c.logger.Debug("conditional write rejected",
			zap.String("segment", string(c.segment)),
			zap.Int64("offset", expected.offset))
		return Revision{}, false, nil
	}

	next := nextOffset(expected.offset, len(payload))
	c.logger.Debug("wrote",
		zap.String("segment", string(c.segment)),
		zap.Int64("from", expected.offset),
		zap.Int64("to", next))
	return newRevision(c.segment, next), true, nil
}

// submit queues one event, flushes, and waits for its result. Submission,
// flush and the wait all happen under the client mutex so a conditional
// append's offset check cannot race another append on this client.
func (c *Client[T]) submit(ctx context.Context, op string, ev *segment.PendingEvent) (segment.Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return segment.Result{}, false, newClientError(op, c.segment, ErrClientClosed)
	}
	if err := c.writer.Submit(ev); err != nil {
		return segment.Result{}, false, newClientError(op, c.segment, err)
	}
	if err := c.writer.Flush(); err != nil {
		if errors.Is(err, segment.ErrSealed) {
			return segment.Result{}, false, newClientError(op, c.segment, ErrCorruptedState)
		}
		return segment.Result{}, false, newClientError(op, c.segment, err)
	}

	select {
	case res := <-ev.Result:
		if res.Err != nil {
			if errors.Is(res.Err, segment.ErrSealed) {
				return res, false, newClientError(op, c.segment, ErrCorruptedState)
			}
			return res, false, newClientError(op, c.segment, res.Err)
		}
		return res, res.Committed, nil
	case <-ctx.Done():
		// The append may still commit; the client does not undo it.
		return segment.Result{}, false, newClientError(op, c.segment, ctx.Err())
	}
}

// ReadFrom returns an iterator over the entries committed in
// [start, writeOffset), where the write offset is sampled now. Entries
// appended after the call are not yielded; call ReadFrom again to observe
// them.
//
// Returns ErrTruncated if start is below the segment's starting offset.
func (c *Client[T]) ReadFrom(ctx context.Context, start Revision) (*Iterator[T], error) {
	if start.segment != c.segment {
		return nil, newClientError("read", c.segment, ErrWrongSegment)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, newClientError("read", c.segment, ErrClientClosed)
	}
	info, err := c.meta.Info(ctx, c.token)
	if err != nil {
		return nil, newClientError("read", c.segment, err)
	}
	if start.offset < info.StartOffset {
		return nil, newClientError("read", c.segment, ErrTruncated)
	}

	c.logger.Debug("creating iterator",
		zap.String("segment", string(c.segment)),
		zap.Int64("from", start.offset),
		zap.Int64("until", info.WriteOffset))

	it := &Iterator[T]{client: c, ctx: ctx, end: info.WriteOffset}
	it.cursor.Store(start.offset)
	return it, nil
}

// LatestRevision returns the revision at the segment's current write
// offset, the position a new append would be committed at.
func (c *Client[T]) LatestRevision(ctx context.Context) (Revision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Revision{}, newClientError("info", c.segment, ErrClientClosed)
	}
	offset, err := c.meta.WriteOffset(ctx, c.token)
	if err != nil {
		return Revision{}, newClientError("info", c.segment, err)
	}
	return newRevision(c.segment, offset), nil
}

// OldestRevision returns the oldest readable revision, which truncation
// advances.
func (c *Client[T]) OldestRevision(ctx context.Context) (Revision, error) {
	info, err := c.meta.Info(ctx, c.token)
	if err != nil {
		return Revision{}, newClientError("info", c.segment, err)
	}
	return newRevision(c.segment, info.StartOffset), nil
}

// GetMark returns the persisted mark, or nil if it is unset.
func (c *Client[T]) GetMark(ctx context.Context) (*Revision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, newClientError("mark", c.segment, ErrClientClosed)
	}
	value, err := c.meta.Attribute(ctx, segment.MarkAttribute, c.token)
	if err != nil {
		return nil, newClientError("mark", c.segment, err)
	}
	if value == segment.NullValue {
		return nil, nil
	}
	rev := newRevision(c.segment, value)
	return &rev, nil
}

// CompareAndSetMark atomically replaces the mark with next if it currently
// equals expected. nil stands for the unset mark on both sides. Returns
// whether the swap happened.
//
// The client does not enforce monotonicity of the mark; callers compose CAS
// to get the ordering they need.
func (c *Client[T]) CompareAndSetMark(ctx context.Context, expected, next *Revision) (bool, error) {
	expectedValue, err := c.markValue(expected)
	if err != nil {
		return false, err
	}
	nextValue, err := c.markValue(next)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, newClientError("mark", c.segment, ErrClientClosed)
	}
	swapped, err := c.meta.CompareAndSetAttribute(ctx, segment.MarkAttribute, expectedValue, nextValue, c.token)
	if err != nil {
		return false, newClientError("mark", c.segment, err)
	}
	return swapped, nil
}

func (c *Client[T]) markValue(r *Revision) (int64, error) {
	if r == nil {
		return segment.NullValue, nil
	}
	if r.segment != c.segment {
		return 0, newClientError("mark", c.segment, ErrWrongSegment)
	}
	return r.offset, nil
}

// TruncateTo discards the segment's prefix below the given revision. All
// revisions before it become unreadable; reads starting below it fail with
// ErrTruncated, including iterators created before the call.
func (c *Client[T]) TruncateTo(ctx context.Context, r Revision) error {
	if r.segment != c.segment {
		return newClientError("truncate", c.segment, ErrWrongSegment)
	}
	if err := c.meta.Truncate(ctx, c.segment, r.offset, c.token); err != nil {
		return newClientError("truncate", c.segment, err)
	}
	c.logger.Debug("truncated",
		zap.String("segment", string(c.segment)),
		zap.Int64("offset", r.offset))
	return nil
}

// Close releases the writer, metadata and reader handles, in that order.
// Close is best-effort and idempotent: subsidiary close failures are logged
// as warnings, and a sealed-segment report from the writer is expected when
// the segment was sealed underneath the client.
func (c *Client[T]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if err := c.writer.Close(); err != nil {
		if errors.Is(err, segment.ErrSealed) {
			c.logger.Warn("segment sealed while closing writer",
				zap.String("segment", string(c.segment)))
		} else {
			c.logger.Warn("error closing segment writer",
				zap.String("segment", string(c.segment)), zap.Error(err))
		}
	}
	if err := c.meta.Close(); err != nil {
		c.logger.Warn("error closing segment metadata",
			zap.String("segment", string(c.segment)), zap.Error(err))
	}
	if err := c.reader.Close(); err != nil {
		c.logger.Warn("error closing segment reader",
			zap.String("segment", string(c.segment)), zap.Error(err))
	}
	return nil
}
