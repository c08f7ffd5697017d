// Package segment defines the contracts a revisioned stream client consumes:
// an append-only byte segment with framed records, addressable by byte
// offset, plus per-segment numeric attributes with compare-and-set support.
//
// Implementations of these interfaces live in the segmentmem and segmentbolt
// subpackages. The revstream package is written against the interfaces only.
package segment

import (
	"context"
	"errors"
	"math"
)

// Common errors reported by segment providers.
var (
	// ErrSealed indicates the segment has been sealed and accepts no more
	// appends. Reported by Writer.Flush and Writer.Close.
	ErrSealed = errors.New("segment: segment is sealed")

	// ErrEndOfSegment indicates a read past the last committed record.
	ErrEndOfSegment = errors.New("segment: end of segment")

	// ErrTruncated indicates the requested offset is below the segment's
	// starting offset and the data is gone.
	ErrTruncated = errors.New("segment: offset has been truncated")

	// ErrNoSuchSegment indicates the segment does not exist in the store.
	ErrNoSuchSegment = errors.New("segment: no such segment")

	// ErrSegmentExists indicates a create collision.
	ErrSegmentExists = errors.New("segment: segment already exists")

	// ErrPayloadTooLarge indicates a payload above MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("segment: payload too large")

	// ErrWriterClosed indicates a submit on a closed writer.
	ErrWriterClosed = errors.New("segment: writer is closed")
)

// ID is the qualified name of one append-only segment within a store.
type ID string

// Record framing constants. Every committed record is stored as a 4-byte
// type tag, a 4-byte big-endian payload length, and the payload bytes.
// A record starting at offset o therefore ends at o + FrameOverhead + len.
const (
	// TypeSize is the width of the per-record type tag.
	TypeSize = 4

	// LengthSize is the width of the per-record length prefix.
	LengthSize = 4

	// FrameOverhead is the fixed number of bytes a provider prepends to
	// each payload.
	FrameOverhead = TypeSize + LengthSize

	// MaxPayloadSize is the maximum allowed payload size (64MB).
	MaxPayloadSize = 64 * 1024 * 1024
)

// Attribute identifies a numeric attribute slot attached to a segment.
type Attribute int64

// MarkAttribute is the well-known slot where revisioned stream clients keep
// their bookmark offset.
const MarkAttribute Attribute = 1

// NullValue is the sentinel stored in an attribute slot that is unset.
const NullValue int64 = math.MinInt64

// Info is a point-in-time snapshot of a segment's readable range.
// Bytes in [StartOffset, WriteOffset) are currently readable.
type Info struct {
	ID          ID
	StartOffset int64
	WriteOffset int64
	Sealed      bool
}

// Writer appends framed records to one segment.
//
// Events are queued with Submit and committed by Flush, which resolves each
// committed or rejected event's Result channel exactly once. A writer is not safe for concurrent
// use; callers serialize access.
type Writer interface {
	// Submit queues a pending event for the next flush.
	// Returns ErrPayloadTooLarge or ErrWriterClosed without queueing.
	Submit(ev *PendingEvent) error

	// Flush commits all queued events in submission order and delivers
	// their results. Returns ErrSealed if the segment was sealed, in which
	// case queued events are not committed and receive no result.
	Flush() error

	// Close flushes queued events and releases the writer.
	// Returns ErrSealed if the segment was sealed.
	Close() error
}

// Reader performs framed reads from one segment at explicit offsets.
// A reader is not safe for concurrent use; callers serialize access.
type Reader interface {
	// SetOffset positions the reader at a frame boundary.
	SetOffset(offset int64)

	// Read returns the payload of the record framed at the current offset
	// and advances the reader past it. Returns ErrEndOfSegment when the
	// offset is at or past the write offset, or ErrTruncated when the offset
	// is below the segment's starting offset.
	Read(ctx context.Context) ([]byte, error)

	// Offset returns the reader's current position, which after a
	// successful Read is the boundary following the record just read.
	Offset() int64

	// Close releases the reader.
	Close() error
}

// MetadataClient reads and mutates a segment's metadata and attributes.
// The token parameter is an opaque delegation credential passed through to
// the store; providers that do not authorize ignore it.
type MetadataClient interface {
	// Info returns a consistent snapshot of the segment's readable range.
	Info(ctx context.Context, token string) (Info, error)

	// WriteOffset returns the current write offset of the segment.
	WriteOffset(ctx context.Context, token string) (int64, error)

	// Attribute returns the value of an attribute slot, or NullValue if
	// the slot is unset.
	Attribute(ctx context.Context, slot Attribute, token string) (int64, error)

	// CompareAndSetAttribute atomically replaces the slot's value with
	// next if it currently holds expected. Returns whether the swap
	// happened.
	CompareAndSetAttribute(ctx context.Context, slot Attribute, expected, next int64, token string) (bool, error)

	// Truncate discards the segment's prefix below offset. Reads below the
	// new starting offset fail with ErrTruncated afterwards.
	Truncate(ctx context.Context, id ID, offset int64, token string) error

	// Close releases the metadata handle.
	Close() error
}
