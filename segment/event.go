package segment

import "github.com/google/uuid"

// Unconditional is the ExpectedOffset value for appends that commit
// regardless of the segment's current write offset.
const Unconditional int64 = -1

// Result is the outcome of one pending event, delivered at most once on the
// event's Result channel by the flush that commits or rejects it. A flush
// that fails delivers no result.
type Result struct {
	// Committed is true if the append was applied. For conditional events
	// it is false when the segment's write offset differed from
	// ExpectedOffset; that is a rejection, not an error.
	Committed bool

	// Err is set for asynchronous failures reported for one event. A sealed
	// segment is reported by Writer.Flush instead, with no result delivered.
	// When Err is non-nil Committed is false.
	Err error
}

// PendingEvent is one serialized payload queued for append.
type PendingEvent struct {
	// WriterID identifies the writer that produced the event.
	WriterID uuid.UUID

	// Payload is the serialized record body, without framing.
	Payload []byte

	// ExpectedOffset makes the append conditional: the provider commits
	// only if the segment's write offset equals it at commit time.
	// Unconditional (-1) disables the check.
	ExpectedOffset int64

	// Result receives the event's outcome. Buffered so providers never
	// block delivering it.
	Result chan Result
}

// NewPendingEvent returns an unconditional pending event.
func NewPendingEvent(writerID uuid.UUID, payload []byte) *PendingEvent {
	return &PendingEvent{
		WriterID:       writerID,
		Payload:        payload,
		ExpectedOffset: Unconditional,
		Result:         make(chan Result, 1),
	}
}

// NewConditionalEvent returns a pending event that commits only if the
// segment's write offset equals expectedOffset at commit time.
func NewConditionalEvent(writerID uuid.UUID, payload []byte, expectedOffset int64) *PendingEvent {
	return &PendingEvent{
		WriterID:       writerID,
		Payload:        payload,
		ExpectedOffset: expectedOffset,
		Result:         make(chan Result, 1),
	}
}

// Conditional reports whether the event carries an offset condition.
func (ev *PendingEvent) Conditional() bool {
	return ev.ExpectedOffset != Unconditional
}

// Complete delivers the event's result. Providers call it at most once per
// event, and not at all when the flush fails; a second call is dropped.
func (ev *PendingEvent) Complete(res Result) {
	select {
	case ev.Result <- res:
	default:
	}
}
