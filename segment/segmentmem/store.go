// Package segmentmem provides an in-memory segment store.
//
// It implements the segment.Writer, segment.Reader and segment.MetadataClient
// contracts over a shared Store and is the test double for code written
// against the revstream client. Seal gives tests a hook to simulate a
// segment sealed out from under a writer.
package segmentmem

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/revstream/revstream-go/segment"
)

// Store is an in-memory collection of segments.
// It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	segments map[segment.ID]*memSegment
}

type record struct {
	offset  int64 // frame start
	payload []byte
}

type memSegment struct {
	start   int64
	write   int64
	sealed  bool
	records []record
	attrs   map[segment.Attribute]int64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{segments: make(map[segment.ID]*memSegment)}
}

// Create adds an empty segment. Returns segment.ErrSegmentExists if the id
// is already present.
func (s *Store) Create(id segment.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.segments[id]; ok {
		return segment.ErrSegmentExists
	}
	s.segments[id] = &memSegment{
		attrs: make(map[segment.Attribute]int64),
	}
	return nil
}

// Seal marks the segment sealed. Subsequent flushes fail with
// segment.ErrSealed.
func (s *Store) Seal(id segment.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seg, ok := s.segments[id]
	if !ok {
		return segment.ErrNoSuchSegment
	}
	seg.sealed = true
	return nil
}

func (s *Store) lookup(id segment.ID) (*memSegment, error) {
	seg, ok := s.segments[id]
	if !ok {
		return nil, segment.ErrNoSuchSegment
	}
	return seg, nil
}

// readAt returns the payload framed at offset and the post-read position.
func (seg *memSegment) readAt(offset int64) ([]byte, int64, error) {
	if offset < seg.start {
		return nil, 0, segment.ErrTruncated
	}
	if offset >= seg.write {
		return nil, 0, segment.ErrEndOfSegment
	}
	i := sort.Search(len(seg.records), func(i int) bool {
		return seg.records[i].offset >= offset
	})
	if i == len(seg.records) || seg.records[i].offset != offset {
		return nil, 0, fmt.Errorf("segmentmem: no record framed at offset %d", offset)
	}
	rec := seg.records[i]
	payload := make([]byte, len(rec.payload))
	copy(payload, rec.payload)
	return payload, offset + segment.FrameOverhead + int64(len(rec.payload)), nil
}

func (seg *memSegment) truncate(offset int64) error {
	if offset <= seg.start {
		return nil
	}
	if offset > seg.write {
		return fmt.Errorf("segmentmem: truncate offset %d beyond write offset %d",
			offset, seg.write)
	}
	i := sort.Search(len(seg.records), func(i int) bool {
		return seg.records[i].offset >= offset
	})
	seg.records = seg.records[i:]
	seg.start = offset
	return nil
}

// NewWriter returns a writer bound to the segment.
func (s *Store) NewWriter(id segment.ID) (segment.Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.segments[id]; !ok {
		return nil, segment.ErrNoSuchSegment
	}
	return &writer{store: s, id: id}, nil
}

// NewReader returns a reader bound to the segment.
func (s *Store) NewReader(id segment.ID) (segment.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.segments[id]; !ok {
		return nil, segment.ErrNoSuchSegment
	}
	return &reader{store: s, id: id}, nil
}

// NewMetadataClient returns a metadata handle bound to the segment.
func (s *Store) NewMetadataClient(id segment.ID) (segment.MetadataClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.segments[id]; !ok {
		return nil, segment.ErrNoSuchSegment
	}
	return &metadataClient{store: s, id: id}, nil
}

// writer buffers submitted events and commits them on Flush.
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
	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	seg, err := w.store.lookup(w.id)
	if err != nil {
		return err
	}
	if seg.sealed {
		return segment.ErrSealed
	}

	events := w.pending
	w.pending = nil
	for _, ev := range events {
		if ev.Conditional() && ev.ExpectedOffset != seg.write {
			ev.Complete(segment.Result{Committed: false})
			continue
		}
		payload := make([]byte, len(ev.Payload))
		copy(payload, ev.Payload)
		seg.records = append(seg.records, record{offset: seg.write, payload: payload})
		seg.write += segment.FrameOverhead + int64(len(payload))
		ev.Complete(segment.Result{Committed: true})
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

// reader performs framed reads at explicit offsets.
type reader struct {
	store  *Store
	id     segment.ID
	offset int64
}

func (r *reader) SetOffset(offset int64) {
	r.offset = offset
}

func (r *reader) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	seg, err := r.store.lookup(r.id)
	if err != nil {
		return nil, err
	}
	payload, next, err := seg.readAt(r.offset)
	if err != nil {
		return nil, err
	}
	r.offset = next
	return payload, nil
}

func (r *reader) Offset() int64 {
	return r.offset
}

func (r *reader) Close() error {
	return nil
}

// metadataClient reads and mutates segment metadata.
type metadataClient struct {
	store *Store
	id    segment.ID
}

func (m *metadataClient) Info(ctx context.Context, token string) (segment.Info, error) {
	if err := ctx.Err(); err != nil {
		return segment.Info{}, err
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	seg, err := m.store.lookup(m.id)
	if err != nil {
		return segment.Info{}, err
	}
	return segment.Info{
		ID:          m.id,
		StartOffset: seg.start,
		WriteOffset: seg.write,
		Sealed:      seg.sealed,
	}, nil
}

func (m *metadataClient) WriteOffset(ctx context.Context, token string) (int64, error) {
	info, err := m.Info(ctx, token)
	if err != nil {
		return 0, err
	}
	return info.WriteOffset, nil
}

func (m *metadataClient) Attribute(ctx context.Context, slot segment.Attribute, token string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	seg, err := m.store.lookup(m.id)
	if err != nil {
		return 0, err
	}
	if v, ok := seg.attrs[slot]; ok {
		return v, nil
	}
	return segment.NullValue, nil
}

func (m *metadataClient) CompareAndSetAttribute(ctx context.Context, slot segment.Attribute, expected, next int64, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	seg, err := m.store.lookup(m.id)
	if err != nil {
		return false, err
	}
	current := segment.NullValue
	if v, ok := seg.attrs[slot]; ok {
		current = v
	}
	if current != expected {
		return false, nil
	}
	if next == segment.NullValue {
		delete(seg.attrs, slot)
	} else {
		seg.attrs[slot] = next
	}
	return true, nil
}

func (m *metadataClient) Truncate(ctx context.Context, id segment.ID, offset int64, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id != m.id {
		return segment.ErrNoSuchSegment
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	seg, err := m.store.lookup(m.id)
	if err != nil {
		return err
	}
	return seg.truncate(offset)
}

func (m *metadataClient) Close() error {
	return nil
}
