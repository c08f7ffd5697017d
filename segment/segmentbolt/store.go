// Package segmentbolt provides a durable segment store backed by bbolt.
//
// One database holds any number of segments. Each segment is a bucket
// containing its framed records keyed by frame-start offset, a state record
// with the readable range, and an attribute bucket. Attribute compare-and-set
// runs inside a single bbolt update transaction, which makes it atomic with
// respect to every other writer of the database.
package segmentbolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/revstream/revstream-go/segment"
)

var (
	segmentsBucket = []byte("segments")
	logBucket      = []byte("log")
	attrsBucket    = []byte("attrs")
	stateKey       = []byte("state")
)

// recordType is the type tag written ahead of every record's length prefix.
const recordType uint32 = 1

// segmentState is the serialized form of a segment's readable range.
type segmentState struct {
	StartOffset int64 `json:"start_offset"`
	WriteOffset int64 `json:"write_offset"`
	Sealed      bool  `json:"sealed"`
}

// Store is a bbolt-backed segment store.
type Store struct {
	db     *bbolt.DB
	logger *zap.Logger
	path   string

	mu     sync.Mutex
	closed bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Open opens or creates a segment store at path.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		logger: zap.NewNop(),
		path:   path,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("segmentbolt: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(segmentsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("segmentbolt: init %s: %w", path, err)
	}

	s.db = db
	s.logger.Debug("opened segment store", zap.String("path", path))
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Create adds an empty segment. Returns segment.ErrSegmentExists if the id
// is already present.
func (s *Store) Create(id segment.ID) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(segmentsBucket)
		if root.Bucket([]byte(id)) != nil {
			return segment.ErrSegmentExists
		}
		b, err := root.CreateBucket([]byte(id))
		if err != nil {
			return err
		}
		if _, err := b.CreateBucket(logBucket); err != nil {
			return err
		}
		if _, err := b.CreateBucket(attrsBucket); err != nil {
			return err
		}
		return putState(b, segmentState{})
	})
}

// Seal marks the segment sealed. Subsequent flushes fail with
// segment.ErrSealed.
func (s *Store) Seal(id segment.ID) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, st, err := getSegment(tx, id)
		if err != nil {
			return err
		}
		st.Sealed = true
		return putState(b, st)
	})
}

// NewWriter returns a writer bound to the segment.
func (s *Store) NewWriter(id segment.ID) (segment.Writer, error) {
	if err := s.exists(id); err != nil {
		return nil, err
	}
	return &writer{store: s, id: id}, nil
}

// NewReader returns a reader bound to the segment.
func (s *Store) NewReader(id segment.ID) (segment.Reader, error) {
	if err := s.exists(id); err != nil {
		return nil, err
	}
	return &reader{store: s, id: id}, nil
}

// NewMetadataClient returns a metadata handle bound to the segment.
func (s *Store) NewMetadataClient(id segment.ID) (segment.MetadataClient, error) {
	if err := s.exists(id); err != nil {
		return nil, err
	}
	return &metadataClient{store: s, id: id}, nil
}

// Close closes the database. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("segmentbolt: store is closed")
	}
	return nil
}

func (s *Store) exists(id segment.ID) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		_, _, err := getSegment(tx, id)
		return err
	})
}

// getSegment returns the segment's bucket and decoded state.
func getSegment(tx *bbolt.Tx, id segment.ID) (*bbolt.Bucket, segmentState, error) {
	b := tx.Bucket(segmentsBucket).Bucket([]byte(id))
	if b == nil {
		return nil, segmentState{}, segment.ErrNoSuchSegment
	}
	data := b.Get(stateKey)
	if data == nil {
		return nil, segmentState{}, fmt.Errorf("segmentbolt: segment %s has no state record", id)
	}
	var st segmentState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, segmentState{}, fmt.Errorf("segmentbolt: decode state for %s: %w", id, err)
	}
	return b, st, nil
}

func putState(b *bbolt.Bucket, st segmentState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return b.Put(stateKey, data)
}

// offsetKey encodes a frame-start offset as a big-endian key so the log
// bucket iterates in offset order.
func offsetKey(offset int64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(offset))
	return k[:]
}

func attrKey(slot segment.Attribute) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(slot))
	return k[:]
}

func attrValue(v int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return b[:]
}

func decodeAttr(data []byte) int64 {
	return int64(binary.BigEndian.Uint64(data))
}

// frame prepends the type tag and length prefix to a payload.
func frame(payload []byte) []byte {
	buf := make([]byte, segment.FrameOverhead+len(payload))
	binary.BigEndian.PutUint32(buf[:segment.TypeSize], recordType)
	binary.BigEndian.PutUint32(buf[segment.TypeSize:segment.FrameOverhead], uint32(len(payload)))
	copy(buf[segment.FrameOverhead:], payload)
	return buf
}

// unframe validates a stored frame and returns a copy of its payload.
func unframe(data []byte) ([]byte, error) {
	if len(data) < segment.FrameOverhead {
		return nil, fmt.Errorf("segmentbolt: short frame of %d bytes", len(data))
	}
	if typ := binary.BigEndian.Uint32(data[:segment.TypeSize]); typ != recordType {
		return nil, fmt.Errorf("segmentbolt: unexpected record type %d", typ)
	}
	length := binary.BigEndian.Uint32(data[segment.TypeSize:segment.FrameOverhead])
	if int(length) != len(data)-segment.FrameOverhead {
		return nil, fmt.Errorf("segmentbolt: frame length %d does not match %d stored bytes",
			length, len(data)-segment.FrameOverhead)
	}
	payload := make([]byte, length)
	copy(payload, data[segment.FrameOverhead:])
	return payload, nil
}
