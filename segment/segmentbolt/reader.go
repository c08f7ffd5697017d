package segmentbolt

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/revstream/revstream-go/segment"
)

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
	if err := r.store.check(); err != nil {
		return nil, err
	}

	var payload []byte
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		b, st, err := getSegment(tx, r.id)
		if err != nil {
			return err
		}
		if r.offset < st.StartOffset {
			return segment.ErrTruncated
		}
		if r.offset >= st.WriteOffset {
			return segment.ErrEndOfSegment
		}
		data := b.Bucket(logBucket).Get(offsetKey(r.offset))
		if data == nil {
			return fmt.Errorf("segmentbolt: no record framed at offset %d", r.offset)
		}
		payload, err = unframe(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.offset += segment.FrameOverhead + int64(len(payload))
	return payload, nil
}

func (r *reader) Offset() int64 {
	return r.offset
}

func (r *reader) Close() error {
	return nil
}
