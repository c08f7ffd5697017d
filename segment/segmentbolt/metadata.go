package segmentbolt

import (
	"bytes"
	"context"
	"fmt"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/revstream/revstream-go/segment"
)

// metadataClient reads and mutates one segment's metadata and attributes.
// The delegation token is accepted for contract compatibility; this store
// does not authorize.
type metadataClient struct {
	store *Store
	id    segment.ID
}

func (m *metadataClient) Info(ctx context.Context, token string) (segment.Info, error) {
	if err := ctx.Err(); err != nil {
		return segment.Info{}, err
	}
	if err := m.store.check(); err != nil {
		return segment.Info{}, err
	}

	var info segment.Info
	err := m.store.db.View(func(tx *bbolt.Tx) error {
		_, st, err := getSegment(tx, m.id)
		if err != nil {
			return err
		}
		info = segment.Info{
			ID:          m.id,
			StartOffset: st.StartOffset,
			WriteOffset: st.WriteOffset,
			Sealed:      st.Sealed,
		}
		return nil
	})
	return info, err
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
	if err := m.store.check(); err != nil {
		return 0, err
	}

	value := segment.NullValue
	err := m.store.db.View(func(tx *bbolt.Tx) error {
		b, _, err := getSegment(tx, m.id)
		if err != nil {
			return err
		}
		if data := b.Bucket(attrsBucket).Get(attrKey(slot)); data != nil {
			value = decodeAttr(data)
		}
		return nil
	})
	return value, err
}

func (m *metadataClient) CompareAndSetAttribute(ctx context.Context, slot segment.Attribute, expected, next int64, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := m.store.check(); err != nil {
		return false, err
	}

	swapped := false
	err := m.store.db.Update(func(tx *bbolt.Tx) error {
		b, _, err := getSegment(tx, m.id)
		if err != nil {
			return err
		}
		attrs := b.Bucket(attrsBucket)
		current := segment.NullValue
		if data := attrs.Get(attrKey(slot)); data != nil {
			current = decodeAttr(data)
		}
		if current != expected {
			return nil
		}
		swapped = true
		if next == segment.NullValue {
			return attrs.Delete(attrKey(slot))
		}
		return attrs.Put(attrKey(slot), attrValue(next))
	})
	return swapped, err
}

func (m *metadataClient) Truncate(ctx context.Context, id segment.ID, offset int64, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id != m.id {
		return segment.ErrNoSuchSegment
	}
	if err := m.store.check(); err != nil {
		return err
	}

	err := m.store.db.Update(func(tx *bbolt.Tx) error {
		b, st, err := getSegment(tx, m.id)
		if err != nil {
			return err
		}
		if offset <= st.StartOffset {
			return nil
		}
		if offset > st.WriteOffset {
			return fmt.Errorf("segmentbolt: truncate offset %d beyond write offset %d",
				offset, st.WriteOffset)
		}
		log := b.Bucket(logBucket)
		bound := offsetKey(offset)
		var stale [][]byte
		c := log.Cursor()
		for k, _ := c.First(); k != nil && bytes.Compare(k, bound) < 0; k, _ = c.Next() {
			key := make([]byte, len(k))
			copy(key, k)
			stale = append(stale, key)
		}
		for _, k := range stale {
			if err := log.Delete(k); err != nil {
				return err
			}
		}
		st.StartOffset = offset
		return putState(b, st)
	})
	if err != nil {
		return err
	}

	m.store.logger.Debug("truncated segment",
		zap.String("segment", string(m.id)),
		zap.Int64("offset", offset))
	return nil
}

func (m *metadataClient) Close() error {
	return nil
}
