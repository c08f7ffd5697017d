package revstream

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/revstream/revstream-go/segment"
	"github.com/revstream/revstream-go/segment/segmentbolt"
)

// newBoltClient binds a client to a bbolt-backed segment. Store.Close is
// idempotent, so tests that reopen the database may close the returned
// store themselves.
func newBoltClient(t *testing.T, path string) (*Client[string], *segmentbolt.Store) {
	t.Helper()

	store, err := segmentbolt.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Create(testSegment); err != nil && !errors.Is(err, segment.ErrSegmentExists) {
		t.Fatalf("create segment: %v", err)
	}
	w, err := store.NewWriter(testSegment)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	r, err := store.NewReader(testSegment)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	m, err := store.NewMetadataClient(testSegment)
	if err != nil {
		t.Fatalf("new metadata client: %v", err)
	}

	client := New[string](testSegment, r, w, m, StringSerializer{})
	t.Cleanup(func() { client.Close() })
	return client, store
}

func TestClientOverBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segments.db")
	client, _ := newBoltClient(t, path)
	ctx := context.Background()

	r0, err := client.LatestRevision(ctx)
	if err != nil {
		t.Fatalf("latest revision: %v", err)
	}

	r1, committed, err := client.WriteConditionally(ctx, r0, "alpha")
	if err != nil || !committed {
		t.Fatalf("conditional write: committed=%v err=%v", committed, err)
	}
	if err := client.Write(ctx, "beta"); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Stale conditional append is rejected, not an error.
	if _, committed, err := client.WriteConditionally(ctx, r1, "gamma"); err != nil || committed {
		t.Fatalf("expected rejection: committed=%v err=%v", committed, err)
	}

	it, err := client.ReadFrom(ctx, r0)
	if err != nil {
		t.Fatalf("read from: %v", err)
	}
	entries := collect(t, it)
	if len(entries) != 2 || entries[0].Value != "alpha" || entries[1].Value != "beta" {
		t.Fatalf("expected [alpha beta], got %v", entries)
	}
	if !entries[0].Revision.Equal(r1) {
		t.Errorf("first entry revision %v != conditional append revision %v",
			entries[0].Revision, r1)
	}

	if ok, err := client.CompareAndSetMark(ctx, nil, &r1); err != nil || !ok {
		t.Fatalf("cas mark: ok=%v err=%v", ok, err)
	}
	mark, err := client.GetMark(ctx)
	if err != nil {
		t.Fatalf("get mark: %v", err)
	}
	if mark == nil || !mark.Equal(r1) {
		t.Fatalf("expected mark %v, got %v", r1, mark)
	}

	if err := client.TruncateTo(ctx, r1); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if _, err := client.ReadFrom(ctx, r0); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestClientOverBoltReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segments.db")
	ctx := context.Background()

	client, store := newBoltClient(t, path)
	if err := client.Write(ctx, "durable"); err != nil {
		t.Fatalf("write: %v", err)
	}
	r1, _ := client.LatestRevision(ctx)
	if ok, err := client.CompareAndSetMark(ctx, nil, &r1); err != nil || !ok {
		t.Fatalf("cas mark: ok=%v err=%v", ok, err)
	}
	client.Close()
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// A fresh client over the reopened store sees the same state.
	client, _ = newBoltClient(t, path)
	mark, err := client.GetMark(ctx)
	if err != nil {
		t.Fatalf("get mark: %v", err)
	}
	if mark == nil || !mark.Equal(r1) {
		t.Fatalf("expected persisted mark %v, got %v", r1, mark)
	}

	oldest, _ := client.OldestRevision(ctx)
	it, err := client.ReadFrom(ctx, oldest)
	if err != nil {
		t.Fatalf("read from: %v", err)
	}
	entries := collect(t, it)
	if len(entries) != 1 || entries[0].Value != "durable" {
		t.Fatalf("expected [durable], got %v", entries)
	}
}
