// Package revstream provides a revisioned stream client: a durable,
// single-segment state-replication primitive layered atop an append-only
// byte segment.
//
// Every committed value is addressable by a monotonically increasing
// Revision. Conditional appends give optimistic concurrency, a persistent
// single-slot mark gives a compare-and-set bookmark, and prefix truncation
// discards obsolete history. Higher-level replicated state objects
// (configuration registries, coordinator state, membership sets) are built
// on this primitive.
//
// # Basic Usage
//
// Bind a client to a segment with a serializer:
//
//	store := segmentmem.NewStore()
//	store.Create("scope/stream/0")
//
//	w, _ := store.NewWriter("scope/stream/0")
//	r, _ := store.NewReader("scope/stream/0")
//	m, _ := store.NewMetadataClient("scope/stream/0")
//
//	client := revstream.New[string]("scope/stream/0", r, w, m,
//	    revstream.StringSerializer{})
//	defer client.Close()
//
// Append and read back:
//
//	err := client.Write(ctx, "hello")
//
//	start, _ := client.OldestRevision(ctx)
//	it, err := client.ReadFrom(ctx, start)
//	for it.HasNext() {
//	    entry, err := it.Next()
//	    if errors.Is(err, revstream.Done) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(entry.Revision, entry.Value)
//	}
//
// # Optimistic Concurrency
//
// Conditional appends commit only if no other value got in first:
//
//	latest, _ := client.LatestRevision(ctx)
//	rev, committed, err := client.WriteConditionally(ctx, latest, "update")
//	if !committed {
//	    // Lost the race: re-read from latest and retry.
//	}
//
// # Error Handling
//
// The package provides sentinel errors for common conditions:
//
//	if errors.Is(err, revstream.ErrTruncated) {
//	    // The requested history has been truncated away.
//	}
//
// For detailed error information, use errors.As with ClientError:
//
//	var ce *revstream.ClientError
//	if errors.As(err, &ce) {
//	    fmt.Println("op:", ce.Op, "segment:", ce.Segment)
//	}
package revstream
