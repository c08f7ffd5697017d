package revstream

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/revstream/revstream-go/segment"
)

// Revision is an opaque, totally ordered position within one segment.
//
// Revisions are:
//   - Opaque: do not synthesize them; every valid revision comes from a
//     Client method.
//   - Ordered: within one segment, revisions compare by byte offset.
//     Comparing revisions of different segments is undefined.
//   - Persistent: a revision outlives the client that produced it and can
//     be stored via String and restored via ParseRevision.
type Revision struct {
	segment    segment.ID
	offset     int64
	generation int64
}

func newRevision(id segment.ID, offset int64) Revision {
	return Revision{segment: id, offset: offset}
}

// Segment returns the id of the segment the revision points into.
func (r Revision) Segment() segment.ID {
	return r.segment
}

// Offset returns the revision's byte offset within its segment.
func (r Revision) Offset() int64 {
	return r.offset
}

// Compare compares two revisions of the same segment by offset.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
func Compare(a, b Revision) int {
	if a.offset < b.offset {
		return -1
	}
	if a.offset > b.offset {
		return 1
	}
	return 0
}

// Before returns true if r precedes other within the same segment.
func (r Revision) Before(other Revision) bool {
	return Compare(r, other) < 0
}

// Equal returns true if both revisions name the same position of the same
// segment.
func (r Revision) Equal(other Revision) bool {
	return r == other
}

// String returns the serialized form "segment:offset:generation".
// The offset is zero-padded so serialized revisions of one segment sort
// lexicographically.
func (r Revision) String() string {
	return fmt.Sprintf("%s:%016d:%d", r.segment, r.offset, r.generation)
}

// ParseRevision parses the serialized form produced by String.
func ParseRevision(s string) (Revision, error) {
	genSep := strings.LastIndexByte(s, ':')
	if genSep <= 0 {
		return Revision{}, fmt.Errorf("revstream: invalid revision %q", s)
	}
	offSep := strings.LastIndexByte(s[:genSep], ':')
	if offSep <= 0 {
		return Revision{}, fmt.Errorf("revstream: invalid revision %q", s)
	}

	offset, err := strconv.ParseInt(s[offSep+1:genSep], 10, 64)
	if err != nil || offset < 0 {
		return Revision{}, fmt.Errorf("revstream: invalid revision offset in %q", s)
	}
	generation, err := strconv.ParseInt(s[genSep+1:], 10, 64)
	if err != nil || generation < 0 {
		return Revision{}, fmt.Errorf("revstream: invalid revision generation in %q", s)
	}

	return Revision{
		segment:    segment.ID(s[:offSep]),
		offset:     offset,
		generation: generation,
	}, nil
}

// nextOffset is the boundary after a record of the given payload size
// committed at initial. The client derives post-append revisions with this
// formula rather than querying the segment.
func nextOffset(initial int64, size int) int64 {
	return initial + int64(size) + segment.FrameOverhead
}
