package revstream

import (
	"testing"

	"github.com/revstream/revstream-go/segment"
)

func TestRevisionString(t *testing.T) {
	tests := []struct {
		name     string
		revision Revision
		expected string
	}{
		{
			name:     "zero offset",
			revision: newRevision("scope/stream/0", 0),
			expected: "scope/stream/0:0000000000000000:0",
		},
		{
			name:     "simple offset",
			revision: newRevision("scope/stream/0", 9),
			expected: "scope/stream/0:0000000000000009:0",
		},
		{
			name:     "large offset",
			revision: newRevision("s", 1234567890),
			expected: "s:0000001234567890:0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.revision.String()
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestParseRevision(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    Revision
		expectError bool
	}{
		{
			name:     "zero revision",
			input:    "scope/stream/0:0000000000000000:0",
			expected: newRevision("scope/stream/0", 0),
		},
		{
			name:     "simple revision",
			input:    "scope/stream/0:0000000000000009:0",
			expected: newRevision("scope/stream/0", 9),
		},
		{
			name:     "non-padded also works",
			input:    "seg:42:0",
			expected: newRevision("seg", 42),
		},
		{
			name:     "segment id containing colons",
			input:    "scope:stream:0:17:0",
			expected: newRevision("scope:stream:0", 17),
		},
		{
			name:        "missing generation",
			input:       "seg:42",
			expectError: true,
		},
		{
			name:        "empty segment",
			input:       ":42:0",
			expectError: true,
		},
		{
			name:        "negative offset",
			input:       "seg:-1:0",
			expectError: true,
		},
		{
			name:        "offset not a number",
			input:       "seg:abc:0",
			expectError: true,
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseRevision(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if !result.Equal(tt.expected) {
				t.Errorf("expected %+v, got %+v", tt.expected, result)
			}
		})
	}
}

func TestRevisionRoundTrip(t *testing.T) {
	original := newRevision("scope/stream/3", 12345)
	parsed, err := ParseRevision(original.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !parsed.Equal(original) {
		t.Errorf("round trip failed: expected %+v, got %+v", original, parsed)
	}
}

func TestRevisionCompare(t *testing.T) {
	const id segment.ID = "seg"
	tests := []struct {
		name     string
		a, b     Revision
		expected int
	}{
		{
			name:     "equal",
			a:        newRevision(id, 10),
			b:        newRevision(id, 10),
			expected: 0,
		},
		{
			name:     "a before b",
			a:        newRevision(id, 10),
			b:        newRevision(id, 20),
			expected: -1,
		},
		{
			name:     "a after b",
			a:        newRevision(id, 20),
			b:        newRevision(id, 10),
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := Compare(tt.a, tt.b); result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestRevisionLexicographicOrder(t *testing.T) {
	// Serialized revisions of one segment must sort like their offsets.
	offsets := []int64{0, 1, 9, 10, 100, 1000}
	for i := 0; i < len(offsets)-1; i++ {
		a := newRevision("seg", offsets[i])
		b := newRevision("seg", offsets[i+1])
		if !a.Before(b) {
			t.Errorf("expected %v < %v", a, b)
		}
		if a.String() >= b.String() {
			t.Errorf("expected %q < %q (lexicographic)", a.String(), b.String())
		}
	}
}

func TestNextOffset(t *testing.T) {
	if got := nextOffset(0, 1); got != 1+segment.FrameOverhead {
		t.Errorf("expected %d, got %d", 1+segment.FrameOverhead, got)
	}
	if got := nextOffset(100, 50); got != 100+50+segment.FrameOverhead {
		t.Errorf("expected %d, got %d", 100+50+segment.FrameOverhead, got)
	}
}
