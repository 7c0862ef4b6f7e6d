package msgkey

import (
	"errors"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		key  Key
	}{
		{name: "message", key: New("weather", "node-1", 42)},
		{name: "chunk", key: New("weather", "node-1", 42).WithChunk(3, 1024, 512)},
		{name: "zero sequence", key: New("g", "s", 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := Parse(tt.key.String())
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.key.String(), err)
			}
			if parsed != tt.key {
				t.Errorf("Parse() = %+v, want %+v", parsed, tt.key)
			}
		})
	}
}

func TestKeyString(t *testing.T) {
	got := New("g", "s", 7).WithChunk(1, 2, 3).String()
	want := "g\x1fs\x1f7\x1f1\x1f2\x1f3"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestKeyMessage(t *testing.T) {
	chunk := New("g", "s", 7).WithChunk(1, 2, 3)
	if got := chunk.Message(); got != New("g", "s", 7) {
		t.Errorf("Message() = %+v, want whole-message key", got)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []string{
		"",
		"g\x1fs",
		"g\x1fs\x1f1\x1f2",
		"\x1fs\x1f1",
		"g\x1f\x1f1",
		"g\x1fs\x1fabc",
		"g\x1fs\x1f-1",
		"g\x1fs\x1f1\x1f1\x1f2\x1fx",
		"g\x1fs\x1f1\x1f1\x1f2\x1f99999999999",
	}

	for _, in := range tests {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidKey", in, err)
		}
	}
}
