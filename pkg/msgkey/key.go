package msgkey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Separator joins the fields of a message identifier.
const Separator = "\x1f"

// ErrInvalidKey is returned when a message identifier cannot be parsed.
var ErrInvalidKey = errors.New("invalid message key")

// Key identifies a message, or a chunk of one, within a group.
type Key struct {
	Group    string
	Sender   string
	Sequence uint64

	// Chunk fields are only meaningful when HasChunk is set.
	HasChunk bool
	Chunk    uint32
	Offset   uint32
	Length   uint32
}

// New returns a key naming a whole message.
func New(group, sender string, seq uint64) Key {
	return Key{Group: group, Sender: sender, Sequence: seq}
}

// WithChunk returns a copy of k naming one chunk of the message.
func (k Key) WithChunk(chunk, offset, length uint32) Key {
	k.HasChunk = true
	k.Chunk = chunk
	k.Offset = offset
	k.Length = length
	return k
}

// Message returns the key of the whole message k belongs to.
func (k Key) Message() Key {
	return New(k.Group, k.Sender, k.Sequence)
}

// String formats the key in its wire form.
func (k Key) String() string {
	parts := []string{k.Group, k.Sender, strconv.FormatUint(k.Sequence, 10)}
	if k.HasChunk {
		parts = append(parts,
			strconv.FormatUint(uint64(k.Chunk), 10),
			strconv.FormatUint(uint64(k.Offset), 10),
			strconv.FormatUint(uint64(k.Length), 10),
		)
	}
	return strings.Join(parts, Separator)
}

// Parse parses a message identifier in either the three or six field form.
func Parse(s string) (Key, error) {
	parts := strings.Split(s, Separator)
	if len(parts) != 3 && len(parts) != 6 {
		return Key{}, fmt.Errorf("%w: %d fields", ErrInvalidKey, len(parts))
	}
	if parts[0] == "" || parts[1] == "" {
		return Key{}, fmt.Errorf("%w: empty group or sender", ErrInvalidKey)
	}

	seq, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("%w: sequence: %v", ErrInvalidKey, err)
	}
	k := New(parts[0], parts[1], seq)
	if len(parts) == 3 {
		return k, nil
	}

	var chunk [3]uint32
	for i, p := range parts[3:] {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return Key{}, fmt.Errorf("%w: field %d: %v", ErrInvalidKey, i+3, err)
		}
		chunk[i] = uint32(v)
	}
	return k.WithChunk(chunk[0], chunk[1], chunk[2]), nil
}
