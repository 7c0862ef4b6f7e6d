package subscription

import (
	"bytes"
	"fmt"
	"io"

	"github.com/groupcast/groupcast-go/pkg/wire"
)

// New returns an empty subscription of the given type.
func New(t Type) (Subscription, error) {
	switch t {
	case TypeGroup:
		return NewGroupSubscription(Parameters{}), nil
	case TypeGroupTag:
		return NewGroupTagSubscription(), nil
	case TypeGroupPredicate:
		return NewGroupPredicateSubscription("", 0, Parameters{}), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
}

// Encode writes the type byte followed by the subscription body.
func Encode(w io.Writer, s Subscription) (int, error) {
	size := wire.SizeUint8 + s.EncodedSize()
	var buf bytes.Buffer
	bw := wire.NewWriter(&buf)
	if _, err := bw.WriteUint8(uint8(s.Type()), size); err != nil {
		return 0, err
	}
	if _, err := s.Write(bw, size-wire.SizeUint8); err != nil {
		return 0, err
	}
	return w.Write(buf.Bytes())
}

// Marshal returns the type-prefixed encoding of s.
func Marshal(s Subscription) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := Encode(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a type-prefixed subscription of at most maxSize bytes.
func Decode(r io.Reader, maxSize int) (Subscription, int, error) {
	wr := wire.NewReader(r)
	t, total, err := wr.ReadUint8(maxSize)
	if err != nil {
		return nil, total, fmt.Errorf("subscription type: %w", err)
	}
	s, err := New(Type(t))
	if err != nil {
		return nil, total, err
	}
	n, err := s.Read(wr, maxSize-total)
	total += n
	if err != nil {
		return nil, total, err
	}
	return s, total, nil
}

// Unmarshal decodes a type-prefixed subscription. Trailing bytes are an
// error.
func Unmarshal(data []byte) (Subscription, error) {
	s, n, err := Decode(bytes.NewReader(data), len(data))
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("%d trailing bytes: %w", len(data)-n, wire.ErrMalformed)
	}
	return s, nil
}
