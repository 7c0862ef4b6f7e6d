package wire

import (
	"fmt"
	"time"
)

// MessageInfo is the header carried by every disseminated message.
//
// CBOR encoding:
//
//	{
//	  1: group,           // string
//	  2: sender,          // string
//	  3: sequence,        // uint64, per sender
//	  4: tag,             // uint16, 0 = untagged
//	  5: totalLength,     // uint32, full message size
//	  6: fragmentOffset,  // uint32
//	  7: fragmentLength,  // uint32, size carried in this fragment
//	  8: publishTime      // RFC3339Nano
//	}
type MessageInfo struct {
	Group          string    `cbor:"1,keyasint"`
	Sender         string    `cbor:"2,keyasint"`
	Sequence       uint64    `cbor:"3,keyasint"`
	Tag            uint16    `cbor:"4,keyasint,omitempty"`
	TotalLength    uint32    `cbor:"5,keyasint"`
	FragmentOffset uint32    `cbor:"6,keyasint,omitempty"`
	FragmentLength uint32    `cbor:"7,keyasint"`
	PublishTime    time.Time `cbor:"8,keyasint"`
}

// IsFragment returns true if the message carries only part of its payload.
func (i *MessageInfo) IsFragment() bool {
	return i.FragmentLength != i.TotalLength
}

// Validate checks the header for internal consistency.
func (i *MessageInfo) Validate() error {
	if i.Group == "" {
		return fmt.Errorf("%w: empty group", ErrMalformed)
	}
	if uint64(i.FragmentOffset)+uint64(i.FragmentLength) > uint64(i.TotalLength) {
		return fmt.Errorf("%w: fragment %d+%d exceeds total length %d",
			ErrMalformed, i.FragmentOffset, i.FragmentLength, i.TotalLength)
	}
	return nil
}

// Message is a header plus the payload bytes carried in this (possibly
// partial) transmission.
type Message struct {
	Header MessageInfo `cbor:"1,keyasint"`
	Data   []byte      `cbor:"2,keyasint,omitempty"`
}

// NewMessage creates a complete, unfragmented message.
func NewMessage(group, sender string, seq uint64, tag uint16, payload []byte) *Message {
	return &Message{
		Header: MessageInfo{
			Group:          group,
			Sender:         sender,
			Sequence:       seq,
			Tag:            tag,
			TotalLength:    uint32(len(payload)),
			FragmentLength: uint32(len(payload)),
			PublishTime:    time.Now(),
		},
		Data: payload,
	}
}

// Info returns the message header.
func (m *Message) Info() *MessageInfo {
	return &m.Header
}

// Payload returns the bytes carried by this message or fragment.
func (m *Message) Payload() []byte {
	return m.Data
}
