package subscription

import (
	"fmt"

	"github.com/groupcast/groupcast-go/pkg/wire"
)

// ParametersSize is the encoded size of Parameters in bytes.
const ParametersSize = wire.SizeUint8 + 3*wire.SizeBool

// Parameters is the QoS tuple of a subscription.
//
// Wire layout: priority (u8), groupReliable, messageReliable, sequenced
// (bool each).
type Parameters struct {
	// Priority ranks subscriptions, higher is more important.
	Priority uint8

	// GroupReliable requests that no message of the group is lost.
	// It implies MessageReliable.
	GroupReliable bool

	// MessageReliable requests that every delivered message is complete.
	MessageReliable bool

	// Sequenced requests per-sender ordering.
	Sequenced bool
}

// NewParameters creates Parameters. Group reliability forces message
// reliability.
func NewParameters(priority uint8, groupReliable, messageReliable, sequenced bool) Parameters {
	return Parameters{
		Priority:        priority,
		GroupReliable:   groupReliable,
		MessageReliable: messageReliable || groupReliable,
		Sequenced:       sequenced,
	}
}

// Promote raises every field of p to at least the value in other.
// Returns true if p changed.
func (p *Parameters) Promote(other Parameters) bool {
	before := *p
	if other.Priority > p.Priority {
		p.Priority = other.Priority
	}
	p.GroupReliable = p.GroupReliable || other.GroupReliable
	p.MessageReliable = p.MessageReliable || other.MessageReliable || p.GroupReliable
	p.Sequenced = p.Sequenced || other.Sequenced
	return *p != before
}

// Covers reports whether p is at least as strong as other in every field.
func (p Parameters) Covers(other Parameters) bool {
	return p.Priority >= other.Priority &&
		(p.GroupReliable || !other.GroupReliable) &&
		(p.MessageReliable || !other.MessageReliable) &&
		(p.Sequenced || !other.Sequenced)
}

// OnDemand returns the best-effort profile used for pull retrieval:
// no group reliability, single-message reliability.
func (p Parameters) OnDemand() Parameters {
	p.GroupReliable = false
	p.MessageReliable = true
	return p
}

// Read decodes Parameters. p is only modified when every field decodes.
// Group reliability escalates message reliability as in NewParameters.
func (p *Parameters) Read(r *wire.Reader, maxSize int) (int, error) {
	if maxSize < ParametersSize {
		return 0, fmt.Errorf("parameters: %w", wire.ErrShortBuffer)
	}

	priority, total, err := r.ReadUint8(maxSize)
	if err != nil {
		return total, fmt.Errorf("parameters: priority: %w", err)
	}
	var flags [3]bool
	for i := range flags {
		v, n, err := r.ReadBool(maxSize - total)
		total += n
		if err != nil {
			return total, fmt.Errorf("parameters: flag %d: %w", i, err)
		}
		flags[i] = v
	}

	*p = NewParameters(priority, flags[0], flags[1], flags[2])
	return total, nil
}

// Write encodes Parameters. A failure part way leaves the bytes already
// written in the sink.
func (p Parameters) Write(w *wire.Writer, maxSize int) (int, error) {
	if maxSize < ParametersSize {
		return 0, fmt.Errorf("parameters: %w", wire.ErrShortBuffer)
	}

	total, err := w.WriteUint8(p.Priority, maxSize)
	if err != nil {
		return total, fmt.Errorf("parameters: priority: %w", err)
	}
	for i, v := range []bool{p.GroupReliable, p.MessageReliable, p.Sequenced} {
		n, err := w.WriteBool(v, maxSize-total)
		total += n
		if err != nil {
			return total, fmt.Errorf("parameters: flag %d: %w", i, err)
		}
	}
	return total, nil
}

func (p Parameters) String() string {
	return fmt.Sprintf("prio=%d greliable=%t mreliable=%t sequenced=%t",
		p.Priority, p.GroupReliable, p.MessageReliable, p.Sequenced)
}
