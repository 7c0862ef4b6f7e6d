package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/groupcast/groupcast-go/pkg/wire"
)

// History errors.
var (
	ErrInvalidRange   = errors.New("invalid history range")
	ErrInvalidTimeout = errors.New("invalid history timeout")
)

// DefaultTimeout is how long a history request stays active unless the
// factory is told otherwise.
const DefaultTimeout = 30 * time.Second

// Kind identifies a history variant.
type Kind uint8

const (
	// KindShift selects the last N messages per sender.
	KindShift Kind = iota + 1

	// KindDiscrete selects an inclusive sequence range.
	KindDiscrete

	// KindTime selects an inclusive publish time range.
	KindTime
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindShift:
		return "SHIFT"
	case KindDiscrete:
		return "DISCRETE"
	case KindTime:
		return "TIME"
	default:
		return "UNKNOWN"
	}
}

// Clock returns the current time.
type Clock func() time.Time

// SequenceTracker reports the latest sequence number seen from a sender.
type SequenceTracker interface {
	LatestSeq(group, sender string) (uint64, bool)
}

// History is a replay window. The set of variants is closed.
type History interface {
	// Kind returns the variant.
	Kind() Kind

	// Timeout returns how long the window stays active.
	Timeout() time.Duration

	// RequestTime returns when the window was requested.
	RequestTime() time.Time

	// ExpiresAt returns RequestTime + Timeout.
	ExpiresAt() time.Time

	// IsExpired reports whether the window has run out.
	IsExpired() bool

	// Contains reports whether a message falls inside the window.
	// Expiry is not considered.
	Contains(info *wire.MessageInfo, tracker SequenceTracker) bool

	// Clone returns an independent copy with the same request time.
	Clone() History

	String() string

	window() *lifetime
}

// lifetime is the part shared by every variant.
type lifetime struct {
	timeout     time.Duration
	requestTime time.Time
	now         Clock
}

func (l *lifetime) window() *lifetime { return l }

// Timeout returns how long the window stays active.
func (l *lifetime) Timeout() time.Duration {
	return l.timeout
}

// RequestTime returns when the window was requested.
func (l *lifetime) RequestTime() time.Time {
	return l.requestTime
}

// ExpiresAt returns when the window stops being active.
func (l *lifetime) ExpiresAt() time.Time {
	return l.requestTime.Add(l.timeout)
}

// IsExpired reports whether now >= requestTime + timeout.
func (l *lifetime) IsExpired() bool {
	return !l.now().Before(l.ExpiresAt())
}

// Shift accepts the last Length sequence numbers of each sender, counted
// back from the latest sequence number seen from that sender.
type Shift struct {
	lifetime
	Length uint64
}

// Kind returns KindShift.
func (h *Shift) Kind() Kind { return KindShift }

// Contains reports whether latest-Length < seq <= latest. Senders the
// tracker has never seen have no window.
func (h *Shift) Contains(info *wire.MessageInfo, tracker SequenceTracker) bool {
	if tracker == nil || h.Length == 0 {
		return false
	}
	latest, ok := tracker.LatestSeq(info.Group, info.Sender)
	if !ok || info.Sequence > latest {
		return false
	}
	return latest-info.Sequence < h.Length
}

// Clone returns an independent copy.
func (h *Shift) Clone() History {
	c := *h
	return &c
}

func (h *Shift) String() string {
	return fmt.Sprintf("shift(last=%d, expires=%s)", h.Length, h.ExpiresAt().Format(time.RFC3339))
}

// Discrete accepts sequence numbers in [From, To].
type Discrete struct {
	lifetime
	From uint64
	To   uint64
}

// Kind returns KindDiscrete.
func (h *Discrete) Kind() Kind { return KindDiscrete }

// Contains reports whether From <= seq <= To.
func (h *Discrete) Contains(info *wire.MessageInfo, _ SequenceTracker) bool {
	return info.Sequence >= h.From && info.Sequence <= h.To
}

// Clone returns an independent copy.
func (h *Discrete) Clone() History {
	c := *h
	return &c
}

func (h *Discrete) String() string {
	return fmt.Sprintf("discrete(%d..%d, expires=%s)", h.From, h.To, h.ExpiresAt().Format(time.RFC3339))
}

// Time accepts messages published in [Since, Until]. A zero bound is open.
type Time struct {
	lifetime
	Since time.Time
	Until time.Time
}

// Kind returns KindTime.
func (h *Time) Kind() Kind { return KindTime }

// Contains reports whether Since <= publishTime <= Until.
func (h *Time) Contains(info *wire.MessageInfo, _ SequenceTracker) bool {
	if !h.Since.IsZero() && info.PublishTime.Before(h.Since) {
		return false
	}
	if !h.Until.IsZero() && info.PublishTime.After(h.Until) {
		return false
	}
	return true
}

// Clone returns an independent copy.
func (h *Time) Clone() History {
	c := *h
	return &c
}

func (h *Time) String() string {
	return fmt.Sprintf("time(%s..%s, expires=%s)",
		h.Since.Format(time.RFC3339), h.Until.Format(time.RFC3339), h.ExpiresAt().Format(time.RFC3339))
}

// Compile-time interface satisfaction checks.
var (
	_ History = (*Shift)(nil)
	_ History = (*Discrete)(nil)
	_ History = (*Time)(nil)
)
