package log

import (
	"time"

	"github.com/groupcast/groupcast-go/pkg/wire"
)

// EncodeEvent encodes one event with the envelope CBOR mode.
func EncodeEvent(event Event) ([]byte, error) { return wire.Marshal(event) }

// DecodeEvent decodes one event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	err := wire.Unmarshal(data, &event)
	return event, err
}

// Event is one entry of the engine trace.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred.
	Timestamp time.Time `cbor:"1,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"2,keyasint"`

	// Group is the group the event concerns.
	Group string `cbor:"3,keyasint,omitempty"`

	// SubscriptionID identifies the table entry, if any.
	SubscriptionID string `cbor:"4,keyasint,omitempty"`

	// SubscriptionType is the numeric subscription variant, if any.
	SubscriptionType uint8 `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Match      *MatchEvent      `cbor:"10,keyasint,omitempty"`
	Merge      *MergeEvent      `cbor:"11,keyasint,omitempty"`
	Membership *MembershipEvent `cbor:"12,keyasint,omitempty"`
	History    *HistoryEvent    `cbor:"13,keyasint,omitempty"`
	Error      *ErrorEventData  `cbor:"14,keyasint,omitempty"`
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMatch is a match decision.
	CategoryMatch Category = 0
	// CategoryMerge is a merge of two subscriptions.
	CategoryMerge Category = 1
	// CategoryMembership is a table membership change.
	CategoryMembership Category = 2
	// CategoryHistory concerns replay windows.
	CategoryHistory Category = 3
	// CategoryError is a rejected operation.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMatch:
		return "MATCH"
	case CategoryMerge:
		return "MERGE"
	case CategoryMembership:
		return "MEMBERSHIP"
	case CategoryHistory:
		return "HISTORY"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MatchEvent records whether a subscription accepted a message.
type MatchEvent struct {
	Sender   string `cbor:"1,keyasint"`
	Sequence uint64 `cbor:"2,keyasint"`
	Tag      uint16 `cbor:"3,keyasint,omitempty"`

	// Fragment is set when only part of the message was available.
	Fragment bool `cbor:"4,keyasint,omitempty"`

	Matched bool `cbor:"5,keyasint"`

	// Replay is set when the decision was a history replay decision.
	Replay bool `cbor:"6,keyasint,omitempty"`
}

// MergeEvent records one subscription being folded into another.
type MergeEvent struct {
	// TargetIndex is the position of the target among the group's
	// consolidated subscriptions.
	TargetIndex int `cbor:"1,keyasint"`

	TargetType uint8 `cbor:"2,keyasint"`

	// Included is set when the target already covered the source and no
	// merge was attempted.
	Included bool `cbor:"3,keyasint,omitempty"`

	// Modified is the merge result.
	Modified bool `cbor:"4,keyasint,omitempty"`
}

// MembershipAction is a table membership change.
type MembershipAction uint8

const (
	// MembershipSubscribe is a subscription being added.
	MembershipSubscribe MembershipAction = 0
	// MembershipUnsubscribe is a subscription being removed.
	MembershipUnsubscribe MembershipAction = 1
	// MembershipClear is the whole table being cleared.
	MembershipClear MembershipAction = 2
)

// String returns the action name.
func (a MembershipAction) String() string {
	switch a {
	case MembershipSubscribe:
		return "SUBSCRIBE"
	case MembershipUnsubscribe:
		return "UNSUBSCRIBE"
	case MembershipClear:
		return "CLEAR"
	default:
		return "UNKNOWN"
	}
}

// MembershipEvent records a table membership change.
type MembershipEvent struct {
	Action MembershipAction `cbor:"1,keyasint"`

	// Consolidated is the number of consolidated subscriptions left for
	// the group afterwards.
	Consolidated int `cbor:"2,keyasint"`
}

// HistoryAction is a replay window event.
type HistoryAction uint8

const (
	// HistoryAttached is a window being attached to a subscription.
	HistoryAttached HistoryAction = 0
	// HistoryRequested is windows being described to the replay engine.
	HistoryRequested HistoryAction = 1
	// HistoryExpired is windows being dropped after expiry.
	HistoryExpired HistoryAction = 2
)

// String returns the action name.
func (a HistoryAction) String() string {
	switch a {
	case HistoryAttached:
		return "ATTACHED"
	case HistoryRequested:
		return "REQUESTED"
	case HistoryExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// HistoryEvent records replay window activity.
type HistoryEvent struct {
	Action HistoryAction `cbor:"1,keyasint"`

	// Kind is the window variant name, when a single window is concerned.
	Kind string `cbor:"2,keyasint,omitempty"`

	// Count is the number of windows concerned.
	Count int `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData records a rejected operation.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}
