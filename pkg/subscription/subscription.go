package subscription

import (
	"errors"
	"slices"

	"github.com/samber/lo"

	"github.com/groupcast/groupcast-go/pkg/history"
	"github.com/groupcast/groupcast-go/pkg/predicate"
	"github.com/groupcast/groupcast-go/pkg/wire"
)

// Subscription errors.
var (
	ErrNilHistory      = errors.New("nil history")
	ErrHistoryAttached = errors.New("history already attached")
	ErrTagExists       = errors.New("tag already present")
	ErrTagNotFound     = errors.New("tag not found")
	ErrFilterNotFound  = errors.New("filter not found")
	ErrEmptyPredicate  = predicate.ErrEmptyPredicate
	ErrUnknownType     = errors.New("unknown subscription type")
)

// WholeGroupTag is the tag that stands for the whole group. In a group
// subscription's exclusion set it denies every tag query.
const WholeGroupTag uint16 = 0

// Type identifies a subscription variant. It never changes after
// construction.
type Type uint8

const (
	// TypeGroup is a GroupSubscription.
	TypeGroup Type = iota + 1

	// TypeGroupTag is a GroupTagSubscription.
	TypeGroupTag

	// TypeGroupPredicate is a GroupPredicateSubscription.
	TypeGroupPredicate
)

// String returns a human-readable type name.
func (t Type) String() string {
	switch t {
	case TypeGroup:
		return "GROUP"
	case TypeGroupTag:
		return "GROUP_TAG"
	case TypeGroupPredicate:
		return "GROUP_PREDICATE"
	default:
		return "UNKNOWN"
	}
}

// Message is an inbound message offered to subscriptions.
type Message interface {
	Info() *wire.MessageInfo
	Payload() []byte
}

// PredicateMatcher evaluates a predicate against a message payload.
// *predicate.Registry implements it.
type PredicateMatcher interface {
	Match(t predicate.Type, payload []byte, expr string) (bool, error)
}

// Subscription is implemented by GroupSubscription, GroupTagSubscription
// and GroupPredicateSubscription only.
type Subscription interface {
	// Type returns the variant.
	Type() Type

	// RequireFullMessage reports whether a fragment is insufficient to
	// evaluate the subscription.
	RequireFullMessage() bool

	// Priority returns the subscription priority. For tag subscriptions
	// it is the highest priority over all tags.
	Priority() uint8

	// Parameters returns the effective QoS. For tag subscriptions it is
	// the field-wise maximum over all tags.
	Parameters() Parameters

	// MatchesTag decides on a tag alone.
	MatchesTag(tag uint16) bool

	// Matches decides whether the subscription accepts msg.
	Matches(msg Message) bool

	// Includes reports whether the subscription already covers other.
	Includes(other Subscription) bool

	// Merge folds the subscription into target and reports whether
	// target changed.
	Merge(target Subscription) bool

	// AddHistory attaches a replay window. Tag subscriptions attach it to
	// the given tag; other variants ignore tag.
	AddHistory(h history.History, tag uint16) error

	// HasHistory reports whether an unexpired window is attached,
	// dropping expired windows.
	HasHistory() bool

	// IsInHistory reports whether msg is matched and falls in an
	// unexpired window, dropping the window if it expired.
	IsInHistory(msg Message, tracker history.SequenceTracker) bool

	// HistoryRequests prepends one request per active window to out.
	HistoryRequests(group string, out []history.Request) []history.Request

	// Clone returns an independent deep copy.
	Clone() Subscription

	// OnDemand returns a copy using the pull retrieval profile.
	OnDemand() Subscription

	// Read decodes the subscription body, replacing its state.
	Read(r *wire.Reader, maxSize int) (int, error)

	// Write encodes the subscription body.
	Write(w *wire.Writer, maxSize int) (int, error)

	// EncodedSize returns the number of bytes Write produces.
	EncodedSize() int

	String() string

	sealed()
}

// tagSet is a set of tags.
type tagSet map[uint16]struct{}

func (s tagSet) sorted() []uint16 {
	tags := lo.Keys(s)
	slices.Sort(tags)
	return tags
}

// prepend puts req in front of out.
func prepend(out []history.Request, req history.Request) []history.Request {
	return append([]history.Request{req}, out...)
}

// expired reports whether h is attached but past its deadline.
func expired(h history.History) bool {
	return h != nil && h.IsExpired()
}
