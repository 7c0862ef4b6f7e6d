package subscription

import (
	"fmt"
	"strings"

	"github.com/groupcast/groupcast-go/pkg/history"
	"github.com/groupcast/groupcast-go/pkg/wire"
)

// GroupSubscription accepts every message of a group except those whose
// tag is in its exclusion set.
type GroupSubscription struct {
	params  Parameters
	filters tagSet
	history history.History
}

// NewGroupSubscription creates a group subscription with an empty
// exclusion set.
func NewGroupSubscription(params Parameters) *GroupSubscription {
	return &GroupSubscription{
		params:  NewParameters(params.Priority, params.GroupReliable, params.MessageReliable, params.Sequenced),
		filters: make(tagSet),
	}
}

func (s *GroupSubscription) sealed() {}

// Type returns TypeGroup.
func (s *GroupSubscription) Type() Type { return TypeGroup }

// RequireFullMessage returns false; tags are in the header.
func (s *GroupSubscription) RequireFullMessage() bool { return false }

// Priority returns the subscription priority.
func (s *GroupSubscription) Priority() uint8 { return s.params.Priority }

// Parameters returns the QoS parameters.
func (s *GroupSubscription) Parameters() Parameters { return s.params }

// SetPriority changes the priority.
func (s *GroupSubscription) SetPriority(priority uint8) {
	s.params.Priority = priority
}

// AddFilter excludes a tag. Adding a tag twice has no further effect.
func (s *GroupSubscription) AddFilter(tag uint16) {
	s.filters[tag] = struct{}{}
}

// RemoveFilter stops excluding a tag.
func (s *GroupSubscription) RemoveFilter(tag uint16) error {
	if _, ok := s.filters[tag]; !ok {
		return fmt.Errorf("%w: %d", ErrFilterNotFound, tag)
	}
	delete(s.filters, tag)
	return nil
}

// IsFiltered reports whether a tag is excluded.
func (s *GroupSubscription) IsFiltered(tag uint16) bool {
	_, ok := s.filters[tag]
	return ok
}

// Filters returns the excluded tags in ascending order.
func (s *GroupSubscription) Filters() []uint16 {
	return s.filters.sorted()
}

// MatchesTag is true unless WholeGroupTag is excluded. The tag argument
// itself is not consulted; Matches is the per-message check.
func (s *GroupSubscription) MatchesTag(uint16) bool {
	return !s.IsFiltered(WholeGroupTag)
}

// Matches is true unless the message tag is excluded.
func (s *GroupSubscription) Matches(msg Message) bool {
	return !s.IsFiltered(msg.Info().Tag)
}

// Includes reports whether other is covered by this subscription. A group
// subscription never covers another group subscription. Tag and predicate
// subscriptions are covered when their priority is not higher.
func (s *GroupSubscription) Includes(other Subscription) bool {
	switch o := other.(type) {
	case *GroupSubscription:
		return false
	case *GroupTagSubscription:
		return o.Priority() <= s.params.Priority
	case *GroupPredicateSubscription:
		return o.Priority() <= s.params.Priority
	default:
		return false
	}
}

// Merge folds the subscription into a group subscription target: tags
// excluded here are removed from the target's exclusion set and the
// target's parameters are raised to the maximum of both. Tag and
// predicate targets are left untouched.
func (s *GroupSubscription) Merge(target Subscription) bool {
	switch t := target.(type) {
	case *GroupSubscription:
		if t == s {
			return false
		}
		modified := false
		for tag := range s.filters {
			if _, ok := t.filters[tag]; ok {
				delete(t.filters, tag)
				modified = true
			}
		}
		if t.params.Promote(s.params) {
			modified = true
		}
		return modified
	case *GroupTagSubscription:
		return false
	case *GroupPredicateSubscription:
		return false
	default:
		return false
	}
}

// AddHistory attaches a replay window. tag is ignored.
func (s *GroupSubscription) AddHistory(h history.History, _ uint16) error {
	if h == nil {
		return ErrNilHistory
	}
	if s.history != nil {
		return ErrHistoryAttached
	}
	s.history = h
	return nil
}

// History returns the attached window without checking expiry.
func (s *GroupSubscription) History() history.History {
	return s.history
}

// HasHistory reports whether an unexpired window is attached.
func (s *GroupSubscription) HasHistory() bool {
	if expired(s.history) {
		s.history = nil
	}
	return s.history != nil
}

// IsInHistory reports whether msg is matched and inside the window.
func (s *GroupSubscription) IsInHistory(msg Message, tracker history.SequenceTracker) bool {
	if !s.Matches(msg) || !s.HasHistory() {
		return false
	}
	return s.history.Contains(msg.Info(), tracker)
}

// HistoryRequests prepends a whole-group request when a window is
// attached. Expired windows are reported too; only HasHistory and
// IsInHistory drop them.
func (s *GroupSubscription) HistoryRequests(group string, out []history.Request) []history.Request {
	if s.history == nil {
		return out
	}
	return prepend(out, history.TagRequest{
		Common: history.Common{GroupName: group, History: s.history},
		Tag:    WholeGroupTag,
	})
}

// Clone returns an independent copy.
func (s *GroupSubscription) Clone() Subscription {
	return s.clone()
}

func (s *GroupSubscription) clone() *GroupSubscription {
	c := &GroupSubscription{
		params:  s.params,
		filters: make(tagSet, len(s.filters)),
	}
	for tag := range s.filters {
		c.filters[tag] = struct{}{}
	}
	if s.history != nil {
		c.history = s.history.Clone()
	}
	return c
}

// OnDemand returns a copy without group reliability.
func (s *GroupSubscription) OnDemand() Subscription {
	c := s.clone()
	c.params = c.params.OnDemand()
	return c
}

// Read decodes the parameters. The exclusion set is not on the wire.
func (s *GroupSubscription) Read(r *wire.Reader, maxSize int) (int, error) {
	return s.params.Read(r, maxSize)
}

// Write encodes the parameters.
func (s *GroupSubscription) Write(w *wire.Writer, maxSize int) (int, error) {
	return s.params.Write(w, maxSize)
}

// EncodedSize returns ParametersSize.
func (s *GroupSubscription) EncodedSize() int {
	return ParametersSize
}

func (s *GroupSubscription) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "group{%s", s.params)
	if len(s.filters) > 0 {
		fmt.Fprintf(&b, " exclude=%v", s.Filters())
	}
	if s.history != nil {
		fmt.Fprintf(&b, " history=%s", s.history)
	}
	b.WriteString("}")
	return b.String()
}

// Compile-time interface satisfaction check.
var _ Subscription = (*GroupSubscription)(nil)
