package subscription

import (
	"fmt"
	"strings"
	"sync"

	"github.com/groupcast/groupcast-go/pkg/history"
	"github.com/groupcast/groupcast-go/pkg/predicate"
	"github.com/groupcast/groupcast-go/pkg/wire"
)

var defaultRegistry = sync.OnceValues(predicate.NewDefaultRegistry)

// DefaultMatcher returns the process-wide registry with the simple and CEL
// evaluators.
func DefaultMatcher() (PredicateMatcher, error) {
	r, err := defaultRegistry()
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GroupPredicateSubscription accepts messages whose payload satisfies a
// predicate.
type GroupPredicateSubscription struct {
	predicate string
	predType  predicate.Type
	params    Parameters
	history   history.History
	matcher   PredicateMatcher
}

// NewGroupPredicateSubscription creates a predicate subscription. The
// predicate is evaluated with DefaultMatcher unless SetMatcher is called.
func NewGroupPredicateSubscription(expr string, t predicate.Type, params Parameters) *GroupPredicateSubscription {
	return &GroupPredicateSubscription{
		predicate: expr,
		predType:  t,
		params:    NewParameters(params.Priority, params.GroupReliable, params.MessageReliable, params.Sequenced),
	}
}

func (s *GroupPredicateSubscription) sealed() {}

// Type returns TypeGroupPredicate.
func (s *GroupPredicateSubscription) Type() Type { return TypeGroupPredicate }

// RequireFullMessage returns true; the payload is needed.
func (s *GroupPredicateSubscription) RequireFullMessage() bool { return true }

// Priority returns the subscription priority.
func (s *GroupPredicateSubscription) Priority() uint8 { return s.params.Priority }

// Parameters returns the QoS parameters.
func (s *GroupPredicateSubscription) Parameters() Parameters { return s.params }

// SetPriority changes the priority.
func (s *GroupPredicateSubscription) SetPriority(priority uint8) {
	s.params.Priority = priority
}

// Predicate returns the predicate expression.
func (s *GroupPredicateSubscription) Predicate() string { return s.predicate }

// PredicateType returns the predicate language.
func (s *GroupPredicateSubscription) PredicateType() predicate.Type { return s.predType }

// SetMatcher replaces the predicate evaluator.
func (s *GroupPredicateSubscription) SetMatcher(m PredicateMatcher) {
	s.matcher = m
}

func (s *GroupPredicateSubscription) activeMatcher() PredicateMatcher {
	if s.matcher != nil {
		return s.matcher
	}
	m, err := DefaultMatcher()
	if err != nil {
		return nil
	}
	return m
}

// MatchesTag returns true. A tag alone cannot decide a predicate.
func (s *GroupPredicateSubscription) MatchesTag(uint16) bool {
	return true
}

// Matches evaluates the predicate against the message payload. Fragments
// are accepted without evaluation. Payloads that do not parse and
// predicates that fail to evaluate do not match.
func (s *GroupPredicateSubscription) Matches(msg Message) bool {
	if s.RequireFullMessage() && msg.Info().IsFragment() {
		return true
	}
	m := s.activeMatcher()
	if m == nil {
		return false
	}
	ok, err := m.Match(s.predType, msg.Payload(), s.predicate)
	if err != nil {
		return false
	}
	return ok
}

// Includes reports whether other is a predicate subscription with the same
// expression and language and parameters this one covers.
func (s *GroupPredicateSubscription) Includes(other Subscription) bool {
	switch o := other.(type) {
	case *GroupPredicateSubscription:
		return o.predType == s.predType &&
			o.predicate == s.predicate &&
			s.params.Covers(o.params)
	case *GroupSubscription, *GroupTagSubscription:
		return false
	default:
		return false
	}
}

// AddPredicate would combine other into s. Combining expressions is not
// supported; it always returns false.
func (s *GroupPredicateSubscription) AddPredicate(other *GroupPredicateSubscription) bool {
	return false
}

// Merge hands a differing predicate to AddPredicate on the target. No
// target is modified.
func (s *GroupPredicateSubscription) Merge(target Subscription) bool {
	switch t := target.(type) {
	case *GroupPredicateSubscription:
		if t.predicate != s.predicate {
			return t.AddPredicate(s)
		}
		return false
	case *GroupSubscription:
		return false
	case *GroupTagSubscription:
		return false
	default:
		return false
	}
}

// AddHistory attaches a replay window. tag is ignored.
func (s *GroupPredicateSubscription) AddHistory(h history.History, _ uint16) error {
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
func (s *GroupPredicateSubscription) History() history.History {
	return s.history
}

// HasHistory reports whether an unexpired window is attached.
func (s *GroupPredicateSubscription) HasHistory() bool {
	if expired(s.history) {
		s.history = nil
	}
	return s.history != nil
}

// IsInHistory reports whether msg is matched and inside the window.
func (s *GroupPredicateSubscription) IsInHistory(msg Message, tracker history.SequenceTracker) bool {
	if !s.HasHistory() || !s.Matches(msg) {
		return false
	}
	return s.history.Contains(msg.Info(), tracker)
}

// HistoryRequests prepends a predicate request when an unexpired window is
// attached.
func (s *GroupPredicateSubscription) HistoryRequests(group string, out []history.Request) []history.Request {
	if !s.HasHistory() {
		return out
	}
	return prepend(out, history.PredicateRequest{
		Common:        history.Common{GroupName: group, History: s.history},
		PredicateType: uint8(s.predType),
		Predicate:     s.predicate,
	})
}

// Clone returns an independent copy sharing the matcher.
func (s *GroupPredicateSubscription) Clone() Subscription {
	return s.clone()
}

func (s *GroupPredicateSubscription) clone() *GroupPredicateSubscription {
	c := *s
	if s.history != nil {
		c.history = s.history.Clone()
	}
	return &c
}

// OnDemand returns a copy without group reliability.
func (s *GroupPredicateSubscription) OnDemand() Subscription {
	c := s.clone()
	c.params = c.params.OnDemand()
	return c
}

// Read decodes the predicate, its type and the parameters. s is only
// modified when every field decodes.
func (s *GroupPredicateSubscription) Read(r *wire.Reader, maxSize int) (int, error) {
	expr, total, err := r.ReadString(maxSize)
	if err != nil {
		return total, fmt.Errorf("predicate subscription: predicate: %w", err)
	}
	if expr == "" {
		return total, fmt.Errorf("predicate subscription: %w", ErrEmptyPredicate)
	}
	t, n, err := r.ReadUint8(maxSize - total)
	total += n
	if err != nil {
		return total, fmt.Errorf("predicate subscription: type: %w", err)
	}
	var params Parameters
	n, err = params.Read(r, maxSize-total)
	total += n
	if err != nil {
		return total, fmt.Errorf("predicate subscription: %w", err)
	}

	s.predicate = expr
	s.predType = predicate.Type(t)
	s.params = params
	s.history = nil
	return total, nil
}

// Write encodes the predicate, its type and the parameters. An empty
// predicate is rejected before anything is written.
func (s *GroupPredicateSubscription) Write(w *wire.Writer, maxSize int) (int, error) {
	if s.predicate == "" {
		return 0, fmt.Errorf("predicate subscription: %w", ErrEmptyPredicate)
	}
	if size := s.EncodedSize(); size > maxSize {
		return 0, fmt.Errorf("predicate subscription: need %d, have %d: %w", size, maxSize, wire.ErrShortBuffer)
	}

	total, err := w.WriteString(s.predicate, maxSize)
	if err != nil {
		return total, fmt.Errorf("predicate subscription: predicate: %w", err)
	}
	n, err := w.WriteUint8(uint8(s.predType), maxSize-total)
	total += n
	if err != nil {
		return total, fmt.Errorf("predicate subscription: type: %w", err)
	}
	n, err = s.params.Write(w, maxSize-total)
	total += n
	if err != nil {
		return total, fmt.Errorf("predicate subscription: %w", err)
	}
	return total, nil
}

// EncodedSize returns the number of bytes Write produces.
func (s *GroupPredicateSubscription) EncodedSize() int {
	return wire.SizeUint16 + len(s.predicate) + wire.SizeUint8 + ParametersSize
}

func (s *GroupPredicateSubscription) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "predicate{%s %q %s", s.predType, s.predicate, s.params)
	if s.history != nil {
		fmt.Fprintf(&b, " history=%s", s.history)
	}
	b.WriteString("}")
	return b.String()
}

// Compile-time interface satisfaction check.
var _ Subscription = (*GroupPredicateSubscription)(nil)
