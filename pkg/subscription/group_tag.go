package subscription

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/groupcast/groupcast-go/pkg/history"
	"github.com/groupcast/groupcast-go/pkg/wire"
)

// tagRecordSize is the encoded size of one tag entry.
const tagRecordSize = wire.SizeUint16 + ParametersSize

// TagInfo is the per-tag state of a GroupTagSubscription.
type TagInfo struct {
	Parameters Parameters
	History    history.History
}

// GroupTagSubscription accepts messages whose tag is in its table. Each
// tag carries its own Parameters and optional history window.
type GroupTagSubscription struct {
	tags            map[uint16]*TagInfo
	highestPriority uint8
}

// NewGroupTagSubscription creates a tag subscription with no tags.
func NewGroupTagSubscription() *GroupTagSubscription {
	return &GroupTagSubscription{tags: make(map[uint16]*TagInfo)}
}

func (s *GroupTagSubscription) sealed() {}

// Type returns TypeGroupTag.
func (s *GroupTagSubscription) Type() Type { return TypeGroupTag }

// RequireFullMessage returns false; tags are in the header.
func (s *GroupTagSubscription) RequireFullMessage() bool { return false }

// Priority returns the highest priority over all tags.
func (s *GroupTagSubscription) Priority() uint8 { return s.highestPriority }

// HighestPriority returns the highest priority over all tags.
func (s *GroupTagSubscription) HighestPriority() uint8 { return s.highestPriority }

// Parameters returns the field-wise maximum over all tags.
func (s *GroupTagSubscription) Parameters() Parameters {
	var maxima Parameters
	for _, info := range s.tags {
		maxima.Promote(info.Parameters)
	}
	return maxima
}

// AddTag adds a tag. Group reliability forces message reliability.
func (s *GroupTagSubscription) AddTag(tag uint16, priority uint8, groupReliable, messageReliable, sequenced bool) error {
	if _, ok := s.tags[tag]; ok {
		return fmt.Errorf("%w: %d", ErrTagExists, tag)
	}
	s.tags[tag] = &TagInfo{
		Parameters: NewParameters(priority, groupReliable, messageReliable, sequenced),
	}
	s.raiseHighest(priority)
	return nil
}

// SetTagPriority changes the priority of one tag.
func (s *GroupTagSubscription) SetTagPriority(tag uint16, priority uint8) error {
	info, ok := s.tags[tag]
	if !ok {
		return fmt.Errorf("%w: %d", ErrTagNotFound, tag)
	}
	info.Parameters.Priority = priority
	s.recomputeHighest()
	return nil
}

// Tag returns a copy of the state held for a tag.
func (s *GroupTagSubscription) Tag(tag uint16) (TagInfo, bool) {
	info, ok := s.tags[tag]
	if !ok {
		return TagInfo{}, false
	}
	return *info, true
}

// Tags returns the subscribed tags in ascending order.
func (s *GroupTagSubscription) Tags() []uint16 {
	tags := lo.Keys(s.tags)
	slices.Sort(tags)
	return tags
}

// Len returns the number of tags.
func (s *GroupTagSubscription) Len() int {
	return len(s.tags)
}

func (s *GroupTagSubscription) raiseHighest(priority uint8) {
	if priority > s.highestPriority {
		s.highestPriority = priority
	}
}

func (s *GroupTagSubscription) recomputeHighest() {
	s.highestPriority = 0
	for _, info := range s.tags {
		s.raiseHighest(info.Parameters.Priority)
	}
}

// MatchesTag is true if the tag is subscribed.
func (s *GroupTagSubscription) MatchesTag(tag uint16) bool {
	_, ok := s.tags[tag]
	return ok
}

// Matches is true if the message tag is subscribed.
func (s *GroupTagSubscription) Matches(msg Message) bool {
	return s.MatchesTag(msg.Info().Tag)
}

// Includes reports whether other is a tag subscription whose tags are all
// subscribed here.
func (s *GroupTagSubscription) Includes(other Subscription) bool {
	switch o := other.(type) {
	case *GroupTagSubscription:
		for tag := range o.tags {
			if _, ok := s.tags[tag]; !ok {
				return false
			}
		}
		return true
	case *GroupSubscription, *GroupPredicateSubscription:
		return false
	default:
		return false
	}
}

// Merge folds the subscription into target.
//
// For a group target every local tag is removed from the target's
// exclusion set and the target's parameters are raised to the maximum
// over the local tags. For a tag target, tags present on both sides are
// raised to the maximum and local-only tags are added. Predicate targets
// are left untouched.
func (s *GroupTagSubscription) Merge(target Subscription) bool {
	switch t := target.(type) {
	case *GroupSubscription:
		modified := false
		for tag := range s.tags {
			if t.RemoveFilter(tag) == nil {
				modified = true
			}
		}
		if t.params.Promote(s.Parameters()) {
			modified = true
		}
		return modified
	case *GroupTagSubscription:
		if t == s {
			return false
		}
		modified := false
		for tag, info := range s.tags {
			if existing, ok := t.tags[tag]; ok {
				if existing.Parameters.Promote(info.Parameters) {
					modified = true
				}
			} else {
				t.tags[tag] = &TagInfo{Parameters: info.Parameters}
				modified = true
			}
			t.raiseHighest(t.tags[tag].Parameters.Priority)
		}
		return modified
	case *GroupPredicateSubscription:
		return false
	default:
		return false
	}
}

// AddHistory attaches a replay window to a subscribed tag.
func (s *GroupTagSubscription) AddHistory(h history.History, tag uint16) error {
	if h == nil {
		return ErrNilHistory
	}
	info, ok := s.tags[tag]
	if !ok {
		return fmt.Errorf("%w: %d", ErrTagNotFound, tag)
	}
	if info.History != nil {
		return fmt.Errorf("%w: tag %d", ErrHistoryAttached, tag)
	}
	info.History = h
	return nil
}

// pruneTag drops an expired window and reports whether one is left.
func pruneTag(info *TagInfo) bool {
	if expired(info.History) {
		info.History = nil
	}
	return info.History != nil
}

// HasHistory reports whether any tag has an unexpired window. Every
// expired window is dropped.
func (s *GroupTagSubscription) HasHistory() bool {
	found := false
	for _, info := range s.tags {
		if pruneTag(info) {
			found = true
		}
	}
	return found
}

// IsInHistory reports whether the message tag is subscribed and the
// message falls in that tag's unexpired window.
func (s *GroupTagSubscription) IsInHistory(msg Message, tracker history.SequenceTracker) bool {
	info, ok := s.tags[msg.Info().Tag]
	if !ok || !pruneTag(info) {
		return false
	}
	return info.History.Contains(msg.Info(), tracker)
}

// HistoryRequests prepends one request per tag with an unexpired window.
// Expired windows are dropped.
func (s *GroupTagSubscription) HistoryRequests(group string, out []history.Request) []history.Request {
	for _, tag := range s.Tags() {
		info := s.tags[tag]
		if !pruneTag(info) {
			continue
		}
		out = prepend(out, history.TagRequest{
			Common: history.Common{GroupName: group, History: info.History},
			Tag:    tag,
		})
	}
	return out
}

// Clone returns an independent copy.
func (s *GroupTagSubscription) Clone() Subscription {
	return s.clone()
}

func (s *GroupTagSubscription) clone() *GroupTagSubscription {
	c := &GroupTagSubscription{
		tags:            make(map[uint16]*TagInfo, len(s.tags)),
		highestPriority: s.highestPriority,
	}
	for tag, info := range s.tags {
		ci := &TagInfo{Parameters: info.Parameters}
		if info.History != nil {
			ci.History = info.History.Clone()
		}
		c.tags[tag] = ci
	}
	return c
}

// OnDemand returns a copy without group reliability on any tag.
func (s *GroupTagSubscription) OnDemand() Subscription {
	c := s.clone()
	for _, info := range c.tags {
		info.Parameters = info.Parameters.OnDemand()
	}
	return c
}

// Read decodes highestPriority, the tag count and one record per tag. The
// tag table is replaced only when every record decodes; windows are not on
// the wire and are dropped. highestPriority is recomputed from the records.
func (s *GroupTagSubscription) Read(r *wire.Reader, maxSize int) (int, error) {
	_, total, err := r.ReadUint8(maxSize)
	if err != nil {
		return total, fmt.Errorf("tag subscription: highest priority: %w", err)
	}
	count, n, err := r.ReadUint16(maxSize - total)
	total += n
	if err != nil {
		return total, fmt.Errorf("tag subscription: tag count: %w", err)
	}
	if int(count)*tagRecordSize > maxSize-total {
		return total, fmt.Errorf("tag subscription: %d tags: %w", count, wire.ErrShortBuffer)
	}

	tags := make(map[uint16]*TagInfo, count)
	for i := 0; i < int(count); i++ {
		tag, n, err := r.ReadUint16(maxSize - total)
		total += n
		if err != nil {
			return total, fmt.Errorf("tag subscription: record %d: %w", i, err)
		}
		var params Parameters
		n, err = params.Read(r, maxSize-total)
		total += n
		if err != nil {
			return total, fmt.Errorf("tag subscription: record %d: %w", i, err)
		}
		if _, dup := tags[tag]; dup {
			return total, fmt.Errorf("tag subscription: duplicate tag %d: %w", tag, wire.ErrMalformed)
		}
		tags[tag] = &TagInfo{Parameters: params}
	}

	s.tags = tags
	s.recomputeHighest()
	return total, nil
}

// Write encodes highestPriority, the tag count and one record per tag in
// ascending tag order.
func (s *GroupTagSubscription) Write(w *wire.Writer, maxSize int) (int, error) {
	if len(s.tags) > 0xFFFF {
		return 0, fmt.Errorf("tag subscription: %d tags: %w", len(s.tags), wire.ErrFieldTooLarge)
	}
	if size := s.EncodedSize(); size > maxSize {
		return 0, fmt.Errorf("tag subscription: need %d, have %d: %w", size, maxSize, wire.ErrShortBuffer)
	}

	total, err := w.WriteUint8(s.highestPriority, maxSize)
	if err != nil {
		return total, err
	}
	n, err := w.WriteUint16(uint16(len(s.tags)), maxSize-total)
	total += n
	if err != nil {
		return total, err
	}
	for _, tag := range s.Tags() {
		n, err := w.WriteUint16(tag, maxSize-total)
		total += n
		if err != nil {
			return total, err
		}
		n, err = s.tags[tag].Parameters.Write(w, maxSize-total)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// EncodedSize returns the number of bytes Write produces.
func (s *GroupTagSubscription) EncodedSize() int {
	return wire.SizeUint8 + wire.SizeUint16 + len(s.tags)*tagRecordSize
}

func (s *GroupTagSubscription) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tags{highest=%d", s.highestPriority)
	for _, tag := range s.Tags() {
		info := s.tags[tag]
		fmt.Fprintf(&b, " [%d: %s", tag, info.Parameters)
		if info.History != nil {
			fmt.Fprintf(&b, " history=%s", info.History)
		}
		b.WriteString("]")
	}
	b.WriteString("}")
	return b.String()
}

// Compile-time interface satisfaction check.
var _ Subscription = (*GroupTagSubscription)(nil)
