package subscription

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/groupcast/groupcast-go/pkg/history"
	"github.com/groupcast/groupcast-go/pkg/wire"
)

func newTags(t *testing.T, tags ...uint16) *GroupTagSubscription {
	t.Helper()
	s := NewGroupTagSubscription()
	for i, tag := range tags {
		if err := s.AddTag(tag, uint8(i+1), false, false, false); err != nil {
			t.Fatalf("AddTag(%d) error = %v", tag, err)
		}
	}
	return s
}

func TestGroupTagAddTag(t *testing.T) {
	s := NewGroupTagSubscription()
	if err := s.AddTag(5, 2, true, false, false); err != nil {
		t.Fatalf("AddTag() error = %v", err)
	}
	if err := s.AddTag(5, 9, false, false, false); !errors.Is(err, ErrTagExists) {
		t.Errorf("duplicate AddTag() error = %v, want ErrTagExists", err)
	}

	info, ok := s.Tag(5)
	if !ok {
		t.Fatal("tag 5 missing")
	}
	if !info.Parameters.MessageReliable {
		t.Error("group reliability should force message reliability")
	}
	if info.Parameters.Priority != 2 {
		t.Error("duplicate AddTag() should not change the tag")
	}
}

func TestGroupTagHighestPriority(t *testing.T) {
	s := NewGroupTagSubscription()
	steps := []struct {
		op   func() error
		want uint8
	}{
		{func() error { return s.AddTag(1, 4, false, false, false) }, 4},
		{func() error { return s.AddTag(2, 7, false, false, false) }, 7},
		{func() error { return s.AddTag(3, 1, false, false, false) }, 7},
		{func() error { return s.SetTagPriority(2, 2) }, 4},
		{func() error { return s.SetTagPriority(3, 9) }, 9},
		{func() error { return s.SetTagPriority(3, 0) }, 4},
	}
	for i, step := range steps {
		if err := step.op(); err != nil {
			t.Fatalf("step %d error = %v", i, err)
		}
		if got := s.HighestPriority(); got != step.want {
			t.Errorf("step %d HighestPriority() = %d, want %d", i, got, step.want)
		}
		if s.Priority() != s.HighestPriority() {
			t.Errorf("step %d Priority() differs from HighestPriority()", i)
		}
	}

	if err := s.SetTagPriority(42, 1); !errors.Is(err, ErrTagNotFound) {
		t.Errorf("SetTagPriority(42) error = %v, want ErrTagNotFound", err)
	}
}

func TestGroupTagMatches(t *testing.T) {
	s := newTags(t, 5, 6)

	if !s.MatchesTag(5) || s.MatchesTag(7) {
		t.Error("MatchesTag() should follow the tag table")
	}
	if !s.Matches(message(6, "")) || s.Matches(message(0, "")) {
		t.Error("Matches() should follow the tag table")
	}
	if got := s.Tags(); len(got) != 2 || got[0] != 5 || got[1] != 6 {
		t.Errorf("Tags() = %v", got)
	}
}

func TestGroupTagParametersAreMaxima(t *testing.T) {
	s := NewGroupTagSubscription()
	_ = s.AddTag(1, 3, true, false, false)
	_ = s.AddTag(2, 8, false, false, true)

	want := Parameters{Priority: 8, GroupReliable: true, MessageReliable: true, Sequenced: true}
	if s.Parameters() != want {
		t.Errorf("Parameters() = %+v, want %+v", s.Parameters(), want)
	}
}

func TestGroupTagIncludes(t *testing.T) {
	s := newTags(t, 1, 2, 3)

	if !s.Includes(newTags(t, 1, 3)) {
		t.Error("subset of tags should be included")
	}
	if s.Includes(newTags(t, 1, 4)) {
		t.Error("tag 4 is missing and should not be included")
	}
	if s.Includes(NewGroupSubscription(Parameters{})) {
		t.Error("group subscription is never included")
	}
	if s.Includes(NewGroupPredicateSubscription("a", 0, Parameters{})) {
		t.Error("predicate subscription is never included")
	}
}

func TestGroupTagMergeIntoGroupTag(t *testing.T) {
	target := NewGroupTagSubscription()
	_ = target.AddTag(5, 2, false, false, false)

	src := NewGroupTagSubscription()
	_ = src.AddTag(5, 9, true, false, false)

	if !src.Merge(target) {
		t.Fatal("Merge() should modify the target")
	}
	info, _ := target.Tag(5)
	if info.Parameters.Priority != 9 || !info.Parameters.GroupReliable || !info.Parameters.MessageReliable {
		t.Errorf("tag 5 = %+v", info.Parameters)
	}
	if target.HighestPriority() < 9 {
		t.Errorf("HighestPriority() = %d, want >= 9", target.HighestPriority())
	}

	if src.Merge(target) {
		t.Error("second Merge() should not modify the target")
	}
}

func TestGroupTagMergeAddsMissingTags(t *testing.T) {
	target := newTags(t, 1)
	src := NewGroupTagSubscription()
	_ = src.AddTag(2, 6, false, true, true)

	if !src.Merge(target) {
		t.Fatal("Merge() should modify the target")
	}
	info, ok := target.Tag(2)
	if !ok {
		t.Fatal("tag 2 should be added")
	}
	if info.Parameters != NewParameters(6, false, true, true) {
		t.Errorf("tag 2 = %+v", info.Parameters)
	}
	if target.HighestPriority() != 6 {
		t.Errorf("HighestPriority() = %d, want 6", target.HighestPriority())
	}
	if src.Merge(src) {
		t.Error("Merge() into itself should report false")
	}
}

func TestGroupTagMergeIntoGroup(t *testing.T) {
	target := NewGroupSubscription(NewParameters(1, false, false, false))
	target.AddFilter(3)
	target.AddFilter(4)

	src := NewGroupTagSubscription()
	_ = src.AddTag(3, 5, false, false, false)
	_ = src.AddTag(9, 2, false, false, true)

	if !src.Merge(target) {
		t.Fatal("Merge() should modify the target")
	}
	if got := target.Filters(); len(got) != 1 || got[0] != 4 {
		t.Errorf("filters = %v, want [4]", got)
	}
	want := Parameters{Priority: 5, Sequenced: true}
	if target.Parameters() != want {
		t.Errorf("params = %+v, want %+v", target.Parameters(), want)
	}
	if src.Merge(target) {
		t.Error("second Merge() should not modify the target")
	}
}

func TestGroupTagMergeIntoPredicate(t *testing.T) {
	target := NewGroupPredicateSubscription("a", 0, Parameters{})
	if newTags(t, 1).Merge(target) {
		t.Error("merge into a predicate subscription should report false")
	}
}

func TestGroupTagHistory(t *testing.T) {
	f, clock := newTestFactory()
	s := newTags(t, 1, 2, 3)

	if err := s.AddHistory(nil, 1); !errors.Is(err, ErrNilHistory) {
		t.Errorf("AddHistory(nil) error = %v", err)
	}
	short, _ := f.NewShift(2, time.Second)
	long, _ := f.NewDiscrete(1, 10, time.Minute)
	if err := s.AddHistory(short, 1); err != nil {
		t.Fatalf("AddHistory(1) error = %v", err)
	}
	if err := s.AddHistory(long, 2); err != nil {
		t.Fatalf("AddHistory(2) error = %v", err)
	}
	if err := s.AddHistory(long, 2); !errors.Is(err, ErrHistoryAttached) {
		t.Errorf("second AddHistory(2) error = %v", err)
	}
	if err := s.AddHistory(long, 42); !errors.Is(err, ErrTagNotFound) {
		t.Errorf("AddHistory(42) error = %v", err)
	}

	reqs := s.HistoryRequests("news", nil)
	if len(reqs) != 2 {
		t.Fatalf("len = %d, want 2", len(reqs))
	}
	// Tags are visited in ascending order and each request is prepended.
	if r := reqs[0].(history.TagRequest); r.Tag != 2 {
		t.Errorf("first request tag = %d, want 2", r.Tag)
	}

	clock.Advance(2 * time.Second)
	if !s.HasHistory() {
		t.Error("tag 2 window is still active")
	}
	if info, _ := s.Tag(1); info.History != nil {
		t.Error("expired tag 1 window should be dropped")
	}

	tracker := trackerMap{"alice": 5}
	if !s.IsInHistory(wire.NewMessage("news", "alice", 4, 2, nil), tracker) {
		t.Error("seq 4 on tag 2 should be in history")
	}
	if s.IsInHistory(wire.NewMessage("news", "alice", 4, 3, nil), tracker) {
		t.Error("tag 3 has no window")
	}
	if s.IsInHistory(wire.NewMessage("news", "alice", 4, 7, nil), tracker) {
		t.Error("tag 7 is not subscribed")
	}

	clock.Advance(time.Minute)
	if got := s.HistoryRequests("news", nil); len(got) != 0 {
		t.Errorf("expired windows produced %d requests", len(got))
	}
	if s.HasHistory() {
		t.Error("no window should remain")
	}
}

func TestGroupTagWireRoundTrip(t *testing.T) {
	s := NewGroupTagSubscription()
	_ = s.AddTag(300, 4, true, true, false)
	_ = s.AddTag(2, 9, false, false, true)

	data, err := encode(s)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	want := []byte{
		9, 0x00, 0x02,
		0x00, 0x02, 9, 0, 0, 1,
		0x01, 0x2c, 4, 1, 1, 0,
	}
	if !bytes.Equal(data, want) {
		t.Fatalf("bytes = %x, want %x", data, want)
	}

	got := NewGroupTagSubscription()
	n, err := got.Read(wire.NewReader(bytes.NewReader(data)), len(data))
	if err != nil || n != len(data) {
		t.Fatalf("Read() = %d, %v", n, err)
	}
	if got.String() != s.String() {
		t.Errorf("Read() = %s, want %s", got, s)
	}
}

func TestGroupTagReadFailures(t *testing.T) {
	s := newTags(t, 1)
	before := s.String()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"duplicate tag", []byte{1, 0, 2, 0, 7, 1, 0, 0, 0, 0, 7, 1, 0, 0, 0}, wire.ErrMalformed},
		{"count too large", []byte{1, 0, 9, 0, 7, 1, 0, 0, 0}, wire.ErrShortBuffer},
		{"bad bool", []byte{1, 0, 1, 0, 7, 1, 5, 0, 0}, wire.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Read(wire.NewReader(bytes.NewReader(tt.data)), len(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Read() error = %v, want %v", err, tt.want)
			}
			if s.String() != before {
				t.Errorf("subscription changed to %s", s)
			}
		})
	}
}

func TestGroupTagWriteTooSmall(t *testing.T) {
	s := newTags(t, 1, 2)
	var buf bytes.Buffer
	if _, err := s.Write(wire.NewWriter(&buf), s.EncodedSize()-1); !errors.Is(err, wire.ErrShortBuffer) {
		t.Errorf("Write() error = %v, want ErrShortBuffer", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes", buf.Len())
	}
}

func TestGroupTagOnDemand(t *testing.T) {
	s := NewGroupTagSubscription()
	_ = s.AddTag(1, 3, true, true, true)

	od := s.OnDemand().(*GroupTagSubscription)
	info, _ := od.Tag(1)
	if info.Parameters.GroupReliable || !info.Parameters.MessageReliable || !info.Parameters.Sequenced {
		t.Errorf("OnDemand() tag params = %+v", info.Parameters)
	}
	if orig, _ := s.Tag(1); !orig.Parameters.GroupReliable {
		t.Error("OnDemand() should not change the original")
	}
}
