package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func logOne(t *testing.T, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	NewSlogAdapter(slog.New(handler)).Log(event)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestSlogAdapterLogsMatchEvent(t *testing.T) {
	entry := logOne(t, Event{
		Timestamp:      time.Now(),
		Category:       CategoryMatch,
		Group:          "weather",
		SubscriptionID: "sub-1",
		Match:          &MatchEvent{Sender: "n1", Sequence: 9, Tag: 4, Matched: true, Fragment: true},
	})

	if entry["category"] != "MATCH" {
		t.Errorf("category: got %v, want MATCH", entry["category"])
	}
	if entry["group"] != "weather" {
		t.Errorf("group: got %v, want weather", entry["group"])
	}
	if entry["sub_id"] != "sub-1" {
		t.Errorf("sub_id: got %v, want sub-1", entry["sub_id"])
	}
	if entry["seq"] != float64(9) {
		t.Errorf("seq: got %v, want 9", entry["seq"])
	}
	if entry["matched"] != true || entry["fragment"] != true {
		t.Errorf("matched/fragment: got %v/%v", entry["matched"], entry["fragment"])
	}
	if entry["level"] != "DEBUG" {
		t.Errorf("level: got %v, want DEBUG", entry["level"])
	}
}

func TestSlogAdapterLogsMergeEvent(t *testing.T) {
	entry := logOne(t, Event{
		Category: CategoryMerge,
		Merge:    &MergeEvent{TargetIndex: 2, TargetType: 1, Modified: true},
	})

	if entry["target_index"] != float64(2) {
		t.Errorf("target_index: got %v, want 2", entry["target_index"])
	}
	if entry["modified"] != true {
		t.Errorf("modified: got %v, want true", entry["modified"])
	}
}

func TestSlogAdapterLogsMembershipAndHistory(t *testing.T) {
	entry := logOne(t, Event{
		Category:   CategoryMembership,
		Membership: &MembershipEvent{Action: MembershipSubscribe, Consolidated: 3},
	})
	if entry["action"] != "SUBSCRIBE" || entry["consolidated"] != float64(3) {
		t.Errorf("membership attrs: %v", entry)
	}

	entry = logOne(t, Event{
		Category: CategoryHistory,
		History:  &HistoryEvent{Action: HistoryRequested, Count: 2},
	})
	if entry["action"] != "REQUESTED" || entry["count"] != float64(2) {
		t.Errorf("history attrs: %v", entry)
	}
	if _, ok := entry["kind"]; ok {
		t.Error("empty kind should be omitted")
	}
}

func TestSlogAdapterLogsErrorAtWarn(t *testing.T) {
	entry := logOne(t, Event{
		Category: CategoryError,
		Error:    &ErrorEventData{Message: "tag already present", Context: "subscribe"},
	})

	if entry["level"] != "WARN" {
		t.Errorf("level: got %v, want WARN", entry["level"])
	}
	if entry["error"] != "tag already present" || entry["context"] != "subscribe" {
		t.Errorf("error attrs: %v", entry)
	}
}
