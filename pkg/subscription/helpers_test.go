package subscription

import (
	"bytes"
	"time"

	"github.com/groupcast/groupcast-go/pkg/history"
	"github.com/groupcast/groupcast-go/pkg/wire"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestFactory() (*history.Factory, *fakeClock) {
	clock := newFakeClock()
	return history.NewFactoryWithClock(clock.Now, time.Minute), clock
}

// trackerMap is a SequenceTracker keyed by sender.
type trackerMap map[string]uint64

func (m trackerMap) LatestSeq(_ string, sender string) (uint64, bool) {
	seq, ok := m[sender]
	return seq, ok
}

func message(tag uint16, payload string) *wire.Message {
	return wire.NewMessage("news", "alice", 1, tag, []byte(payload))
}

func fragment(tag uint16, payload string) *wire.Message {
	msg := message(tag, payload)
	msg.Header.TotalLength = msg.Header.FragmentLength * 2
	return msg
}

func encode(s Subscription) ([]byte, error) {
	var buf bytes.Buffer
	_, err := s.Write(wire.NewWriter(&buf), s.EncodedSize())
	return buf.Bytes(), err
}
