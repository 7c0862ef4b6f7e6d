package log

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/groupcast/groupcast-go/pkg/wire"
)

// Filter selects trace events. Zero fields match everything; TimeEnd is
// exclusive.
type Filter struct {
	Group          string
	SubscriptionID string
	Category       *Category
	TimeStart      *time.Time
	TimeEnd        *time.Time

	// MatchedOnly drops match events that rejected the message, and every
	// event that is not a match.
	MatchedOnly bool
}

// Matches reports whether event passes every criterion that is set.
func (f Filter) Matches(event Event) bool {
	switch {
	case f.Group != "" && f.Group != event.Group,
		f.SubscriptionID != "" && f.SubscriptionID != event.SubscriptionID,
		f.Category != nil && *f.Category != event.Category,
		f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart),
		f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	}
	return !f.MatchedOnly || (event.Match != nil && event.Match.Matched)
}

// Reader decodes a trace file written by FileLogger, skipping events the
// filter rejects.
type Reader struct {
	io.Closer
	dec    *cbor.Decoder
	filter Filter
}

// NewReader reads every event of the trace at path.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader reads the events of the trace at path that filter keeps.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{Closer: f, dec: wire.NewDecoder(f), filter: filter}, nil
}

// Next returns the next kept event. io.EOF marks a clean end of trace.
func (r *Reader) Next() (Event, error) {
	var event Event
	for {
		event = Event{}
		if err := r.dec.Decode(&event); err != nil {
			return Event{}, err
		}
		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// ReadAll drains the reader. Events decoded before an error are returned
// with it.
func (r *Reader) ReadAll() ([]Event, error) {
	var events []Event
	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		} else if err != nil {
			return events, err
		}
		events = append(events, event)
	}
}
