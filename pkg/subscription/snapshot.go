package subscription

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/groupcast/groupcast-go/pkg/wire"
)

// SnapshotEntry is one subscription in a table snapshot. Body is the
// type-prefixed binary encoding. Filters carries the exclusion set of a
// group subscription, which the binary encoding omits. History windows
// are not kept.
type SnapshotEntry struct {
	ID      string    `cbor:"1,keyasint"`
	Group   string    `cbor:"2,keyasint"`
	Created time.Time `cbor:"3,keyasint"`
	Body    []byte    `cbor:"4,keyasint"`
	Filters []uint16  `cbor:"5,keyasint,omitempty"`
}

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = 1

// Snapshot is the CBOR-encodable state of a table.
type Snapshot struct {
	Version int             `cbor:"1,keyasint"`
	SavedAt time.Time       `cbor:"2,keyasint"`
	Entries []SnapshotEntry `cbor:"3,keyasint"`
}

// Snapshot encodes every subscription, by group and in subscription order.
func (t *Table) Snapshot() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{Version: SnapshotVersion, SavedAt: t.now()}
	for _, group := range t.sortedGroups() {
		for _, e := range t.groups[group].entries {
			body, err := Marshal(e.sub)
			if err != nil {
				return nil, fmt.Errorf("snapshot %s: %w", e.id, err)
			}
			se := SnapshotEntry{
				ID:      e.id.String(),
				Group:   e.group,
				Created: e.created,
				Body:    body,
			}
			if g, ok := e.sub.(*GroupSubscription); ok {
				se.Filters = g.Filters()
			}
			snap.Entries = append(snap.Entries, se)
		}
	}
	return wire.Marshal(snap)
}

// Restore adds the subscriptions of a snapshot, keeping their handles.
// Nothing is added unless every entry decodes and fits.
func (t *Table) Restore(data []byte) error {
	var snap Snapshot
	if err := wire.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("restore: unsupported snapshot version %d", snap.Version)
	}

	type restored struct {
		id      uuid.UUID
		group   string
		created time.Time
		sub     Subscription
	}
	decoded := make([]restored, 0, len(snap.Entries))
	for i, se := range snap.Entries {
		id, err := uuid.Parse(se.ID)
		if err != nil {
			return fmt.Errorf("restore entry %d: %w", i, err)
		}
		sub, err := Unmarshal(se.Body)
		if err != nil {
			return fmt.Errorf("restore entry %d: %w", i, err)
		}
		if len(se.Filters) > 0 {
			g, ok := sub.(*GroupSubscription)
			if !ok {
				return fmt.Errorf("restore entry %d: filters on %s subscription: %w", i, sub.Type(), wire.ErrMalformed)
			}
			for _, tag := range se.Filters {
				g.AddFilter(tag)
			}
		}
		decoded = append(decoded, restored{id: id, group: se.Group, created: se.Created, sub: sub})
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries)+len(decoded) > t.config.MaxSubscriptions {
		return ErrResourceExhausted
	}
	newGroups := make(map[string]struct{})
	for _, r := range decoded {
		if _, ok := t.groups[r.group]; !ok {
			newGroups[r.group] = struct{}{}
		}
	}
	if len(t.groups)+len(newGroups) > t.config.MaxGroups {
		return ErrResourceExhausted
	}
	seen := make(map[uuid.UUID]struct{}, len(decoded))
	for _, r := range decoded {
		if _, dup := t.entries[r.id]; dup {
			return fmt.Errorf("restore %s: duplicate handle", r.id)
		}
		if _, dup := seen[r.id]; dup {
			return fmt.Errorf("restore %s: duplicate handle", r.id)
		}
		seen[r.id] = struct{}{}
		if err := t.checkSubscribe(r.group, r.sub); err != nil {
			return fmt.Errorf("restore %s: %w", r.id, err)
		}
	}
	for _, r := range decoded {
		t.insert(r.id, r.group, r.sub)
		if !r.created.IsZero() {
			t.entries[r.id].created = r.created
		}
	}
	return nil
}
