package msgindex

import (
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/groupcast/groupcast-go/pkg/msgkey"
)

// senderEntries holds the values stored for one sender.
type senderEntries[V any] struct {
	values map[uint64]V

	// latest is the highest sequence ever stored, deletes do not lower it.
	latest uint64
}

// Index maps (group, sender, sequence) to a value.
// It is safe for concurrent use.
type Index[V any] struct {
	mu     sync.RWMutex
	groups map[string]map[string]*senderEntries[V]
	count  int
}

// New creates an empty index.
func New[V any]() *Index[V] {
	return &Index[V]{
		groups: make(map[string]map[string]*senderEntries[V]),
	}
}

// Put stores v under (group, sender, seq), replacing any previous value.
// Returns true if a value was replaced.
func (x *Index[V]) Put(group, sender string, seq uint64, v V) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	senders, ok := x.groups[group]
	if !ok {
		senders = make(map[string]*senderEntries[V])
		x.groups[group] = senders
	}
	entries, ok := senders[sender]
	if !ok {
		entries = &senderEntries[V]{values: make(map[uint64]V), latest: seq}
		senders[sender] = entries
	}
	if seq > entries.latest {
		entries.latest = seq
	}

	_, replaced := entries.values[seq]
	entries.values[seq] = v
	if !replaced {
		x.count++
	}
	return replaced
}

// PutKey stores v under the message a key names. Chunk fields are ignored.
func (x *Index[V]) PutKey(k msgkey.Key, v V) bool {
	return x.Put(k.Group, k.Sender, k.Sequence, v)
}

// Get returns the value stored under (group, sender, seq).
func (x *Index[V]) Get(group, sender string, seq uint64) (V, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if entries := x.lookup(group, sender); entries != nil {
		v, ok := entries.values[seq]
		return v, ok
	}
	var zero V
	return zero, false
}

// GetKey returns the value stored under the message a key names.
func (x *Index[V]) GetKey(k msgkey.Key) (V, bool) {
	return x.Get(k.Group, k.Sender, k.Sequence)
}

// Delete removes one value. Returns true if it existed.
// Empty sender and group levels are kept so LatestSeq survives.
func (x *Index[V]) Delete(group, sender string, seq uint64) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	entries := x.lookup(group, sender)
	if entries == nil {
		return false
	}
	if _, ok := entries.values[seq]; !ok {
		return false
	}
	delete(entries.values, seq)
	x.count--
	return true
}

// DeleteSender removes a sender and everything stored for it.
// Returns the number of values removed.
func (x *Index[V]) DeleteSender(group, sender string) int {
	x.mu.Lock()
	defer x.mu.Unlock()

	senders, ok := x.groups[group]
	if !ok {
		return 0
	}
	entries, ok := senders[sender]
	if !ok {
		return 0
	}
	delete(senders, sender)
	if len(senders) == 0 {
		delete(x.groups, group)
	}
	x.count -= len(entries.values)
	return len(entries.values)
}

// DeleteGroup removes a group and everything stored under it.
// Returns the number of values removed.
func (x *Index[V]) DeleteGroup(group string) int {
	x.mu.Lock()
	defer x.mu.Unlock()

	senders, ok := x.groups[group]
	if !ok {
		return 0
	}
	removed := 0
	for _, entries := range senders {
		removed += len(entries.values)
	}
	delete(x.groups, group)
	x.count -= removed
	return removed
}

// LatestSeq returns the highest sequence number ever stored for a sender.
func (x *Index[V]) LatestSeq(group, sender string) (uint64, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if entries := x.lookup(group, sender); entries != nil {
		return entries.latest, true
	}
	return 0, false
}

// Len returns the number of stored values.
func (x *Index[V]) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.count
}

// Groups returns the known group names in sorted order.
func (x *Index[V]) Groups() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	groups := lo.Keys(x.groups)
	slices.Sort(groups)
	return groups
}

// Senders returns the known senders of a group in sorted order.
func (x *Index[V]) Senders(group string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	senders := lo.Keys(x.groups[group])
	slices.Sort(senders)
	return senders
}

// Range calls fn for every value of a group in (sender, sequence) order
// until fn returns false. fn must not modify the index.
func (x *Index[V]) Range(group string, fn func(sender string, seq uint64, v V) bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	senders := x.groups[group]
	names := lo.Keys(senders)
	slices.Sort(names)
	for _, sender := range names {
		entries := senders[sender]
		seqs := lo.Keys(entries.values)
		slices.Sort(seqs)
		for _, seq := range seqs {
			if !fn(sender, seq, entries.values[seq]) {
				return
			}
		}
	}
}

func (x *Index[V]) lookup(group, sender string) *senderEntries[V] {
	senders, ok := x.groups[group]
	if !ok {
		return nil
	}
	return senders[sender]
}
