package subscription

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/groupcast/groupcast-go/pkg/history"
	"github.com/groupcast/groupcast-go/pkg/log"
	"github.com/groupcast/groupcast-go/pkg/predicate"
	"github.com/groupcast/groupcast-go/pkg/wire"
)

// Table errors.
var (
	ErrResourceExhausted    = errors.New("subscription limit reached")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidGroup         = errors.New("invalid group name")
	ErrNilSubscription      = errors.New("nil subscription")
	ErrPredicateTooLong     = errors.New("predicate too long")
	ErrTableClosed          = errors.New("table closed")
)

// Match is a subscription that accepted a message.
type Match struct {
	// ID identifies the table entry.
	ID uuid.UUID

	// Type is the subscription variant.
	Type Type

	// Parameters is the QoS to deliver with.
	Parameters Parameters

	// Partial is set when a fragment was accepted without evaluating the
	// subscription against the full message.
	Partial bool
}

// entry is one subscription held by the table.
type entry struct {
	id      uuid.UUID
	group   string
	sub     Subscription
	created time.Time
}

// groupState holds a group's entries in subscription order and their
// consolidated form.
type groupState struct {
	entries   []*entry
	aggregate []Subscription
}

// Table holds the subscriptions of a node, indexed by group.
type Table struct {
	mu sync.Mutex

	config Config
	now    history.Clock
	closed bool

	entries map[uuid.UUID]*entry
	groups  map[string]*groupState

	histories *history.Factory
	registry  *predicate.Registry

	logger    *slog.Logger
	events    log.Logger
	eventFile *log.FileLogger
	metrics   *Metrics
}

// NewTable creates a table. When cfg.EventLogPath is set the event trace
// is written there until Close.
func NewTable(cfg Config) (*Table, error) {
	cfg = cfg.normalize()

	registry, err := predicate.NewDefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("predicate registry: %w", err)
	}

	t := &Table{
		config:    cfg,
		now:       time.Now,
		entries:   make(map[uuid.UUID]*entry),
		groups:    make(map[string]*groupState),
		histories: history.NewFactoryWithClock(time.Now, cfg.DefaultHistoryTimeout),
		registry:  registry,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		events:    log.NoopLogger{},
	}

	if cfg.EventLogPath != "" {
		fl, err := log.NewFileLogger(cfg.EventLogPath)
		if err != nil {
			return nil, fmt.Errorf("event log: %w", err)
		}
		t.eventFile = fl
		t.events = fl
	}
	return t, nil
}

// SetLogger sets the operational logger.
func (t *Table) SetLogger(logger *slog.Logger) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	t.logger = logger
}

// SetEventLogger sets the event trace sink. The configured event log file,
// if any, keeps receiving events.
func (t *Table) SetEventLogger(l log.Logger) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.eventFile != nil && l != nil:
		t.events = log.NewMultiLogger(t.eventFile, l)
	case t.eventFile != nil:
		t.events = t.eventFile
	default:
		t.events = log.OrNoop(l)
	}
}

// SetMetrics sets the Prometheus collectors. Nil disables metrics.
func (t *Table) SetMetrics(m *Metrics) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics = m
}

// SetRegistry replaces the predicate registry used to validate and
// evaluate predicate subscriptions added afterwards.
func (t *Table) SetRegistry(r *predicate.Registry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.registry = r
}

// SetClock replaces the clock used for timestamps and new history windows.
func (t *Table) SetClock(now history.Clock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if now == nil {
		now = time.Now
	}
	t.now = now
	t.histories = history.NewFactoryWithClock(now, t.config.DefaultHistoryTimeout)
}

// Histories returns the factory for history windows, using the configured
// default timeout.
func (t *Table) Histories() *history.Factory {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.histories
}

// Config returns the normalized configuration.
func (t *Table) Config() Config {
	return t.config
}

func (t *Table) emit(e log.Event) {
	e.Timestamp = t.now()
	t.events.Log(e)
}

func (t *Table) emitError(group string, err error, context string) {
	t.logger.Warn("subscription rejected", "group", group, "op", context, "error", err)
	t.emit(log.Event{
		Category: log.CategoryError,
		Group:    group,
		Error:    &log.ErrorEventData{Message: err.Error(), Context: context},
	})
}

// Subscribe adds a copy of sub to group and returns its handle.
func (t *Table) Subscribe(group string, sub Subscription) (uuid.UUID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkSubscribe(group, sub); err != nil {
		t.emitError(group, err, "subscribe")
		return uuid.Nil, err
	}
	id := uuid.New()
	t.insert(id, group, sub.Clone())
	return id, nil
}

func (t *Table) checkSubscribe(group string, sub Subscription) error {
	if t.closed {
		return ErrTableClosed
	}
	if group == "" {
		return ErrInvalidGroup
	}
	if sub == nil {
		return ErrNilSubscription
	}
	if len(t.entries) >= t.config.MaxSubscriptions {
		return ErrResourceExhausted
	}
	if _, ok := t.groups[group]; !ok && len(t.groups) >= t.config.MaxGroups {
		return fmt.Errorf("%w: %d groups", ErrResourceExhausted, len(t.groups))
	}
	if p, ok := sub.(*GroupPredicateSubscription); ok {
		if len(p.predicate) > t.config.MaxPredicateLength {
			return fmt.Errorf("%w: %d bytes", ErrPredicateTooLong, len(p.predicate))
		}
		if err := t.registry.Validate(p.predType, p.predicate); err != nil {
			return fmt.Errorf("predicate: %w", err)
		}
	}
	return nil
}

// insert stores sub, which the table now owns.
func (t *Table) insert(id uuid.UUID, group string, sub Subscription) {
	if p, ok := sub.(*GroupPredicateSubscription); ok {
		p.SetMatcher(t.registry)
	}

	gs, ok := t.groups[group]
	if !ok {
		gs = &groupState{}
		t.groups[group] = gs
	}
	e := &entry{id: id, group: group, sub: sub, created: t.now()}
	t.entries[id] = e
	gs.entries = append(gs.entries, e)

	if t.config.ConsolidateOnSubscribe {
		gs.aggregate = t.consolidate(group, gs.aggregate, sub.Clone())
	} else {
		gs.aggregate = append(gs.aggregate, sub.Clone())
	}

	t.metrics.subscribed(sub.Type(), 1)
	t.logger.Debug("subscribed", "group", group, "id", id, "subscription", sub)
	t.emit(log.Event{
		Category:         log.CategoryMembership,
		Group:            group,
		SubscriptionID:   id.String(),
		SubscriptionType: uint8(sub.Type()),
		Membership: &log.MembershipEvent{
			Action:       log.MembershipSubscribe,
			Consolidated: len(gs.aggregate),
		},
	})
}

// mergeable reports whether folding src into target keeps every message
// either accepts.
func mergeable(src, target Subscription) bool {
	switch src.(type) {
	case *GroupSubscription:
		return target.Type() == TypeGroup
	case *GroupTagSubscription:
		return target.Type() == TypeGroup || target.Type() == TypeGroupTag
	default:
		return false
	}
}

// consolidate folds sub into the first aggregate entry that covers it or
// can absorb it, or appends it.
func (t *Table) consolidate(group string, agg []Subscription, sub Subscription) []Subscription {
	if i := slices.IndexFunc(agg, func(target Subscription) bool { return target.Includes(sub) }); i >= 0 {
		t.metrics.merged("included")
		t.emit(log.Event{
			Category:         log.CategoryMerge,
			Group:            group,
			SubscriptionType: uint8(sub.Type()),
			Merge:            &log.MergeEvent{TargetIndex: i, TargetType: uint8(agg[i].Type()), Included: true},
		})
		return agg
	}

	for i, target := range agg {
		if !mergeable(sub, target) {
			continue
		}
		modified := sub.Merge(target)
		if modified {
			t.metrics.merged("modified")
		} else {
			t.metrics.merged("unchanged")
		}
		t.emit(log.Event{
			Category:         log.CategoryMerge,
			Group:            group,
			SubscriptionType: uint8(sub.Type()),
			Merge:            &log.MergeEvent{TargetIndex: i, TargetType: uint8(target.Type()), Modified: modified},
		})
		return agg
	}

	t.metrics.merged("appended")
	return append(agg, sub)
}

// Unsubscribe removes a subscription and rebuilds its group's aggregate.
func (t *Table) Unsubscribe(id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return ErrSubscriptionNotFound
	}
	delete(t.entries, id)

	gs := t.groups[e.group]
	gs.entries = slices.DeleteFunc(gs.entries, func(x *entry) bool { return x.id == id })
	if len(gs.entries) == 0 {
		delete(t.groups, e.group)
		gs.aggregate = nil
	} else {
		t.rebuild(e.group, gs)
	}

	t.metrics.subscribed(e.sub.Type(), -1)
	t.logger.Debug("unsubscribed", "group", e.group, "id", id)
	t.emit(log.Event{
		Category:         log.CategoryMembership,
		Group:            e.group,
		SubscriptionID:   id.String(),
		SubscriptionType: uint8(e.sub.Type()),
		Membership: &log.MembershipEvent{
			Action:       log.MembershipUnsubscribe,
			Consolidated: len(gs.aggregate),
		},
	})
	return nil
}

// rebuild recomputes a group's aggregate from its entries. Merges cannot
// be undone, so removal starts over.
func (t *Table) rebuild(group string, gs *groupState) {
	gs.aggregate = nil
	for _, e := range gs.entries {
		if t.config.ConsolidateOnSubscribe {
			gs.aggregate = t.consolidate(group, gs.aggregate, e.sub.Clone())
		} else {
			gs.aggregate = append(gs.aggregate, e.sub.Clone())
		}
	}
}

// AttachHistory attaches a replay window to a subscription. tag selects
// the tag of a tag subscription and is ignored otherwise.
func (t *Table) AttachHistory(id uuid.UUID, h history.History, tag uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return ErrSubscriptionNotFound
	}
	if err := e.sub.AddHistory(h, tag); err != nil {
		t.emitError(e.group, err, "attach history")
		return err
	}
	t.emit(log.Event{
		Category:         log.CategoryHistory,
		Group:            e.group,
		SubscriptionID:   id.String(),
		SubscriptionType: uint8(e.sub.Type()),
		History:          &log.HistoryEvent{Action: log.HistoryAttached, Kind: h.Kind().String(), Count: 1},
	})
	return nil
}

// windows counts the history windows attached to sub, expired or not.
func windows(sub Subscription) int {
	switch s := sub.(type) {
	case *GroupSubscription:
		return lo.Ternary(s.history != nil, 1, 0)
	case *GroupPredicateSubscription:
		return lo.Ternary(s.history != nil, 1, 0)
	case *GroupTagSubscription:
		return lo.CountBy(lo.Values(s.tags), func(info *TagInfo) bool { return info.History != nil })
	default:
		return 0
	}
}

// observe runs fn against e and reports windows it dropped.
func (t *Table) observe(e *entry, fn func(Subscription)) {
	before := windows(e.sub)
	fn(e.sub)
	if dropped := before - windows(e.sub); dropped > 0 {
		t.metrics.expired(dropped)
		t.emit(log.Event{
			Category:         log.CategoryHistory,
			Group:            e.group,
			SubscriptionID:   e.id.String(),
			SubscriptionType: uint8(e.sub.Type()),
			History:          &log.HistoryEvent{Action: log.HistoryExpired, Count: dropped},
		})
	}
}

func (t *Table) traceMatch(e *entry, info *wire.MessageInfo, matched, replay bool) {
	if !t.config.TraceMatches {
		return
	}
	t.emit(log.Event{
		Category:         log.CategoryMatch,
		Group:            e.group,
		SubscriptionID:   e.id.String(),
		SubscriptionType: uint8(e.sub.Type()),
		Match: &log.MatchEvent{
			Sender:   info.Sender,
			Sequence: info.Sequence,
			Tag:      info.Tag,
			Fragment: info.IsFragment(),
			Matched:  matched,
			Replay:   replay,
		},
	})
}

// byPriority orders matches by descending priority, keeping subscription
// order among equals.
func byPriority(matches []Match) {
	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Parameters.Priority, a.Parameters.Priority)
	})
}

// Dispatch offers a live message to the subscriptions of its group.
func (t *Table) Dispatch(msg Message) []Match {
	t.mu.Lock()
	defer t.mu.Unlock()

	info := msg.Info()
	gs, ok := t.groups[info.Group]
	if !ok {
		t.metrics.dispatched(false)
		return nil
	}

	var matches []Match
	for _, e := range gs.entries {
		matched := e.sub.Matches(msg)
		t.traceMatch(e, info, matched, false)
		if matched {
			matches = append(matches, Match{
				ID:         e.id,
				Type:       e.sub.Type(),
				Parameters: e.sub.Parameters(),
				Partial:    info.IsFragment() && e.sub.RequireFullMessage(),
			})
		}
	}
	byPriority(matches)
	t.metrics.dispatched(len(matches) > 0)
	return matches
}

// ReplayCandidates returns the subscriptions whose history windows cover a
// stored message. Expired windows are dropped on the way.
func (t *Table) ReplayCandidates(msg Message, tracker history.SequenceTracker) []Match {
	t.mu.Lock()
	defer t.mu.Unlock()

	info := msg.Info()
	gs, ok := t.groups[info.Group]
	if !ok {
		return nil
	}

	var matches []Match
	for _, e := range gs.entries {
		var in bool
		t.observe(e, func(s Subscription) { in = s.IsInHistory(msg, tracker) })
		t.traceMatch(e, info, in, true)
		if in {
			matches = append(matches, Match{
				ID:         e.id,
				Type:       e.sub.Type(),
				Parameters: e.sub.Parameters(),
				Partial:    info.IsFragment() && e.sub.RequireFullMessage(),
			})
		}
	}
	byPriority(matches)
	return matches
}

// HistoryRequests collects the history requests of a group. Later
// subscriptions come first.
func (t *Table) HistoryRequests(group string) []history.Request {
	t.mu.Lock()
	defer t.mu.Unlock()

	gs, ok := t.groups[group]
	if !ok {
		return nil
	}
	var out []history.Request
	for _, e := range gs.entries {
		t.observe(e, func(s Subscription) { out = s.HistoryRequests(group, out) })
	}
	if len(out) > 0 {
		t.emit(log.Event{
			Category: log.CategoryHistory,
			Group:    group,
			History:  &log.HistoryEvent{Action: log.HistoryRequested, Count: len(out)},
		})
	}
	return out
}

// PruneHistories drops every expired window and returns how many went.
func (t *Table) PruneHistories() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := 0
	for _, e := range t.entries {
		before := windows(e.sub)
		t.observe(e, func(s Subscription) { s.HasHistory() })
		total += before - windows(e.sub)
	}
	return total
}

// Aggregate returns copies of the consolidated subscriptions of a group.
func (t *Table) Aggregate(group string) []Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()

	gs, ok := t.groups[group]
	if !ok {
		return nil
	}
	return lo.Map(gs.aggregate, func(s Subscription, _ int) Subscription { return s.Clone() })
}

// Get returns a copy of a subscription and its group.
func (t *Table) Get(id uuid.UUID) (Subscription, string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return nil, "", ErrSubscriptionNotFound
	}
	return e.sub.Clone(), e.group, nil
}

// IDs returns the handles of a group in subscription order.
func (t *Table) IDs(group string) []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()

	gs, ok := t.groups[group]
	if !ok {
		return nil
	}
	return lo.Map(gs.entries, func(e *entry, _ int) uuid.UUID { return e.id })
}

// Groups returns the groups with at least one subscription, sorted.
func (t *Table) Groups() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.sortedGroups()
}

func (t *Table) sortedGroups() []string {
	groups := lo.Keys(t.groups)
	slices.Sort(groups)
	return groups
}

// Count returns the number of subscriptions.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// ClearAll removes all subscriptions (e.g., on connection loss).
func (t *Table) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		t.metrics.subscribed(e.sub.Type(), -1)
	}
	n := len(t.entries)
	t.entries = make(map[uuid.UUID]*entry)
	t.groups = make(map[string]*groupState)

	t.logger.Debug("cleared subscriptions", "count", n)
	t.emit(log.Event{
		Category:   log.CategoryMembership,
		Membership: &log.MembershipEvent{Action: log.MembershipClear},
	})
}

// Close stops accepting subscriptions and closes the event log file.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if t.eventFile != nil {
		return t.eventFile.Close()
	}
	return nil
}
