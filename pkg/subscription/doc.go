// Package subscription implements subscription matching and merging for
// groupcast.
//
// A client subscribes to a group, optionally narrowed by tag or by a
// predicate over the message payload. Every subscription carries QoS
// Parameters: priority, group reliability, message reliability and
// sequencing.
//
// # Variants
//
// The set of variants is closed:
//   - GroupSubscription: the whole group, minus an exclusion set of tags
//   - GroupTagSubscription: a table of tags, each with its own Parameters
//   - GroupPredicateSubscription: messages whose payload satisfies a
//     predicate
//
// # Matching
//
// Matches decides whether a subscription accepts an inbound message.
// Predicate subscriptions need the full message; a fragment is accepted
// without evaluating the predicate.
//
// # Merging
//
// When two subscriptions target the same group the Table folds one into
// the other. Includes detects a subscription that is already covered,
// Merge widens the target. Merge reports whether the target changed.
// Combinations without defined semantics (predicate with group or tag)
// leave the target untouched and report false.
//
// # History
//
// Group and predicate subscriptions own at most one history window; tag
// subscriptions own one per tag. Expired windows are dropped when
// HasHistory or IsInHistory looks at them, so those calls mutate.
//
// # Concurrency
//
// Subscriptions are not safe for concurrent use. The Table serializes all
// access to the subscriptions it holds.
package subscription
