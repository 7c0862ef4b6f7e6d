// Package msgindex provides a three-level index keyed by group, sender and
// sequence number.
//
// The index is used to hold per-message bookkeeping (delivery state,
// fragment buffers, replay candidates) keyed the same way message
// identifiers are. It also remembers the highest sequence number ever
// stored for each sender, which history windows use to decide whether a
// message falls within the last N messages of that sender.
package msgindex
