// Package log provides the engine event trace for groupcast.
//
// The trace is separate from operational logging (slog). It records every
// decision the subscription engine makes in a machine-readable form so that
// delivery problems on disadvantaged links can be analysed after the fact:
//
//   - Match: a subscription accepted or rejected a message
//   - Merge: a subscription was folded into another one
//   - Membership: a subscription joined or left the table
//   - History: replay windows were requested or expired
//   - Error: an operation was rejected
//
// # Basic Usage
//
// Components receive a Logger from their owner; there is no global logger:
//
//	table.SetEventLogger(log.NewSlogAdapter(slog.Default()))
//
//	fl, _ := log.NewFileLogger("/var/log/groupcast/engine.glog")
//	table.SetEventLogger(log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl))
//
// # File Format
//
// Trace files are a sequence of CBOR-encoded events with integer keys.
// Reader iterates a file with an optional Filter.
package log
