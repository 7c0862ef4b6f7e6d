// Package wire defines the encodings shared by the groupcast engine.
//
// Two formats live here:
//
//   - A fixed-layout binary format used for subscriptions and QoS
//     parameters. Fields are written in a fixed order with no tags:
//     u8, bool (one byte, 0 or 1), big-endian u16/u32/u64, and strings
//     prefixed with a u16 length. Every read and write is bounded by a
//     maxSize budget supplied by the caller.
//   - CBOR (RFC 8949) with integer keys for the message envelope that
//     carries a MessageInfo header and the opaque payload.
//
// # Partial Writes
//
// A Writer does not buffer. When a composite structure fails half way,
// the bytes already handed to the underlying io.Writer stay there. Callers
// that need all-or-nothing output should write into a bytes.Buffer first.
package wire
