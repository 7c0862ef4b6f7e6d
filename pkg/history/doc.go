// Package history implements retrospective replay windows.
//
// A subscriber may ask for messages published before it subscribed. The
// request is expressed as a History window attached to the subscription:
//
//   - Shift: the last N messages of each sender
//   - Discrete: an inclusive sequence number range
//   - Time: an inclusive publish time range
//
// # Expiry
//
// Every window carries the time it was requested and a timeout. A window
// is expired once now >= requestTime + timeout. Expiry is evaluated when
// asked; there is no background timer. Owners drop expired windows the
// next time they look at them.
//
// # Requests
//
// Owners describe their active windows to the replay engine as Request
// values. A Request references the window, it never owns it.
package history
