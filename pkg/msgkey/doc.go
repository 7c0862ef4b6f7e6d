// Package msgkey parses and formats message identifiers.
//
// A message identifier is a single string with fields joined by the
// ASCII unit separator (0x1F):
//
//	group␟sender␟seq
//	group␟sender␟seq␟chunk␟offset␟length
//
// The short form names a whole message. The long form names one chunk
// of a fragmented message.
package msgkey
