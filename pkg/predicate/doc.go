// Package predicate evaluates subscription predicates against message
// payloads.
//
// Payloads are JSON documents. Two predicate languages are supported:
//
//   - TypeSimple (0): a path expression in gjson syntax, for example
//     "sensor.temp" or "readings.#(value>30)". The predicate holds when
//     the path resolves to a value that is not false, null, an empty
//     string or an empty array.
//   - TypeCEL (1): a CEL expression over the variable doc, for example
//     doc.sensor.temp > 30.0. The expression must yield a bool.
//
// A payload that is not valid JSON never matches.
package predicate
