// Package protocol implements the row format of rendered streams.
//
// A stream is a sequence of newline-terminated rows. Each row carries a
// hexadecimal row ID, a one-byte tag and a JSON payload:
//
//	┌──────────┬───┬─────┬──────────────┬────┐
//	│ ID (hex) │ : │ Tag │ JSON payload │ \n │
//	└──────────┴───┴─────┴──────────────┴────┘
//
// # Tags
//
//   - TagResult ('D'): the value returned by a server action; at most one,
//     always the first row of the stream
//   - TagHTML ('H'): a chunk of serialized markup as a JSON string
//   - TagError ('E'): a render failure after output started; always last
//
// Payloads never contain a raw newline, so a row boundary is always the
// first '\n' after the tag. Concatenating the string payloads of all H rows
// in order yields the full document.
//
// Responses carrying rows use ContentType.
package protocol
