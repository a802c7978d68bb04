// Package cursor tracks the highest relay message id a client has seen.
//
// The cursor only ever moves forward. It does not deduplicate on its own:
// callers ask the relay for messages after Cursor.SinceID and feed every
// id they observe, including ids of messages they could not decrypt, back
// through Advance.
package cursor
