// Package message sends and receives encrypted messages.
//
// Sending seals plaintext under the session key shared with the recipient
// and posts the envelope through the RelayClient. Receiving fetches every
// envelope above a cursor, refreshes the session with each sender, opens
// what it can and skips what fails authentication. The Poller drives
// receiving on a fixed interval and persists the cursor between runs.
package message
