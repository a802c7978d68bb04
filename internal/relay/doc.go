// Package relay provides an HTTP implementation of the domain.RelayClient
// interface used by boxchat.
//
// The relay is an untrusted store-and-forward service: it holds each
// user's published identity public key and queues sealed envelopes until
// the recipient polls for them. It never sees plaintext or secret keys.
//
// Supported operations include:
//   - Registering a username, password and identity public key.
//   - Logging in for a bearer token, and republishing the identity key.
//   - Fetching a peer's identity public key.
//   - Sending a sealed envelope to a peer.
//   - Fetching envelopes addressed to us with an id above a cursor.
//
// All requests are JSON over HTTP and accept a context for cancellation and
// deadlines. Every failure, whether the network, a non-2xx status or an
// unparseable body, is an *Error matching ErrTransport, so callers can tell
// it apart from crypto errors.
package relay
