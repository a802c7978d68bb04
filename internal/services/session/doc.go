// Package session establishes and tracks per-peer sessions.
//
// A PeerSession owns the symmetric key agreed with one peer and serialises
// every agreement, seal and open on it. The Service keeps at most one
// session per peer and resolves peer public keys through a KeyDirectory.
package session
