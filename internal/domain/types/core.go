package types

// Username represents a relay-registered identity.
type Username string

// String returns the string form of the username.
func (u Username) String() string { return string(u) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// MessageID is the relay-assigned identifier of a stored message. The relay
// hands them out in increasing order.
type MessageID int64
