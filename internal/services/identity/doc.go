// Package identity manages the local identity's presence on a relay.
//
// Identities are generated fresh for every run and never written to disk.
// The service registers the account, logs in and republishes the current
// public key, so peers always fetch the key this process can answer to.
package identity
