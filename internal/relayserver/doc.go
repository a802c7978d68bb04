// Package relayserver implements the boxchat relay: an HTTP service that
// registers users, hands out bearer tokens, publishes identity public keys
// and queues sealed envelopes for their recipients.
//
// Clients treat the relay as untrusted. It stores base64
// ciphertexts and nonces exactly as posted and never interprets them.
// Accounts and messages live in a Store, either in memory or in a bbolt
// database; login tokens live only in memory and do not survive a restart.
package relayserver
