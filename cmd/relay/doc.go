// Package main runs the boxchat relay. It registers users, issues bearer
// tokens, publishes identity public keys and queues sealed envelopes for
// their recipients until they poll for them.
//
// HTTP API
//
//	POST /register {username, password, identity_public_key}
//	    Create an account. 409 if the username is taken, 400 if the key is
//	    missing.
//
//	POST /login {username, password}
//	    Return {status, token}. 401 on bad credentials.
//
//	GET /users/{username}/public-key
//	    Return {username, identity_public_key}. 404 if unknown.
//
//	PUT /users/me/public-key {identity_public_key}       (bearer)
//	    Replace the caller's published identity key.
//
//	POST /messages {to, ciphertext, nonce, timestamp?}   (bearer)
//	    Queue an envelope for {to}; returns {status, message_id}. Missing
//	    timestamps are filled with the server's Unix time.
//
//	GET /messages?since_id=N                             (bearer)
//	    Return {messages: [...]} addressed to the caller with id > N.
//
// Behaviour
//
//   - Accounts and messages are held in memory unless --db names a bbolt
//     file. Login tokens are always in memory.
//   - Errors are JSON objects of the form {"detail": "..."}.
//   - Every request is logged at INFO and counted in
//     boxchat_relay_requests_total, served on --metrics when set.
//   - The default listen address is :8000.
//
// The relay never sees plaintext or private keys; it only stores ciphertext
// and public keys.
package main
