// Package store provides file-based persistence for boxchat client state.
//
// Identities are deliberately ephemeral, so the only durable client state
// is the account file: one AccountProfile per (relay URL, username) pair,
// recording how far that inbox has been read. Writes go through a temp file
// and an atomic rename, so a crash never leaves a half-written file.
package store
