// Package app wires application dependencies for the CLI.
//
// It loads Config from TOML, then builds the log backend, relay client,
// ephemeral identity and the high-level services, exposing them via the
// Wire struct for commands to use.
package app
