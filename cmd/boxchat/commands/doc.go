// Package commands defines the boxchat CLI and wires dependencies for subcommands.
//
// Commands
//
//   - register  Create an account publishing a fresh identity key
//   - login     Check credentials and print a bearer token
//   - send      Encrypt and send one message to a peer
//   - listen    Poll for messages and print them until interrupted
//
// # Implementation
//
// The root command loads the TOML config, applies flag overrides and builds
// the dependency graph (log backend, relay client, identity, services)
// before any subcommand runs. Identities are not persisted: every run signs
// in with a new key pair and republishes it, and the wire wipes all key
// material when the command returns.
package commands
