// Package commands defines the didstore CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init           Install the identity root of the store
//   - mnemonic       Print the identity mnemonic
//   - new            Derive a new DID from the identity root
//   - list           List the DIDs in the store
//   - show           Print a stored document and its metadata
//   - fingerprint    Print the fingerprint of a DID's default key
//   - delete         Remove a DID with its keys and credentials
//   - publish        Create or update a DID on the ledger
//   - resolve        Fetch a DID's current document from the ledger
//   - deactivate     Deactivate a DID, directly or as its controller
//   - passwd         Re-encrypt every secret under a new store password
//   - export         Write a password-protected export of a DID, the identity or the store
//   - import         Read an export produced by export
//   - credentials    List a DID's credentials
//   - issue          Issue a credential and store it with its owner
//
// # Implementation
//
// The root command resolves configuration from defaults, DIDSTORE_*
// environment variables and flags, in that order of precedence, then
// builds the dependency graph (storage, store, ledger, services) before
// any subcommand runs.
package commands
