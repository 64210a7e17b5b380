// Package domain defines the core data models and contracts shared across
// the DID store. It contains plain types (identifiers, metadata, ledger
// records) and interfaces (Storage, Backend) only.
package domain
