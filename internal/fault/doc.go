// Package fault - error classes for the DID store
//
// Every failure surfaced by the store is classified by a Kind so callers can
// tell a wrong password from a logic failure from a retryable backend outage
// without matching strings. Lookups that find nothing return a nil value,
// never an error.
package fault
