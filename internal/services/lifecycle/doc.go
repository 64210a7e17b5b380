// Package lifecycle moves DIDs between the local store and the ledger.
//
// It resolves documents through a short-lived cache, publishes creates and
// updates guarded by the last known transaction id, and submits
// deactivations signed either by the DID itself or by a controller that
// holds one of its authorization keys.
package lifecycle
