// Package identity provisions the identity root of a store.
//
// It enforces the store password policy, derives new DIDs from the root,
// and reports short fingerprints users can compare out of band.
package identity
