// Package crypto exposes the primitives used by the DID store.
//
// Contents
//
//   - Password key derivation with scrypt (DeriveKey) and a password check
//     value that validates a derived key without decrypting anything
//     (PasswordCheck)
//   - Authenticated encryption of secret blobs under a derived key
//     (Encrypt, Decrypt)
//   - Self-describing password envelopes for export bundles
//     (SealWithPassword, OpenWithPassword)
//   - BIP32 hierarchical derivation of secp256k1 key pairs (HDKey)
//   - ECDSA secp256k1 signing and verification (KeyPair.Sign, Verify)
//   - The DID method-specific id string of a public key (IDString)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//
// # Notes
//
// Decrypt and OpenWithPassword report integrity failures as
// fault.WrongPassword. Callers own every secret returned to them and should
// Wipe it with defer as soon as it is no longer needed.
package crypto
