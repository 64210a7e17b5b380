// Package store provides persistence backends for a DID store.
//
// Both backends implement domain.Storage over the same logical layout:
// FileStore keeps it as a directory tree, LevelStore as keys in a LevelDB
// database. Neither interprets documents or credentials; secrets arrive
// already encrypted. Multi-key updates (identity root, password rotation,
// DID deletion) are applied atomically.
package store
