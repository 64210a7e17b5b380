package store

import (
	"path"

	"didstore/internal/domain/types"
	"didstore/internal/fault"
)

// Logical layout shared by every backend. Keys are slash-separated paths
// relative to the store root.
const (
	metaFile       = ".meta"
	privateDir     = "private"
	seedFile       = "seed"
	mnemonicFile   = "mnemonic"
	indexFile      = "index"
	idsDir         = "ids"
	documentFile   = "document"
	privateKeysDir = "privatekeys"
	credentialsDir = "credentials"
	credentialFile = "credential"
)

var (
	seedKey     = path.Join(privateDir, seedFile)
	mnemonicKey = path.Join(privateDir, mnemonicFile)
	indexKey    = path.Join(privateDir, indexFile)
)

func didDir(did types.DID) string { return path.Join(idsDir, did.ID) }

func documentKey(did types.DID) string { return path.Join(didDir(did), documentFile) }

func didMetaKey(did types.DID) string { return path.Join(didDir(did), metaFile) }

func privateKeysKey(did types.DID) string { return path.Join(didDir(did), privateKeysDir) }

func privateKeyKey(id types.DIDURL) string {
	return path.Join(privateKeysKey(id.DID), id.Fragment)
}

func credentialsKey(did types.DID) string { return path.Join(didDir(did), credentialsDir) }

func credentialDir(id types.DIDURL) string {
	return path.Join(credentialsKey(id.DID), id.Fragment)
}

func credentialKey(id types.DIDURL) string { return path.Join(credentialDir(id), credentialFile) }

func credentialMetaKey(id types.DIDURL) string { return path.Join(credentialDir(id), metaFile) }

// checkDID and checkURL keep names that would escape their directory out
// of the layout.
func checkDID(did types.DID) error {
	if !did.Valid() {
		return fault.Newf(fault.Store, "invalid DID %q", did.ID)
	}
	return nil
}

func checkURL(id types.DIDURL) error {
	if !id.Valid() {
		return fault.Newf(fault.Store, "invalid id %q", id)
	}
	return nil
}
