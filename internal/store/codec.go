package store

import (
	"encoding/json"
	"maps"
	"strconv"
	"strings"

	"didstore/internal/domain/types"
	"didstore/internal/fault"
)

func encodeIndex(i int) []byte { return []byte(strconv.Itoa(i)) }

func decodeIndex(b []byte) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || i < 0 {
		return 0, fault.New(fault.Store, "corrupted derivation index")
	}
	return i, nil
}

func encodeJSON(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }

// decodeStoreMeta returns nil for absent data.
func decodeStoreMeta(b []byte) (*types.StoreMeta, error) {
	if b == nil {
		return nil, nil
	}
	var m types.StoreMeta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fault.Wrap(fault.Store, "corrupted store meta", err)
	}
	return &m, nil
}

func decodeDIDMeta(b []byte) (*types.DIDMeta, error) {
	if b == nil {
		return nil, nil
	}
	var m types.DIDMeta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fault.Wrap(fault.Store, "corrupted DID meta", err)
	}
	return &m, nil
}

func decodeCredentialMeta(b []byte) (*types.CredentialMeta, error) {
	if b == nil {
		return nil, nil
	}
	var m types.CredentialMeta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fault.Wrap(fault.Store, "corrupted credential meta", err)
	}
	return &m, nil
}

// rotationWrites flattens a rotation into layout keys. A nil value means
// the key is removed.
func rotationWrites(r *types.Rotation, blob func([]byte) []byte) (map[string][]byte, error) {
	meta, err := encodeJSON(r.Meta)
	if err != nil {
		return nil, err
	}
	w := map[string][]byte{metaFile: meta}
	if r.Identity != nil {
		w[seedKey] = blob(r.Identity.Seed)
		w[mnemonicKey] = nil
		if len(r.Identity.Mnemonic) > 0 {
			w[mnemonicKey] = blob(r.Identity.Mnemonic)
		}
		w[indexKey] = encodeIndex(r.Identity.Index)
	}
	for _, k := range r.PrivateKeys {
		w[privateKeyKey(k.ID)] = blob(k.Blob)
	}
	return w, nil
}

func identityWrites(id *types.PrivateIdentity, blob func([]byte) []byte) map[string][]byte {
	w := map[string][]byte{
		seedKey:     blob(id.Seed),
		mnemonicKey: nil,
		indexKey:    encodeIndex(id.Index),
	}
	if len(id.Mnemonic) > 0 {
		w[mnemonicKey] = blob(id.Mnemonic)
	}
	return w
}

// importWrites flattens an import into layout keys. existing returns the
// keys currently stored under a DID; those not rewritten are removed.
func importWrites(im *types.Import, blob func([]byte) []byte, existing func(types.DID) ([]string, error)) (map[string][]byte, error) {
	w := map[string][]byte{}
	if im.Identity != nil {
		maps.Copy(w, identityWrites(im.Identity, blob))
	}
	for _, r := range im.DIDs {
		if err := checkDID(r.DID); err != nil {
			return nil, err
		}
		if len(r.Document) == 0 {
			return nil, fault.Newf(fault.Store, "import of %s has no document", r.DID)
		}
		old, err := existing(r.DID)
		if err != nil {
			return nil, err
		}
		for _, k := range old {
			w[k] = nil
		}

		w[documentKey(r.DID)] = r.Document
		if r.Meta != nil {
			b, err := encodeJSON(r.Meta)
			if err != nil {
				return nil, err
			}
			w[didMetaKey(r.DID)] = b
		}
		for _, k := range r.PrivateKeys {
			if err := checkOwned(r.DID, k.ID); err != nil {
				return nil, err
			}
			w[privateKeyKey(k.ID)] = blob(k.Blob)
		}
		for _, c := range r.Credentials {
			if err := checkOwned(r.DID, c.ID); err != nil {
				return nil, err
			}
			w[credentialKey(c.ID)] = c.Credential
			if c.Meta != nil {
				b, err := encodeJSON(c.Meta)
				if err != nil {
					return nil, err
				}
				w[credentialMetaKey(c.ID)] = b
			}
		}
	}
	return w, nil
}

func checkOwned(did types.DID, id types.DIDURL) error {
	if err := checkURL(id); err != nil {
		return err
	}
	if id.DID != did {
		return fault.Newf(fault.Store, "%s does not belong to %s", id, did)
	}
	return nil
}
