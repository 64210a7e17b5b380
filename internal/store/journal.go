package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"

	"didstore/internal/fault"
)

// A multi-file update is staged under .journal/data, made durable by
// writing .journal/COMMITTED, then moved into place. Opening a store
// replays a committed journal and discards an uncommitted one, so the
// update is observed entirely or not at all.
const (
	journalDir      = ".journal"
	journalData     = "data"
	journalManifest = "COMMITTED"
)

type manifest struct {
	Write  []string `json:"write"`
	Remove []string `json:"remove,omitempty"`
}

// stage writes the journal without committing it.
func (s *FileStore) stage(writes map[string][]byte) (*manifest, error) {
	j := filepath.Join(s.dir, journalDir)
	if err := os.RemoveAll(j); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(writes))
	for k := range writes {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	m := &manifest{}
	for _, k := range keys {
		v := writes[k]
		if v == nil {
			m.Remove = append(m.Remove, k)
			continue
		}
		if err := writeFile(filepath.Join(j, journalData, filepath.FromSlash(k)), v, 0o600); err != nil {
			_ = os.RemoveAll(j)
			return nil, err
		}
		m.Write = append(m.Write, k)
	}
	return m, nil
}

// commit stages writes, marks them committed and applies them.
func (s *FileStore) commit(writes map[string][]byte) error {
	m, err := s.stage(writes)
	if err != nil {
		return err
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	j := filepath.Join(s.dir, journalDir)
	if err := writeFile(filepath.Join(j, journalManifest), b, 0o600); err != nil {
		_ = os.RemoveAll(j)
		return err
	}
	return s.replay()
}

// replay applies a committed journal and discards an uncommitted one.
func (s *FileStore) replay() error {
	j := filepath.Join(s.dir, journalDir)
	b, err := readFile(filepath.Join(j, journalManifest))
	if err != nil {
		return err
	}
	if b == nil {
		return os.RemoveAll(j)
	}
	var m manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return fault.Wrap(fault.Store, "corrupted journal", err)
	}

	for _, k := range m.Write {
		src := filepath.Join(j, journalData, filepath.FromSlash(k))
		ok, err := exists(src)
		if err != nil {
			return err
		}
		if !ok {
			continue // moved before an interruption
		}
		dst := s.path(k)
		if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
			return err
		}
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}
	for _, k := range m.Remove {
		if _, err := removeFile(s.path(k)); err != nil {
			return err
		}
	}
	return os.RemoveAll(j)
}
