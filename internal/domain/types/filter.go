package types

import (
	"fmt"
	"strings"
)

// ListFilter selects DIDs by local private key presence.
type ListFilter int

const (
	FilterAll ListFilter = iota
	FilterHasPrivateKey
	FilterNoPrivateKey
)

func (f ListFilter) String() string {
	switch f {
	case FilterHasPrivateKey:
		return "private"
	case FilterNoPrivateKey:
		return "public"
	default:
		return "all"
	}
}

// ParseListFilter accepts the names produced by String.
func ParseListFilter(s string) (ListFilter, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return FilterAll, nil
	case "private":
		return FilterHasPrivateKey, nil
	case "public":
		return FilterNoPrivateKey, nil
	}
	return FilterAll, fmt.Errorf("unknown filter %q", s)
}

// DIDEntry is a listed DID with its local alias.
type DIDEntry struct {
	DID   DID
	Alias string
}

// CredentialEntry is a listed credential id with its local alias.
type CredentialEntry struct {
	ID    DIDURL
	Alias string
}
