package types

import (
	"regexp"
	"strings"

	"didstore/internal/fault"
)

// Method is the DID method managed by this store.
const Method = "elastos"

const scheme = "did"

// ids and fragments double as path segments in the store layout
var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func validName(s string) bool {
	return s != "." && s != ".." && namePattern.MatchString(s)
}

// DID is a decentralized identifier, did:<method>:<id>.
type DID struct {
	Method string
	ID     string
}

// NewDID returns the DID of method Method with the given id string.
func NewDID(id string) DID { return DID{Method: Method, ID: id} }

// ParseDID parses the string form of a DID.
func ParseDID(s string) (DID, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] != scheme || parts[1] == "" || parts[2] == "" {
		return DID{}, fault.Newf(fault.Malformed, "invalid DID %q", s)
	}
	if !validName(parts[2]) {
		return DID{}, fault.Newf(fault.Malformed, "invalid DID %q", s)
	}
	return DID{Method: parts[1], ID: parts[2]}, nil
}

// MustParseDID is ParseDID for constants and tests.
func MustParseDID(s string) DID {
	d, err := ParseDID(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d DID) String() string {
	if d.IsZero() {
		return ""
	}
	return scheme + ":" + d.Method + ":" + d.ID
}

// IsZero reports whether d is the empty DID.
func (d DID) IsZero() bool { return d.ID == "" }

// Valid reports whether d's id is usable as a storage name.
func (d DID) Valid() bool { return validName(d.ID) }

func (d DID) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *DID) UnmarshalText(b []byte) error {
	v, err := ParseDID(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// DIDURL addresses a key, credential or service inside a DID.
type DIDURL struct {
	DID      DID
	Fragment string
}

// NewDIDURL joins did and fragment. A leading '#' is dropped.
func NewDIDURL(did DID, fragment string) DIDURL {
	return DIDURL{DID: did, Fragment: strings.TrimPrefix(fragment, "#")}
}

// ParseDIDURL parses an absolute DID URL, or a relative "#fragment" against
// base.
func ParseDIDURL(s string, base DID) (DIDURL, error) {
	var u DIDURL
	switch i := strings.IndexByte(s, '#'); {
	case i == 0:
		if base.IsZero() {
			return DIDURL{}, fault.Newf(fault.Malformed, "relative DID URL %q without base", s)
		}
		u = DIDURL{DID: base, Fragment: s[1:]}
	case i > 0:
		did, err := ParseDID(s[:i])
		if err != nil {
			return DIDURL{}, err
		}
		u = DIDURL{DID: did, Fragment: s[i+1:]}
	default:
		return DIDURL{}, fault.Newf(fault.Malformed, "DID URL %q has no fragment", s)
	}
	if !ValidFragment(u.Fragment) {
		return DIDURL{}, fault.Newf(fault.Malformed, "invalid fragment in %q", s)
	}
	return u, nil
}

// ValidFragment reports whether f may be used as a fragment.
func ValidFragment(f string) bool { return validName(f) }

func (u DIDURL) String() string {
	if u.IsZero() {
		return ""
	}
	return u.DID.String() + "#" + u.Fragment
}

// IsZero reports whether u is the empty URL.
func (u DIDURL) IsZero() bool { return u.DID.IsZero() && u.Fragment == "" }

// Valid reports whether both the DID and the fragment of u are usable as
// storage names.
func (u DIDURL) Valid() bool { return u.DID.Valid() && ValidFragment(u.Fragment) }

func (u DIDURL) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

func (u *DIDURL) UnmarshalText(b []byte) error {
	v, err := ParseDIDURL(string(b), DID{})
	if err != nil {
		return err
	}
	*u = v
	return nil
}
