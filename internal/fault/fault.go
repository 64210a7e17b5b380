package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an error. A Kind is itself an error so callers can write
// errors.Is(err, fault.WrongPassword).
type Kind string

// error classes - keep in alphabetic order
const (
	Deactivated   Kind = "did deactivated"
	Malformed     Kind = "malformed data"
	Network       Kind = "backend unavailable"
	Rejected      Kind = "backend rejected request"
	Store         Kind = "did store failure"
	WrongPassword Kind = "wrong password"
)

func (k Kind) Error() string { return string(k) }

// Error carries a Kind, a human-readable message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// New returns an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and msg to err. A nil err yields nil.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the error's kind, so a specific sentinel still satisfies
// errors.Is(err, fault.Store).
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the kind of the first classified error in err's chain,
// or the empty Kind.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ""
}

// determine the class of an error
func IsErrDeactivated(err error) bool   { return errors.Is(err, Deactivated) }
func IsErrMalformed(err error) bool     { return errors.Is(err, Malformed) }
func IsErrNetwork(err error) bool       { return errors.Is(err, Network) }
func IsErrRejected(err error) bool      { return errors.Is(err, Rejected) }
func IsErrStore(err error) bool         { return errors.Is(err, Store) }
func IsErrWrongPassword(err error) bool { return errors.Is(err, WrongPassword) }

// IsRetryable reports whether the operation may succeed if repeated
// unchanged. Only transport failures qualify.
func IsRetryable(err error) bool { return IsErrNetwork(err) }
