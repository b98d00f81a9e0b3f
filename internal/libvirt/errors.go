package libvirt

import (
	"errors"
	"fmt"
)

// Error kinds. Every *Error returned by this package matches exactly one of
// these through errors.Is.
var (
	// ErrConnection means the hypervisor session could not be opened.
	ErrConnection = errors.New("connection error")
	// ErrRetrieve means an introspection, lookup or enumeration call failed.
	ErrRetrieve = errors.New("retrieve error")
	// ErrDefinition means a domain could not be defined from its XML descriptor.
	ErrDefinition = errors.New("definition error")
	// ErrSystemCall means closing the hypervisor session failed.
	ErrSystemCall = errors.New("system call error")
	// ErrCreate is the generic failure for domain creation.
	ErrCreate = errors.New("error")

	// ErrNotOpen is a usage error: the connection has not been opened yet.
	ErrNotOpen = errors.New("connection is not open")
	// ErrAlreadyOpen is a usage error: Open was called on an open connection.
	ErrAlreadyOpen = errors.New("connection is already open")
	// ErrClosed is a usage error: the connection was closed.
	ErrClosed = errors.New("connection is closed")
)

// Error describes a failed libvirt operation.
type Error struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	// Op is the operation that failed, e.g. "hostname".
	Op string
	// Msg is the human-readable description.
	Msg string
	// Err is the underlying go-libvirt error, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap exposes both the kind and the native cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, err error, format string, args ...any) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Msg:  fmt.Sprintf(format, args...),
		Err:  err,
	}
}

// IsNotFound reports whether err comes from a lookup of a domain that does
// not exist.
func IsNotFound(err error) bool {
	var e *Error
	if !errors.As(err, &e) || !errors.Is(e.Kind, ErrRetrieve) {
		return false
	}
	return e.Err != nil && isNativeNotFound(e.Err)
}
