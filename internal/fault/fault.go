// Package fault classifies harness failures so callers can tell a dead
// link from a slow DUT from a bad config file.
package fault

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies the class of a failure.
type Kind int

const (
	Unknown Kind = iota
	Connection
	Capture
	Timeout
	Config
	NotConnected
)

func (k Kind) String() string {
	switch k {
	case Connection:
		return "connection"
	case Capture:
		return "capture"
	case Timeout:
		return "timeout"
	case Config:
		return "config"
	case NotConnected:
		return "not-connected"
	default:
		return "unknown"
	}
}

// Error is a classified failure of a single operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a classified error for op.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap classifies err with a formatted op, keeping err's stack.
// A nil err yields nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: fmt.Sprintf(format, args...), Err: errors.WithStack(err)}
}

// KindOf returns the Kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
