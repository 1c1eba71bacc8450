package session

import (
	"errors"
	"fmt"
)

// Kind classifies why a session operation failed. The collapsed API hides
// it behind false/nil; the rich API and the logs carry it.
type Kind int

const (
	KindUnknown Kind = iota
	NotFound
	StorageRead
	StorageWrite
	StorageParse
	SessionExpired
	NetworkFailure
	MissingIdentifier
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case StorageRead:
		return "storage read failure"
	case StorageWrite:
		return "storage write failure"
	case StorageParse:
		return "storage parse failure"
	case SessionExpired:
		return "session expired"
	case NetworkFailure:
		return "network failure"
	case MissingIdentifier:
		return "missing identifier"
	case InvalidInput:
		return "invalid input"
	default:
		return "unknown"
	}
}

// Error is the internal result of a failed codec, aggregator or backend call.
type Error struct {
	Kind  Kind
	Codec string
	Op    string
	Key   string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Codec != "" {
		msg = e.Codec + " " + msg
	}
	if e.Key != "" {
		msg += " " + e.Key
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", msg, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", msg, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err means the record is simply absent.
func IsNotFound(err error) bool {
	return KindOf(err) == NotFound
}
