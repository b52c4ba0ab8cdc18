// Package apperr carries the failure taxonomy of the trading engine.
// Every user-visible failure is one of five kinds; the HTTP layer maps
// each kind to a stable status code.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindInvalid rejects malformed or out-of-range input before any
	// lock is taken.
	KindInvalid Kind = iota
	// KindNotFound marks an absent wallet, position, or instrument.
	KindNotFound
	// KindConflict marks a locked re-check failure, e.g. insufficient
	// free margin observed under the row lock.
	KindConflict
	// KindUnavailable marks a missing price feed, lock timeout, or
	// downstream store error. Safe to retry the whole operation.
	KindUnavailable
	// KindFatal marks an arithmetic invariant violation. Never coerced,
	// always logged loudly.
	KindFatal
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from err. Unclassified errors count as
// KindUnavailable: anything the engine did not reject deliberately is a
// downstream failure the client may retry.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnavailable
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
