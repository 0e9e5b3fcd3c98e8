// Package common holds the error taxonomy shared by the store, the services and the HTTP layer.
package common

import (
	"errors"
	"strings"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrAuth            = errors.New("invalid credentials")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrUpstream        = errors.New("upstream failure")
)

// Error is a kinded error whose user-facing text is the translation message Key
// rendered with Params ("name==value" pairs).
type Error struct {
	Kind   error
	Key    string
	Params []string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	b.WriteString(": ")
	b.WriteString(e.Key)
	if len(e.Params) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Params, ", "))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds an Error of the given kind.
func NewError(kind error, key string, params ...string) *Error {
	return &Error{Kind: kind, Key: key, Params: params}
}

// WrapError builds an Error of the given kind around a cause.
func WrapError(kind error, err error, key string, params ...string) *Error {
	return &Error{Kind: kind, Key: key, Params: params, Err: err}
}

// Kind returns the taxonomy kind of err, or nil for internal errors.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrConflict, ErrAuth, ErrUnauthenticated, ErrNotFound, ErrUpstream} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Combine joins the non-nil errors into one, or returns nil.
func Combine(errs ...error) error {
	return errors.Join(errs...)
}
