// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for callers that need to react to it
type Kind string

const (
	NotFound   Kind = "not_found"
	Permission Kind = "permission"
	Transient  Kind = "transient"
	Conflict   Kind = "conflict"
	Validation Kind = "validation"
	Unknown    Kind = "unknown"
)

// Error carries a Kind alongside an optional wrapped cause
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a kind and operation name to err. A nil err stays nil.
func Wrap(err error, kind Kind, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost classified error in the chain.
// Unclassified non-nil errors are Unknown; nil has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == "" {
			return Unknown
		}
		return e.Kind
	}
	return Unknown
}

// Is reports whether err is classified as kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind onto the status code handlers respond with
func HTTPStatus(kind Kind) int {
	switch kind {
	case NotFound:
		return http.StatusNotFound
	case Permission:
		return http.StatusForbidden
	case Transient:
		return http.StatusServiceUnavailable
	case Conflict:
		return http.StatusConflict
	case Validation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
