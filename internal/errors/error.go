// Package errors provides the error taxonomy of the storefront client.
package errors

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated means there is no local session; the operation was rejected before any network call.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrUnauthorized means the backend rejected the credential. The session must be dropped.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden means the credential is valid but lacks the privilege for the operation.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is a business-rule rejection: insufficient stock, unknown product, empty cart at checkout.
var ErrConflict = errors.New("conflict")

// ErrUnreachable is a transport failure or an unavailable backend.
var ErrUnreachable = errors.New("backend unreachable")

// ErrMalformed means the backend answered with an unexpected response shape.
var ErrMalformed = errors.New("malformed response")

// ErrInvalidArgument means the caller passed a value the operation cannot accept; nothing was sent.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrClosed is returned for intents submitted to, or still queued in, a closed engine.
var ErrClosed = errors.New("cart engine closed")

// RemoteError is a failure reported by, or while talking to, the backend.
// It unwraps to its Kind so callers can match it with errors.Is.
type RemoteError struct {
	Kind   error
	Status int
	Reason string
	Err    error
}

func (e *RemoteError) Error() string {
	msg := e.Kind.Error()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *RemoteError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Remote builds a RemoteError of the given kind.
func Remote(kind error, status int, reason string) error {
	return &RemoteError{Kind: kind, Status: status, Reason: reason}
}

// Transport wraps a transport-level failure as ErrUnreachable.
func Transport(err error) error {
	return &RemoteError{Kind: ErrUnreachable, Err: err}
}

// Malformed wraps a decoding or shape failure as ErrMalformed.
func Malformed(err error) error {
	return &RemoteError{Kind: ErrMalformed, Err: err}
}

// Reason returns the message meant for the user: the backend's own reason when it sent one,
// otherwise a short description of the error class.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var re *RemoteError
	if errors.As(err, &re) && re.Reason != "" {
		return re.Reason
	}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "please log in first"
	case errors.Is(err, ErrUnauthorized):
		return "your session has expired, please log in again"
	case errors.Is(err, ErrForbidden):
		return "you are not allowed to do that"
	case errors.Is(err, ErrUnreachable):
		return "the shop is unreachable, please try again"
	case errors.Is(err, ErrMalformed):
		return "the shop sent an unexpected answer"
	}
	return err.Error()
}
