// Package failure defines Signal, the single error type that carries a handled
// failure from anywhere in the request lifecycle (validators, services,
// authorization checks, router fallbacks) to the HTTP boundary.
//
// A Signal is created once, attached to the request with gin's c.Error, and
// translated into a response envelope exactly once by the interceptor
// middleware. Handlers never write error bodies themselves.
//
// Unexpected errors are wrapped with Unhandled, which records a stack trace
// (github.com/pkg/errors) so debug builds can report where the failure came
// from.
package failure

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies a Signal. The zero value is Unhandled.
type Kind int

const (
	KindUnhandled Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindMethodNotAllowed
	KindTooLarge
)

// String returns the snake_case name of k, used as a metrics label and in logs.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindTooLarge:
		return "too_large"
	default:
		return "unhandled"
	}
}

// Fields maps a request field to its ordered list of human-readable messages.
type Fields map[string][]string

// Add appends msg to the messages of field.
func (f Fields) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// Signal is a classified failure.
//
// Message is optional; when empty the translator uses the default message of
// the Kind. Fields is only meaningful for KindValidation. Cause is never sent
// to clients in production.
type Signal struct {
	Kind    Kind
	Message string
	Fields  Fields
	Cause   error
}

// Error implements error.
func (s *Signal) Error() string {
	switch {
	case s.Message != "" && s.Cause != nil:
		return s.Message + ": " + s.Cause.Error()
	case s.Message != "":
		return s.Message
	case s.Cause != nil:
		return s.Cause.Error()
	default:
		return s.Kind.String()
	}
}

// Unwrap exposes Cause to errors.Is / errors.As.
func (s *Signal) Unwrap() error { return s.Cause }

// Validation returns a validation failure carrying per-field messages.
func Validation(fields Fields) *Signal {
	return &Signal{Kind: KindValidation, Fields: fields}
}

// FieldError is a shortcut for a validation failure on a single field.
func FieldError(field, msg string) *Signal {
	return Validation(Fields{field: {msg}})
}

// Unauthenticated returns an authentication failure. An empty msg selects the
// translator default ("Invalid or expired token").
func Unauthenticated(msg string) *Signal {
	return &Signal{Kind: KindAuthentication, Message: msg}
}

// Forbidden returns an authorization failure.
func Forbidden(msg string) *Signal {
	return &Signal{Kind: KindAuthorization, Message: msg}
}

// NotFound returns a not-found failure.
func NotFound(msg string) *Signal {
	return &Signal{Kind: KindNotFound, Message: msg}
}

// MethodNotAllowed returns the signal used by the router fallback.
func MethodNotAllowed() *Signal {
	return &Signal{Kind: KindMethodNotAllowed}
}

// TooLarge reports a request body that exceeded limit bytes.
func TooLarge(limit int64) *Signal {
	return &Signal{
		Kind:    KindTooLarge,
		Message: fmt.Sprintf("The request body must not be larger than %d bytes.", limit),
	}
}

// Unhandled wraps an unexpected error, attaching a stack trace at the call
// site unless err already carries one. A nil err returns nil.
func Unhandled(err error) *Signal {
	if err == nil {
		return nil
	}
	var s *Signal
	if errors.As(err, &s) {
		return s
	}
	if _, ok := err.(stackTracer); !ok {
		err = pkgerrors.WithStack(err)
	}
	return &Signal{Kind: KindUnhandled, Cause: err}
}

// Panic converts a recovered panic value into an Unhandled signal. The stack is
// captured here, which inside a deferred recover still includes the frames that
// panicked.
func Panic(rec any) *Signal {
	var err error
	switch v := rec.(type) {
	case error:
		err = pkgerrors.WithStack(v)
	default:
		err = pkgerrors.WithStack(fmt.Errorf("panic: %v", v))
	}
	return &Signal{Kind: KindUnhandled, Cause: err}
}

// From classifies any error as a Signal. Signals found anywhere in the chain
// are returned as-is; everything else becomes Unhandled.
func From(err error) *Signal {
	if err == nil {
		return nil
	}
	var s *Signal
	if errors.As(err, &s) {
		return s
	}
	return Unhandled(err)
}

// IsKind reports whether err is (or wraps) a Signal of kind k.
func IsKind(err error, k Kind) bool {
	var s *Signal
	return errors.As(err, &s) && s.Kind == k
}
