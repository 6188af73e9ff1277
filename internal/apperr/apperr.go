// Package apperr defines the closed error-kind taxonomy shared by every
// collaborator in the signal pipeline, so callers at any layer can branch on
// `errors.Is`/`errors.As` instead of string-matching error messages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a closed enum of the error categories the pipeline distinguishes.
// No component introduces a Kind outside this set.
type Kind string

const (
	VendorRateLimited  Kind = "vendor_rate_limited"
	VendorNotFound     Kind = "vendor_not_found"
	VendorTimeout      Kind = "vendor_timeout"
	VendorNetwork      Kind = "vendor_network"
	VendorMalformed    Kind = "vendor_malformed"
	InsufficientData   Kind = "insufficient_data"
	NoSignal           Kind = "no_signal"
	Cancelled          Kind = "cancelled"
	InvariantViolation Kind = "invariant_violation"
	DeliveryFailed     Kind = "delivery_failed"
)

// Error is the structured error type carried across the pipeline → CLI
// boundary. Component is a free-form attribution string (e.g. "marketdata",
// "candlestore") set by the layer that first classified the failure.
type Error struct {
	Kind      Kind
	Component string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Component, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Component, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, apperr.New(SomeKind, ...)) match purely on Kind,
// ignoring Component/Message/Cause, so sentinel-style comparisons work
// without constructing an identical error.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error wrapping cause (which may be nil) with %w
// semantics preserved through Unwrap.
func New(kind Kind, component, message string, cause error) *Error {
	return &Error{Kind: kind, Component: component, Message: message, Cause: cause}
}

// Of reports the Kind of err if it is, or wraps, an *Error, and false
// otherwise.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is, or wraps, an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := Of(err)
	return ok && k == kind
}
