// SPDX-License-Identifier: LGPL-3.0-or-later

// Package hverr defines the orchestrator's error taxonomy: the fixed set of
// kinds the façade maps to CLI exit codes and HTTP statuses, and the
// classification the hypervisor driver attaches to its own failures.
package hverr

import "fmt"

// Kind is one entry in the error taxonomy.
type Kind string

const (
	KindUsage       Kind = "usage_error"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindNoCapacity  Kind = "no_capacity"
	KindNoMemory    Kind = "insufficient_memory"
	KindTransient   Kind = "transient_hypervisor_error"
	KindPermanent   Kind = "permanent_hypervisor_error"
	KindTimeout     Kind = "timeout"
	KindNoHeartbeat Kind = "guest_not_responding"
	KindQuarantined Kind = "quarantined"
	KindInternal    Kind = "internal"
)

// Error carries a taxonomy Kind alongside a human message and an optional
// wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a taxonomy error with no wrapped cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a taxonomy error around an existing cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error,
// KindInternal for any other non-nil error, and the empty Kind for nil.
func KindOf(err error) Kind {
	var e *Error
	if err == nil {
		return ""
	}
	if asError(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func asError(err error, target **Error) bool {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// ExitCode maps a Kind to the CLI exit code from the external-interfaces
// contract: 0 success; 2 usage error; 3 not-found; 4 conflict; 5 transient
// hypervisor error; 6 quarantine/unrecoverable; 1 other.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindUsage:
		return 2
	case KindNotFound:
		return 3
	case KindConflict:
		return 4
	case KindTransient:
		return 5
	case KindQuarantined, KindPermanent:
		return 6
	default:
		return 1
	}
}

// HTTPStatus maps a Kind to the HTTP status the façade responds with.
func HTTPStatus(err error) int {
	if err == nil {
		return 200
	}
	switch KindOf(err) {
	case KindUsage:
		return 400
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	case KindNoCapacity:
		return 409
	case KindNoMemory:
		return 503
	case KindTransient:
		return 503
	case KindTimeout:
		return 504
	case KindNoHeartbeat:
		return 504
	case KindQuarantined:
		return 410
	case KindPermanent:
		return 500
	default:
		return 500
	}
}
