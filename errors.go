package custodian

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. The set is closed: every error surfaced by the
// engine carries exactly one kind, replacing the exception-type hierarchy
// of classic gateway middlewares.
type Kind int

const (
	// KindUnknown marks an error that did not originate in this module.
	KindUnknown Kind = iota

	// KindNotFound: a referenced resource or entity is absent.
	KindNotFound

	// KindAuthorizationDenied: an explicit permission check failed.
	KindAuthorizationDenied

	// KindInvalidRequest: a caller-correctable precondition violation.
	KindInvalidRequest

	// KindAuthenticationFailure: no credential token resolvable after
	// exhausting the fallback chain.
	KindAuthenticationFailure

	// KindSystemError: an unexpected downstream failure.
	KindSystemError

	// KindUnsupportedOperation: an enum value outside the handled set
	// reached a workflow; a defect, not a user error.
	KindUnsupportedOperation

	// KindDuplicateEntry: a create collided with an existing record.
	KindDuplicateEntry
)

// String returns the kind's canonical name.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAuthorizationDenied:
		return "authorization_denied"
	case KindInvalidRequest:
		return "invalid_request"
	case KindAuthenticationFailure:
		return "authentication_failure"
	case KindSystemError:
		return "system_error"
	case KindUnsupportedOperation:
		return "unsupported_operation"
	case KindDuplicateEntry:
		return "duplicate_entry"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced by the engine. It carries a kind,
// a message, and an optional wrapped cause.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

// E creates an error with the given kind and message.
func E(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Errorf creates an error with the given kind and formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an error with the given kind and message, wrapping cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{kind: kind, msg: msg, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return "custodian: " + e.msg + ": " + e.cause.Error()
	}
	return "custodian: " + e.msg
}

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// KindOf returns the kind of the first *Error in err's chain, or
// KindUnknown when the chain contains none.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.kind
	}
	return KindUnknown
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	for {
		var ce *Error
		if !errors.As(err, &ce) {
			return false
		}
		if ce.kind == kind {
			return true
		}
		err = ce.cause
		if err == nil {
			return false
		}
	}
}
