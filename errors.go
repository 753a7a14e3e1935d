package natours

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors returned by [UserDirectory] implementations. The engine
// translates them into the [Error] taxonomy before they reach a caller.
var (
	// ErrUserNotFound is returned by directory lookups that match no record.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by [UserDirectory.Create] when the email
	// is already taken.
	ErrDuplicateEmail = errors.New("email already in use")
)

// Kind classifies an [Error] for HTTP mapping and rendering policy.
type Kind int

const (
	// KindValidation covers malformed or missing input, password mismatch,
	// and invalid or expired reset secrets. Maps to 400.
	KindValidation Kind = iota
	// KindAuthentication covers missing/invalid/expired tokens,
	// stale-password tokens, and wrong credentials. Maps to 401.
	KindAuthentication
	// KindAuthorization covers role checks that fail after authentication
	// succeeded. Maps to 403.
	KindAuthorization
	// KindNotFound covers a reset request for an unknown email. Maps to 404.
	KindNotFound
	// KindRateLimited covers throttled signin and reset requests. Maps to 429.
	KindRateLimited
	// KindService covers hashing/token infrastructure failures, email
	// delivery failures, and directory unavailability. Maps to 500.
	KindService
)

// Error is the single typed error surfaced by all authentication flows.
//
// Operational errors are expected conditions whose Message is safe to show
// in any environment. Non-operational errors wrap an internal cause that
// must only be rendered in a development configuration.
type Error struct {
	Kind        Kind
	Message     string
	Operational bool

	// Err is the internal cause, if any. Never shown in production.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to its HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// AsError unwraps err into the flow error type.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is a flow error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

func errValidation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Operational: true}
}

func errAuthentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message, Operational: true}
}

func errAuthorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message, Operational: true}
}

func errNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message, Operational: true}
}

func errRateLimited(message string) *Error {
	return &Error{Kind: KindRateLimited, Message: message, Operational: true}
}

// errService is an expected infrastructure failure whose message is safe to
// surface, e.g. a failed email delivery.
func errService(message string, cause error) *Error {
	return &Error{Kind: KindService, Message: message, Operational: true, Err: cause}
}

// errInternal is an unexpected failure. Production rendering replaces its
// message with a generic one.
func errInternal(cause error) *Error {
	return &Error{Kind: KindService, Message: "something went wrong", Err: cause}
}
