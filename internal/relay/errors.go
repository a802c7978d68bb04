package relay

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrTransport matches every error returned by this package.
	ErrTransport = errors.New("relay transport error")

	// ErrUnauthorized matches a 401 from the relay.
	ErrUnauthorized = errors.New("relay: unauthorized")

	// ErrNotFound matches a 404 from the relay.
	ErrNotFound = errors.New("relay: not found")

	// ErrUserExists matches a 409 from /register.
	ErrUserExists = errors.New("relay: username already exists")

	errNotLoggedIn = errors.New("not logged in")
)

// Error describes a failed relay call.
type Error struct {
	Method     string
	Path       string
	StatusCode int    // zero when no response was received
	Detail     string // server-provided detail, if any
	Err        error  // underlying network or decoding error, if any
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Detail != "":
		return fmt.Sprintf("relay %s %s: %d %s: %s",
			e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Detail)
	case e.StatusCode != 0:
		return fmt.Sprintf("relay %s %s: %d %s",
			e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	default:
		return fmt.Sprintf("relay %s %s: %v", e.Method, e.Path, e.Err)
	}
}

// Unwrap exposes the underlying error, e.g. context.Canceled.
func (e *Error) Unwrap() error { return e.Err }

// Is maps the status code onto the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return true
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUserExists:
		// Older relays answer a duplicate with 400 and a detail.
		return e.StatusCode == http.StatusConflict ||
			(e.StatusCode == http.StatusBadRequest && strings.Contains(e.Detail, "already exists"))
	}
	return false
}
