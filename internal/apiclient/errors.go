package apiclient

import (
	"fmt"

	"github.com/juju/errors"
)

// ErrTransientFetch marks a network or server failure the caller may retry
// by repeating the user action.
const ErrTransientFetch = errors.ConstError("transient fetch error")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// classify tags a status error with its place in the error taxonomy:
// 404 is errors.NotFound, everything else is transient.
func classify(e *StatusError) error {
	if e.Status == 404 {
		return errors.WithType(e, errors.NotFound)
	}
	return errors.WithType(e, ErrTransientFetch)
}

// IsNotFound reports whether err came from a 404 response.
func IsNotFound(err error) bool {
	return errors.Is(err, errors.NotFound)
}

// IsTransient reports whether err is a transient fetch failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientFetch)
}
