// Package remote talks to the restaurant-review REST backend. This file
// defines the error taxonomy every client operation reports through:
// a ServiceError when the backend answered with a failure status, and
// ErrNetwork when the attempt could not complete at all.
package remote

import (
	"errors"
	"fmt"
)

// ErrNetwork marks failures where the HTTP attempt itself did not complete:
// connection refused, DNS failure, timeout. Wrapped errors carry the cause.
var ErrNetwork = errors.New("network unavailable")

// ServiceError reports a non-2xx response from the backend. The body is not
// parsed on failure; only the status code is carried.
type ServiceError struct {
	Status int
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("request failed: returned status of %d", e.Status)
}

// IsUnavailable reports whether err should be treated as "the remote could
// not serve the write": either the attempt never completed (ErrNetwork) or
// the backend answered with a failure status. Both route a write into the
// offline queue.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNetwork) {
		return true
	}
	var se *ServiceError
	return errors.As(err, &se)
}
