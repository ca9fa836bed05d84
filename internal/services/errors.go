// Package services implements the offline-first synchronization layer: the
// sync coordinator, the typed offline queue, and the connectivity-driven
// replay trigger. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrRestaurantNotFound indicates that the requested restaurant id is
	// absent from the synchronized set. A lookup on a missing id must report
	// this, never an empty success value.
	ErrRestaurantNotFound = errors.New("restaurant does not exist")

	// ErrInvalidReview is returned when a review fails validation before
	// submission (missing author, rating out of 1..5, bad restaurant id).
	ErrInvalidReview = errors.New("invalid review")
)
