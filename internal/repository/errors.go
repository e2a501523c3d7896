// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between failure scenarios
// without inspecting SQL driver errors. For example, ErrSeatUnavailable
// indicates that a conditional seat-status update matched no row
// because the seat already changed hands, while ErrInvalidTransition
// signals that a ticket or trip status change violated the
// state machine.
package repository

import "errors"

// ErrSeatUnavailable is returned when the compare-and-set on a seat's
// status affects no rows, meaning the seat is no longer in the expected
// state. Handlers should translate this into an HTTP 409 response.
var ErrSeatUnavailable = errors.New("seat unavailable")

// ErrInvalidTransition is returned when a conditional status update on
// a ticket or trip matched no row because the record left the required
// state concurrently. Handlers should translate this into HTTP 409.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting dependent state, such as removing a promotion
// that active tickets still reference. Handlers should translate this
// into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
