package service

import "errors"

// Engine-level sentinel errors. Handlers translate these into HTTP
// responses; background workers log them and move on.
var (
	// ErrBookingClosed means the trip departs too soon for the payment
	// window: expiry (departure − 3h) is already in the past.
	ErrBookingClosed = errors.New("too soon to book: departure is less than 3 hours away")

	// ErrTripNotBookable means the trip is cancelled, deleted, already
	// departed, or has no price.
	ErrTripNotBookable = errors.New("trip is not open for booking")

	// ErrSeatNotOnTrip means the requested seat does not belong to any
	// vehicle assigned to the trip.
	ErrSeatNotOnTrip = errors.New("seat does not belong to this trip")

	// ErrAllVehiclesConflict means every candidate vehicle was rejected
	// by the conflict checker, so no trip could be created.
	ErrAllVehiclesConflict = errors.New("all candidate vehicles conflict")

	// ErrTransferNotAllowed means the ticket is not in SUCCESS state and
	// therefore cannot be transferred.
	ErrTransferNotAllowed = errors.New("only a confirmed ticket can be transferred")

	// ErrTransferUsed means the ticket already has a successor; transfer
	// is single-use.
	ErrTransferUsed = errors.New("ticket has already been transferred")

	// ErrTransferWindowClosed means fewer than 3 hours remain before the
	// current trip's departure.
	ErrTransferWindowClosed = errors.New("too close to departure to transfer")

	// ErrTransferRouteMismatch means the target trip serves a different
	// route. Transfer is a reschedule, not a rerouting mechanism.
	ErrTransferRouteMismatch = errors.New("target trip is on a different route")

	// ErrTransferPriceMismatch means the target trip's price differs.
	// Transfer is a reschedule, not a repricing mechanism.
	ErrTransferPriceMismatch = errors.New("target trip has a different price")

	// ErrNotTicketOwner means the caller does not own the ticket.
	ErrNotTicketOwner = errors.New("ticket belongs to another user")
)
