package model

import "time"

// Seat statuses.  The seat row is the source of truth for sellability:
// every transition is a conditional update that names the expected
// current status, never a blind write.
const (
	SeatEmpty   = "EMPTY"   // seat is free and may be reserved
	SeatPending = "PENDING" // seat is held by an unpaid ticket
	SeatSold    = "SOLD"    // seat belongs to a confirmed ticket
)

// Seat represents one sellable seat on a vehicle.  A seat belongs to
// exactly one vehicle and carries its reservation status directly.
// This struct corresponds to a row in the `seats` table.
//
// Fields:
//  ID         – primary key identifier.
//  VehicleID  – vehicle this seat belongs to.
//  SeatNumber – label printed on the seat (e.g. "12A").
//  Status     – reservation status (EMPTY, PENDING, SOLD).
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Seat struct {
	ID         uint64    // seats.id
	VehicleID  uint64    // seats.vehicle_id
	SeatNumber string    // seats.seat_number
	Status     string    // seats.status
	CreatedAt  time.Time // seats.created_at
	UpdatedAt  time.Time // seats.updated_at
}

// seatTransitions enumerates the legal seat status changes.  SOLD may
// only return to EMPTY through a ticket transfer releasing the old seat.
var seatTransitions = map[string][]string{
	SeatEmpty:   {SeatPending, SeatSold}, // SOLD directly only via transfer's new seat
	SeatPending: {SeatSold, SeatEmpty},
	SeatSold:    {SeatEmpty},
}

// CanSeatTransition reports whether a seat may move from one status to
// another.
func CanSeatTransition(from, to string) bool {
	for _, next := range seatTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
