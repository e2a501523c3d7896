package model

import "time"

// Trip statuses.  SCHEDULED trips advance automatically via deferred
// transitions; CANCELLED and DELAYED are operator-initiated.
const (
	TripScheduled  = "SCHEDULED"
	TripInProgress = "IN_PROGRESS"
	TripCompleted  = "COMPLETED"
	TripCancelled  = "CANCELLED"
	TripDelayed    = "DELAYED"
)

// Trip represents one dated, timed instance of a route operated by one
// or more vehicles.  Seat counters must satisfy
// AvailableSeats + BookedSeats == total capacity of assigned vehicles
// after every mutation.  Trips referenced by tickets are soft-deleted
// (DeletedAt set) rather than removed.  This struct corresponds to a
// row in the `trips` table; vehicle assignments live in `trip_vehicles`.
//
// Fields:
//  ID             – primary key identifier.
//  RouteID        – route being operated.
//  VehicleIDs     – assigned vehicles, in assignment order.
//  DepartureAt    – scheduled departure instant (UTC).
//  ArrivalAt      – scheduled arrival instant (UTC, may be next day).
//  Status         – lifecycle status.
//  Price          – ticket price for this trip before discounts.
//  BookedSeats    – seats in PENDING or SOLD state.
//  AvailableSeats – seats still EMPTY.
//  Driver         – driver name.
//  Conductor      – conductor name (optional).
//  IsRecurring    – whether this trip came from recurrence expansion.
//  RecurDays      – comma separated weekday numbers (0=Sunday).
//  RecurUntil     – last date of the recurrence window (nullable).
//  DeletedAt      – soft delete marker (nullable).
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Trip struct {
	ID             uint64     // trips.id
	RouteID        uint64     // trips.route_id
	VehicleIDs     []uint64   // trip_vehicles.vehicle_id ordered by position
	DepartureAt    time.Time  // trips.departure_at
	ArrivalAt      time.Time  // trips.arrival_at
	Status         string     // trips.status
	Price          int64      // trips.price
	BookedSeats    uint32     // trips.booked_seats
	AvailableSeats uint32     // trips.available_seats
	Driver         string     // trips.driver
	Conductor      string     // trips.conductor
	IsRecurring    bool       // trips.is_recurring
	RecurDays      string     // trips.recur_days
	RecurUntil     *time.Time // trips.recur_until (nullable)
	DeletedAt      *time.Time // trips.deleted_at (nullable)
	CreatedAt      time.Time  // trips.created_at
	UpdatedAt      time.Time  // trips.updated_at
}

// DurationMinutes returns the scheduled trip duration in whole minutes.
func (t *Trip) DurationMinutes() int {
	return int(t.ArrivalAt.Sub(t.DepartureAt) / time.Minute)
}

// tripTransitions enumerates legal trip status changes.  DELAYED is
// operator-set; resuming returns the trip to wherever its schedule
// says it belongs, so both SCHEDULED and IN_PROGRESS are reachable.
var tripTransitions = map[string][]string{
	TripScheduled:  {TripInProgress, TripCancelled, TripDelayed},
	TripInProgress: {TripCompleted, TripCancelled},
	TripDelayed:    {TripScheduled, TripInProgress, TripCancelled},
}

// CanTripTransition reports whether a trip may move from one status to
// another.  Terminal states have no outgoing transitions.
func CanTripTransition(from, to string) bool {
	for _, next := range tripTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
