// Package queue defines message payloads exchanged over the message broker
// and the background consumer that feeds them to the audit log.
package queue

// Queue names used by the publisher and consumer.  Both queues are
// durable; messages are published persistent.
const (
	TripEventQueue   = "trip.events"
	TicketEventQueue = "ticket.events"
)

// TripEvent is published whenever a trip is created, updated, cancelled
// or removed, and when a deferred transition advances its status.  It
// carries enough information for downstream consumers (search index,
// analytics) to react without querying the primary database.
type TripEvent struct {
	Kind           string `json:"kind"` // created | updated | status_changed | cancelled | deleted
	TripID         uint64 `json:"trip_id"`
	RouteID        uint64 `json:"route_id"`
	Status         string `json:"status"`
	DepartureAt    string `json:"departure_at"`
	ArrivalAt      string `json:"arrival_at"`
	Price          int64  `json:"price"`
	BookedSeats    uint32 `json:"booked_seats"`
	AvailableSeats uint32 `json:"available_seats"`
	OccurredAt     string `json:"occurred_at"`
}

// TicketEvent is published on every ticket status change, including the
// pair of events a transfer produces.
type TicketEvent struct {
	Kind          string  `json:"kind"` // booked | confirmed | failed | transferred
	TicketID      uint64  `json:"ticket_id"`
	UserID        uint64  `json:"user_id"`
	TripID        uint64  `json:"trip_id"`
	SeatID        uint64  `json:"seat_id"`
	Status        string  `json:"status"`
	TotalPrice    float64 `json:"total_price"`
	TransferredTo *uint64 `json:"transferred_to,omitempty"`
	OccurredAt    string  `json:"occurred_at"`
}
