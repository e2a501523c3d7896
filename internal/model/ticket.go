package model

import "time"

// Ticket statuses.  PENDING tickets either confirm (SUCCESS), fail
// (FAILED, manually or via the expiry sweep), or — once SUCCESS — may be
// chained into TRANSFER exactly once.  Tickets are never deleted.
const (
	TicketPending  = "PENDING"
	TicketSuccess  = "SUCCESS"
	TicketFailed   = "FAILED"
	TicketTransfer = "TRANSFER"
)

// Ticket represents a passenger's claim on one seat of one trip.  The
// Snapshot field is a denormalized JSON copy of seat/trip/route/
// promotion/pricing facts written exactly once when the ticket reaches
// a terminal state; it is never overwritten afterwards.  This struct
// corresponds to a row in the `tickets` table.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – passenger who booked.
//  TripID        – trip being travelled.
//  SeatID        – reserved seat.
//  PromotionID   – promotion resolved at booking time.
//  PaymentMethod – payment channel chosen by the passenger.
//  TotalPrice    – final price after discount, 2 decimal places.
//  ExpiresAt     – payment deadline (departure − 3h).
//  Status        – lifecycle status.
//  Snapshot      – write-once JSON audit copy (nullable until terminal).
//  TransferredTo – successor ticket created by transfer (nullable).
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Ticket struct {
	ID            uint64    // tickets.id
	UserID        uint64    // tickets.user_id
	TripID        uint64    // tickets.trip_id
	SeatID        uint64    // tickets.seat_id
	PromotionID   uint64    // tickets.promotion_id
	PaymentMethod string    // tickets.payment_method
	TotalPrice    float64   // tickets.total_price
	ExpiresAt     time.Time // tickets.expires_at
	Status        string    // tickets.status
	Snapshot      *string   // tickets.snapshot (nullable, write-once)
	TransferredTo *uint64   // tickets.transferred_to (nullable)
	CreatedAt     time.Time // tickets.created_at
	UpdatedAt     time.Time // tickets.updated_at
}

// ticketTransitions enumerates legal ticket status changes.  FAILED and
// TRANSFER are terminal; SUCCESS can only move to TRANSFER.
var ticketTransitions = map[string][]string{
	TicketPending: {TicketSuccess, TicketFailed},
	TicketSuccess: {TicketTransfer},
}

// CanTicketTransition reports whether a ticket may move from one status
// to another.
func CanTicketTransition(from, to string) bool {
	for _, next := range ticketTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TicketSnapshot is the denormalized record serialized into the ticket's
// snapshot column.  It captures everything needed to reconstruct the
// itinerary and pricing after the source rows may have changed.
type TicketSnapshot struct {
	TicketID        uint64  `json:"ticket_id"`
	TripID          uint64  `json:"trip_id"`
	RouteOrigin     string  `json:"route_origin"`
	RouteDest       string  `json:"route_destination"`
	DepartureAt     string  `json:"departure_at"`
	ArrivalAt       string  `json:"arrival_at"`
	SeatNumber      string  `json:"seat_number"`
	VehiclePlate    string  `json:"vehicle_plate"`
	PromotionName   string  `json:"promotion_name"`
	DiscountPercent float64 `json:"discount_percent"`
	BasePrice       int64   `json:"base_price"`
	Discount        float64 `json:"discount"`
	TotalPrice      float64 `json:"total_price"`
	TakenAt         string  `json:"taken_at"`
}
