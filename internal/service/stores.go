// Package service implements the scheduling and reservation engine:
// promotion resolution, vehicle conflict checking, the trip lifecycle,
// and the seat/ticket state machine. Services accept narrow store
// interfaces so the engine can be exercised without a database; the
// repository package provides the production implementations.
package service

import (
	"context"
	"time"

	"github.com/andikaw/bus-ticketing/internal/model"
	"github.com/andikaw/bus-ticketing/internal/queue"
	"github.com/andikaw/bus-ticketing/internal/repository"
)

// TripStore is the trip persistence surface the engine depends on.
// *repository.TripRepo satisfies it.
type TripStore interface {
	Create(ctx context.Context, t *model.Trip) error
	GetByID(ctx context.Context, id uint64) (*model.Trip, error)
	UpdateSchedule(ctx context.Context, t *model.Trip) error
	TryUpdateStatus(ctx context.Context, id uint64, expected, next string) (bool, error)
	SoftDelete(ctx context.Context, id uint64) error
	FindActiveByVehiclesOn(ctx context.Context, vehicleIDs []uint64, date time.Time, excludeID uint64) ([]model.Trip, error)
	ListUnfinished(ctx context.Context) ([]model.Trip, error)
}

// VehicleStore resolves vehicles and their sellable capacity.
// *repository.VehicleRepo satisfies it.
type VehicleStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Vehicle, error)
	GetByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Vehicle, error)
	CapacityByIDs(ctx context.Context, ids []uint64) (map[uint64]uint32, error)
}

// SeatStore reads seat rows. All seat status writes happen inside
// TicketStore transactions. *repository.SeatRepo satisfies it.
type SeatStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Seat, error)
	ListByVehicle(ctx context.Context, vehicleID uint64) ([]model.Seat, error)
}

// RouteStore resolves routes. *repository.RouteRepo satisfies it.
type RouteStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Route, error)
}

// PromotionStore is the lookup surface of the promotion resolver.
// *repository.PromotionRepo satisfies it.
type PromotionStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Promotion, error)
	FindActiveRecurring(ctx context.Context, month, day int) (*model.Promotion, error)
	FindActiveSpecialOn(ctx context.Context, date time.Time) (*model.Promotion, error)
	FindDefault(ctx context.Context) (*model.Promotion, error)
}

// TicketStore is the transactional ticket surface. Each mutating method
// is one atomic unit combining the ticket write, the seat
// compare-and-set and the trip counters. *repository.TicketRepo
// satisfies it.
type TicketStore interface {
	CreateHeld(ctx context.Context, t *model.Ticket) error
	Confirm(ctx context.Context, ticketID, seatID uint64, now time.Time, snapshot string) error
	Fail(ctx context.Context, ticketID, tripID, seatID uint64, snapshot string) error
	Transfer(ctx context.Context, old *model.Ticket, next *model.Ticket, oldSnapshot, nextSnapshot string) error
	GetByID(ctx context.Context, id uint64) (*model.Ticket, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Ticket, error)
	ListExpiredPending(ctx context.Context, now time.Time) ([]model.Ticket, error)
}

// TaskScheduler registers and cancels keyed deferred transitions. The
// scheduler package provides the durable implementation.
type TaskScheduler interface {
	Schedule(ctx context.Context, key, kind string, tripID uint64, at time.Time) error
	Cancel(ctx context.Context, key string) error
}

// EventPublisher delivers lifecycle events to the notification and
// indexing sinks. Delivery is best-effort: implementations log
// failures and never propagate them into the transition that emitted
// the event.
type EventPublisher interface {
	PublishTripEvent(ctx context.Context, ev queue.TripEvent)
	PublishTicketEvent(ctx context.Context, ev queue.TicketEvent)
}

// compile-time wiring checks against the repository implementations
var (
	_ TripStore      = (*repository.TripRepo)(nil)
	_ VehicleStore   = (*repository.VehicleRepo)(nil)
	_ SeatStore      = (*repository.SeatRepo)(nil)
	_ RouteStore     = (*repository.RouteRepo)(nil)
	_ PromotionStore = (*repository.PromotionRepo)(nil)
	_ TicketStore    = (*repository.TicketRepo)(nil)
)
