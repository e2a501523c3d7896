package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/andikaw/bus-ticketing/internal/model"
	"github.com/andikaw/bus-ticketing/internal/queue"
	"github.com/andikaw/bus-ticketing/internal/repository"
	"github.com/andikaw/bus-ticketing/internal/utils"
)

// paymentWindow is how long before departure booking and transfer
// close.  A PENDING ticket expires at departure minus this window.
const paymentWindow = 3 * time.Hour

// ReservationService implements the passenger-facing ticket flow:
// booking a held seat, confirming or failing the payment, the expiry
// sweep, and single-use ticket transfer.  It orchestrates the
// transactional units in the ticket store; every seat write happens
// inside those units, never here.
type ReservationService struct {
	tickets  TicketStore
	trips    TripStore
	seats    SeatStore
	routes   RouteStore
	vehicles VehicleStore
	resolver *PromotionResolver
	promos   PromotionStore
	events   EventPublisher
	now      func() time.Time
}

// NewReservationService constructs the reservation service.
func NewReservationService(tickets TicketStore, trips TripStore, seats SeatStore, routes RouteStore, vehicles VehicleStore, resolver *PromotionResolver, promos PromotionStore, events EventPublisher) *ReservationService {
	return &ReservationService{
		tickets:  tickets,
		trips:    trips,
		seats:    seats,
		routes:   routes,
		vehicles: vehicles,
		resolver: resolver,
		promos:   promos,
		events:   events,
		now:      time.Now,
	}
}

// bookable reports whether a trip can accept new tickets at all.
func bookable(t *model.Trip) bool {
	if t.DeletedAt != nil {
		return false
	}
	return t.Status == model.TripScheduled || t.Status == model.TripDelayed
}

// Book holds a seat for a passenger and creates the PENDING ticket in
// the same transaction.  The payment deadline is departure minus 3
// hours; a trip closer than that is closed for booking.  The resolved
// promotion is applied to the trip price immediately so the passenger
// pays the quoted amount.
func (s *ReservationService) Book(ctx context.Context, userID, tripID, seatID uint64, paymentMethod string) (*model.Ticket, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !bookable(trip) {
		return nil, ErrTripNotBookable
	}

	now := s.now().UTC()
	expiresAt := trip.DepartureAt.Add(-paymentWindow)
	if !expiresAt.After(now) {
		return nil, ErrBookingClosed
	}

	seat, err := s.seats.GetByID(ctx, seatID)
	if err != nil {
		return nil, err
	}
	if !tripHasVehicle(trip, seat.VehicleID) {
		return nil, ErrSeatNotOnTrip
	}
	// Fail fast on seats that are visibly taken; the transactional
	// compare-and-set below remains the authority under races.
	if !model.CanSeatTransition(seat.Status, model.SeatPending) {
		return nil, repository.ErrSeatUnavailable
	}

	promo, err := s.resolver.Resolve(ctx, trip.DepartureAt)
	if err != nil {
		return nil, err
	}

	ticket := &model.Ticket{
		UserID:        userID,
		TripID:        tripID,
		SeatID:        seatID,
		PromotionID:   promo.ID,
		PaymentMethod: paymentMethod,
		TotalPrice:    utils.CalculateFinalPrice(trip.Price, promo.Percent),
		ExpiresAt:     expiresAt,
		Status:        model.TicketPending,
	}
	if err := s.tickets.CreateHeld(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishTicket(ctx, "booked", ticket)
	return ticket, nil
}

// Confirm marks a passenger's PENDING ticket as paid.  The status
// change, the write-once snapshot and the seat move to SOLD commit
// together; an already expired or already decided ticket is rejected.
func (s *ReservationService) Confirm(ctx context.Context, userID, ticketID uint64) (*model.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != userID {
		return nil, ErrNotTicketOwner
	}
	return s.confirm(ctx, ticket)
}

// FailTicket abandons a passenger's PENDING ticket, releasing the seat.
func (s *ReservationService) FailTicket(ctx context.Context, userID, ticketID uint64) (*model.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != userID {
		return nil, ErrNotTicketOwner
	}
	return s.fail(ctx, ticket)
}

// HandlePaymentCallback settles a ticket on behalf of the payment
// gateway.  Callbacks carry their own authentication, so no ownership
// check applies; retried callbacks for an already settled ticket fail
// the same conditional update and are reported as invalid transitions.
func (s *ReservationService) HandlePaymentCallback(ctx context.Context, ticketID uint64, paid bool) (*model.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if paid {
		return s.confirm(ctx, ticket)
	}
	return s.fail(ctx, ticket)
}

func (s *ReservationService) confirm(ctx context.Context, ticket *model.Ticket) (*model.Ticket, error) {
	snapshot, err := s.buildSnapshot(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if err := s.tickets.Confirm(ctx, ticket.ID, ticket.SeatID, s.now().UTC(), snapshot); err != nil {
		return nil, err
	}
	ticket.Status = model.TicketSuccess
	ticket.Snapshot = &snapshot
	s.publishTicket(ctx, "confirmed", ticket)
	return ticket, nil
}

func (s *ReservationService) fail(ctx context.Context, ticket *model.Ticket) (*model.Ticket, error) {
	snapshot, err := s.buildSnapshot(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if err := s.tickets.Fail(ctx, ticket.ID, ticket.TripID, ticket.SeatID, snapshot); err != nil {
		return nil, err
	}
	ticket.Status = model.TicketFailed
	ticket.Snapshot = &snapshot
	s.publishTicket(ctx, "failed", ticket)
	return ticket, nil
}

// SweepExpired fails every PENDING ticket whose payment deadline has
// passed and returns how many it settled.  The per-ticket update is a
// conditional PENDING check, so a concurrent confirmation or a second
// sweep simply skips the ticket.
func (s *ReservationService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.tickets.ListExpiredPending(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	swept := 0
	for i := range expired {
		t := expired[i]
		if _, err := s.fail(ctx, &t); err != nil {
			if errors.Is(err, repository.ErrInvalidTransition) {
				continue // settled out from under the sweep
			}
			log.Printf("sweep: fail ticket %d: %v", t.ID, err)
			continue
		}
		swept++
	}
	return swept, nil
}

// RunSweeper runs the expiry sweep on the given interval until the
// context is cancelled.  Intended to run as a goroutine from main.
func (s *ReservationService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepExpired(ctx)
			if err != nil {
				log.Printf("sweep: list expired tickets: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("sweep: failed %d expired tickets", n)
			}
		}
	}
}

// Transfer moves a confirmed ticket to a new trip and seat.  The old
// ticket becomes TRANSFER and its seat is released; the successor is
// created directly in SUCCESS holding the new seat.  Transfer is a
// reschedule only: once per ticket, at least 3 hours before the old
// departure, same route, identical price.
func (s *ReservationService) Transfer(ctx context.Context, userID, ticketID, newTripID, newSeatID uint64) (*model.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != userID {
		return nil, ErrNotTicketOwner
	}
	if !model.CanTicketTransition(ticket.Status, model.TicketTransfer) {
		return nil, ErrTransferNotAllowed
	}
	if ticket.TransferredTo != nil {
		return nil, ErrTransferUsed
	}

	oldTrip, err := s.trips.GetByID(ctx, ticket.TripID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if !oldTrip.DepartureAt.Add(-paymentWindow).After(now) {
		return nil, ErrTransferWindowClosed
	}

	newTrip, err := s.trips.GetByID(ctx, newTripID)
	if err != nil {
		return nil, err
	}
	if !bookable(newTrip) {
		return nil, ErrTripNotBookable
	}
	if !newTrip.DepartureAt.Add(-paymentWindow).After(now) {
		return nil, ErrBookingClosed
	}
	if newTrip.RouteID != oldTrip.RouteID {
		return nil, ErrTransferRouteMismatch
	}
	if newTrip.Price != oldTrip.Price {
		return nil, ErrTransferPriceMismatch
	}

	seat, err := s.seats.GetByID(ctx, newSeatID)
	if err != nil {
		return nil, err
	}
	if !tripHasVehicle(newTrip, seat.VehicleID) {
		return nil, ErrSeatNotOnTrip
	}

	next := &model.Ticket{
		UserID:        ticket.UserID,
		TripID:        newTripID,
		SeatID:        newSeatID,
		PromotionID:   ticket.PromotionID,
		PaymentMethod: ticket.PaymentMethod,
		TotalPrice:    ticket.TotalPrice,
		ExpiresAt:     newTrip.DepartureAt.Add(-paymentWindow),
		Status:        model.TicketSuccess,
	}

	oldSnapshot, err := s.buildSnapshot(ctx, ticket)
	if err != nil {
		return nil, err
	}
	nextSnapshot, err := s.buildSnapshot(ctx, next)
	if err != nil {
		return nil, err
	}

	if err := s.tickets.Transfer(ctx, ticket, next, oldSnapshot, nextSnapshot); err != nil {
		return nil, err
	}
	ticket.Status = model.TicketTransfer
	ticket.TransferredTo = &next.ID
	s.publishTicket(ctx, "transferred", ticket)
	s.publishTicket(ctx, "confirmed", next)
	return next, nil
}

// GetForUser returns a ticket after verifying ownership.
func (s *ReservationService) GetForUser(ctx context.Context, userID, ticketID uint64) (*model.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != userID {
		return nil, ErrNotTicketOwner
	}
	return ticket, nil
}

// ListForUser returns all of a passenger's tickets, newest first.
func (s *ReservationService) ListForUser(ctx context.Context, userID uint64) ([]model.Ticket, error) {
	return s.tickets.ListByUser(ctx, userID)
}

func tripHasVehicle(t *model.Trip, vehicleID uint64) bool {
	for _, id := range t.VehicleIDs {
		if id == vehicleID {
			return true
		}
	}
	return false
}

// buildSnapshot assembles the denormalized audit record serialized
// into the ticket's write-once snapshot column.  Failures here abort
// the transition: a terminal ticket without its snapshot would be
// unauditable.
func (s *ReservationService) buildSnapshot(ctx context.Context, ticket *model.Ticket) (string, error) {
	trip, err := s.trips.GetByID(ctx, ticket.TripID)
	if err != nil {
		return "", fmt.Errorf("snapshot trip: %w", err)
	}
	route, err := s.routes.GetByID(ctx, trip.RouteID)
	if err != nil {
		return "", fmt.Errorf("snapshot route: %w", err)
	}
	seat, err := s.seats.GetByID(ctx, ticket.SeatID)
	if err != nil {
		return "", fmt.Errorf("snapshot seat: %w", err)
	}
	vehicle, err := s.vehicles.GetByID(ctx, seat.VehicleID)
	if err != nil {
		return "", fmt.Errorf("snapshot vehicle: %w", err)
	}

	snap := model.TicketSnapshot{
		TicketID:     ticket.ID,
		TripID:       trip.ID,
		RouteOrigin:  route.Origin,
		RouteDest:    route.Destination,
		DepartureAt:  trip.DepartureAt.UTC().Format(time.RFC3339),
		ArrivalAt:    trip.ArrivalAt.UTC().Format(time.RFC3339),
		SeatNumber:   seat.SeatNumber,
		VehiclePlate: vehicle.PlateNumber,
		BasePrice:    trip.Price,
		Discount:     utils.Round2(float64(trip.Price) - ticket.TotalPrice),
		TotalPrice:   ticket.TotalPrice,
		TakenAt:      s.now().UTC().Format(time.RFC3339),
	}
	if ticket.PromotionID != 0 {
		promo, err := s.promos.GetByID(ctx, ticket.PromotionID)
		if err == nil {
			snap.PromotionName = promo.Name
			snap.DiscountPercent = promo.Percent
		} else if !errors.Is(err, repository.ErrPromotionNotFound) {
			return "", fmt.Errorf("snapshot promotion: %w", err)
		}
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("snapshot marshal: %w", err)
	}
	return string(raw), nil
}

func (s *ReservationService) publishTicket(ctx context.Context, kind string, t *model.Ticket) {
	s.events.PublishTicketEvent(ctx, queue.TicketEvent{
		Kind:          kind,
		TicketID:      t.ID,
		UserID:        t.UserID,
		TripID:        t.TripID,
		SeatID:        t.SeatID,
		Status:        t.Status,
		TotalPrice:    t.TotalPrice,
		TransferredTo: t.TransferredTo,
	})
}
