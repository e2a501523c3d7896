package service

// In-memory store fakes shared by the service tests.  They mirror the
// repository semantics that matter to the engine: keyed lookups,
// conditional status updates and the transactional ticket units.

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andikaw/bus-ticketing/internal/model"
	"github.com/andikaw/bus-ticketing/internal/queue"
	"github.com/andikaw/bus-ticketing/internal/repository"
)

// ----- trips -----

type fakeTrips struct {
	mu     sync.Mutex
	nextID uint64
	trips  map[uint64]*model.Trip
}

func newFakeTrips() *fakeTrips {
	return &fakeTrips{trips: map[uint64]*model.Trip{}}
}

func (f *fakeTrips) add(t model.Trip) *model.Trip {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == 0 {
		f.nextID++
		t.ID = f.nextID
	} else if t.ID > f.nextID {
		f.nextID = t.ID
	}
	f.trips[t.ID] = &t
	return &t
}

func (f *fakeTrips) Create(_ context.Context, t *model.Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID = f.nextID
	cp := *t
	f.trips[t.ID] = &cp
	return nil
}

// GetByID returns soft-deleted trips too, like the production store:
// tickets must keep resolving their itinerary after the trip is gone
// from the operator surface.
func (f *fakeTrips) GetByID(_ context.Context, id uint64) (*model.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[id]
	if !ok {
		return nil, repository.ErrTripNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTrips) UpdateSchedule(_ context.Context, t *model.Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.trips[t.ID]
	if !ok || cur.DeletedAt != nil {
		return repository.ErrTripNotFound
	}
	cp := *t
	f.trips[t.ID] = &cp
	return nil
}

func (f *fakeTrips) TryUpdateStatus(_ context.Context, id uint64, expected, next string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[id]
	if !ok {
		return false, repository.ErrTripNotFound
	}
	if t.DeletedAt != nil || t.Status != expected {
		return false, nil
	}
	t.Status = next
	return true, nil
}

func (f *fakeTrips) SoftDelete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[id]
	if !ok || t.DeletedAt != nil {
		return repository.ErrTripNotFound
	}
	now := time.Now().UTC()
	t.DeletedAt = &now
	return nil
}

func sameUTCDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func (f *fakeTrips) FindActiveByVehiclesOn(_ context.Context, vehicleIDs []uint64, date time.Time, excludeID uint64) ([]model.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[uint64]bool{}
	for _, id := range vehicleIDs {
		want[id] = true
	}
	prev := date.UTC().AddDate(0, 0, -1)
	var out []model.Trip
	for _, t := range f.trips {
		if t.ID == excludeID || t.DeletedAt != nil {
			continue
		}
		if t.Status == model.TripCancelled || t.Status == model.TripCompleted {
			continue
		}
		uses := false
		for _, vid := range t.VehicleIDs {
			if want[vid] {
				uses = true
				break
			}
		}
		if !uses {
			continue
		}
		if sameUTCDate(t.DepartureAt, date) ||
			(sameUTCDate(t.DepartureAt, prev) && sameUTCDate(t.ArrivalAt, date)) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTrips) ListUnfinished(_ context.Context) ([]model.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.Trip
	for _, t := range f.trips {
		if t.DeletedAt != nil {
			continue
		}
		if t.Status != model.TripScheduled && t.Status != model.TripInProgress {
			continue
		}
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DepartureAt.Before(result[j].DepartureAt) })
	return result, nil
}

// ----- vehicles -----

type fakeVehicles struct {
	vehicles map[uint64]model.Vehicle
}

func newFakeVehicles(vs ...model.Vehicle) *fakeVehicles {
	f := &fakeVehicles{vehicles: map[uint64]model.Vehicle{}}
	for _, v := range vs {
		f.vehicles[v.ID] = v
	}
	return f
}

func (f *fakeVehicles) GetByID(_ context.Context, id uint64) (*model.Vehicle, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return nil, repository.ErrVehicleNotFound
	}
	return &v, nil
}

func (f *fakeVehicles) GetByIDs(_ context.Context, ids []uint64) (map[uint64]model.Vehicle, error) {
	out := map[uint64]model.Vehicle{}
	for _, id := range ids {
		if v, ok := f.vehicles[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (f *fakeVehicles) CapacityByIDs(_ context.Context, ids []uint64) (map[uint64]uint32, error) {
	out := map[uint64]uint32{}
	for _, id := range ids {
		if v, ok := f.vehicles[id]; ok {
			out[id] = v.SeatCount
		}
	}
	return out, nil
}

// ----- seats -----

type fakeSeats struct {
	mu    sync.Mutex
	seats map[uint64]*model.Seat
}

func newFakeSeats(ss ...model.Seat) *fakeSeats {
	f := &fakeSeats{seats: map[uint64]*model.Seat{}}
	for _, s := range ss {
		cp := s
		f.seats[s.ID] = &cp
	}
	return f
}

func (f *fakeSeats) GetByID(_ context.Context, id uint64) (*model.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[id]
	if !ok {
		return nil, repository.ErrSeatNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSeats) ListByVehicle(_ context.Context, vehicleID uint64) ([]model.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Seat
	for _, s := range f.seats {
		if s.VehicleID == vehicleID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSeats) trySet(id uint64, expected, next string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[id]
	if !ok || s.Status != expected {
		return false
	}
	s.Status = next
	return true
}

func (f *fakeSeats) status(id uint64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.seats[id]; ok {
		return s.Status
	}
	return ""
}

// ----- routes -----

type fakeRoutes struct {
	routes map[uint64]model.Route
}

func newFakeRoutes(rs ...model.Route) *fakeRoutes {
	f := &fakeRoutes{routes: map[uint64]model.Route{}}
	for _, r := range rs {
		f.routes[r.ID] = r
	}
	return f
}

func (f *fakeRoutes) GetByID(_ context.Context, id uint64) (*model.Route, error) {
	r, ok := f.routes[id]
	if !ok {
		return nil, repository.ErrRouteNotFound
	}
	return &r, nil
}

// ----- promotions -----

type fakePromos struct {
	byID      map[uint64]model.Promotion
	recurring *model.Promotion
	special   *model.Promotion
	def       *model.Promotion
}

func (f *fakePromos) GetByID(_ context.Context, id uint64) (*model.Promotion, error) {
	if p, ok := f.byID[id]; ok {
		return &p, nil
	}
	return nil, repository.ErrPromotionNotFound
}

func (f *fakePromos) FindActiveRecurring(_ context.Context, month, day int) (*model.Promotion, error) {
	if f.recurring != nil && f.recurring.RecurMonth == month && f.recurring.RecurDay == day {
		return f.recurring, nil
	}
	return nil, repository.ErrPromotionNotFound
}

func (f *fakePromos) FindActiveSpecialOn(_ context.Context, date time.Time) (*model.Promotion, error) {
	p := f.special
	if p != nil && p.StartDate != nil && p.ExpiryDate != nil &&
		!date.Before(*p.StartDate) && !date.After(*p.ExpiryDate) {
		return p, nil
	}
	return nil, repository.ErrPromotionNotFound
}

func (f *fakePromos) FindDefault(_ context.Context) (*model.Promotion, error) {
	if f.def == nil {
		return nil, repository.ErrNoDefaultPromotion
	}
	return f.def, nil
}

// ----- tickets -----

// fakeTickets emulates the transactional ticket units against the seat
// and trip fakes, including the conditional updates that make the real
// units idempotent.
type fakeTickets struct {
	mu      sync.Mutex
	nextID  uint64
	tickets map[uint64]*model.Ticket
	seats   *fakeSeats
	trips   *fakeTrips
}

func newFakeTickets(seats *fakeSeats, trips *fakeTrips) *fakeTickets {
	return &fakeTickets{tickets: map[uint64]*model.Ticket{}, seats: seats, trips: trips}
}

func (f *fakeTickets) adjustCounters(tripID uint64, booked, available int) {
	f.trips.mu.Lock()
	defer f.trips.mu.Unlock()
	if t, ok := f.trips.trips[tripID]; ok {
		t.BookedSeats = uint32(int(t.BookedSeats) + booked)
		t.AvailableSeats = uint32(int(t.AvailableSeats) + available)
	}
}

func (f *fakeTickets) CreateHeld(_ context.Context, t *model.Ticket) error {
	if !f.seats.trySet(t.SeatID, model.SeatEmpty, model.SeatPending) {
		return repository.ErrSeatUnavailable
	}
	f.mu.Lock()
	f.nextID++
	t.ID = f.nextID
	cp := *t
	f.tickets[t.ID] = &cp
	f.mu.Unlock()
	f.adjustCounters(t.TripID, 1, -1)
	return nil
}

func (f *fakeTickets) Confirm(_ context.Context, ticketID, seatID uint64, now time.Time, snapshot string) error {
	f.mu.Lock()
	t, ok := f.tickets[ticketID]
	if !ok || t.Status != model.TicketPending || t.ExpiresAt.Before(now) {
		f.mu.Unlock()
		return repository.ErrInvalidTransition
	}
	t.Status = model.TicketSuccess
	if t.Snapshot == nil {
		t.Snapshot = &snapshot
	}
	f.mu.Unlock()
	if !f.seats.trySet(seatID, model.SeatPending, model.SeatSold) {
		return repository.ErrSeatUnavailable
	}
	return nil
}

func (f *fakeTickets) Fail(_ context.Context, ticketID, tripID, seatID uint64, snapshot string) error {
	f.mu.Lock()
	t, ok := f.tickets[ticketID]
	if !ok || t.Status != model.TicketPending {
		f.mu.Unlock()
		return repository.ErrInvalidTransition
	}
	t.Status = model.TicketFailed
	if t.Snapshot == nil {
		t.Snapshot = &snapshot
	}
	f.mu.Unlock()
	f.seats.trySet(seatID, model.SeatPending, model.SeatEmpty)
	f.adjustCounters(tripID, -1, 1)
	return nil
}

func (f *fakeTickets) Transfer(_ context.Context, old *model.Ticket, next *model.Ticket, oldSnapshot, nextSnapshot string) error {
	if !f.seats.trySet(next.SeatID, model.SeatEmpty, model.SeatSold) {
		return repository.ErrSeatUnavailable
	}
	f.mu.Lock()
	stored, ok := f.tickets[old.ID]
	if !ok || stored.Status != model.TicketSuccess || stored.TransferredTo != nil {
		f.mu.Unlock()
		f.seats.trySet(next.SeatID, model.SeatSold, model.SeatEmpty)
		return repository.ErrInvalidTransition
	}
	f.nextID++
	next.ID = f.nextID
	next.Snapshot = &nextSnapshot
	cp := *next
	f.tickets[next.ID] = &cp
	stored.Status = model.TicketTransfer
	stored.TransferredTo = &next.ID
	if stored.Snapshot == nil {
		stored.Snapshot = &oldSnapshot
	}
	f.mu.Unlock()
	f.seats.trySet(old.SeatID, model.SeatSold, model.SeatEmpty)
	f.adjustCounters(old.TripID, -1, 1)
	f.adjustCounters(next.TripID, 1, -1)
	return nil
}

func (f *fakeTickets) GetByID(_ context.Context, id uint64) (*model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTickets) ListByUser(_ context.Context, userID uint64) ([]model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Ticket
	for _, t := range f.tickets {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTickets) ListExpiredPending(_ context.Context, now time.Time) ([]model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Ticket
	for _, t := range f.tickets {
		if t.Status == model.TicketPending && !t.ExpiresAt.After(now) {
			out = append(out, *t)
		}
	}
	return out, nil
}

// ----- scheduler and events -----

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
	cancelled []string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: map[string]time.Time{}}
}

func (f *fakeScheduler) Schedule(_ context.Context, key, _ string, _ uint64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled[key] = at
	return nil
}

func (f *fakeScheduler) Cancel(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scheduled, key)
	f.cancelled = append(f.cancelled, key)
	return nil
}

type fakePublisher struct {
	mu           sync.Mutex
	tripEvents   []queue.TripEvent
	ticketEvents []queue.TicketEvent
}

func (f *fakePublisher) PublishTripEvent(_ context.Context, ev queue.TripEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tripEvents = append(f.tripEvents, ev)
}

func (f *fakePublisher) PublishTicketEvent(_ context.Context, ev queue.TicketEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticketEvents = append(f.ticketEvents, ev)
}
