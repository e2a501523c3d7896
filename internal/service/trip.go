package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andikaw/bus-ticketing/internal/model"
	"github.com/andikaw/bus-ticketing/internal/queue"
	"github.com/andikaw/bus-ticketing/internal/repository"
	"github.com/andikaw/bus-ticketing/internal/utils"
)

// TripInput carries the operator-supplied fields for creating or
// rescheduling a trip.  Times are UTC instants; ArrivalAt may fall on
// the day after DepartureAt for overnight runs.
type TripInput struct {
	RouteID     uint64
	VehicleIDs  []uint64
	DepartureAt time.Time
	ArrivalAt   time.Time
	Price       int64
	Driver      string
	Conductor   string
}

// RecurrenceInput describes a bulk expansion request: one trip per
// matching weekday between StartDate and Until, inclusive, all sharing
// the same time of day and duration.
type RecurrenceInput struct {
	TripInput
	Weekdays []time.Weekday
	Until    time.Time
}

// SkippedDay records one recurrence date that produced no trip and the
// per-vehicle reasons.
type SkippedDay struct {
	Date      string            `json:"date"`
	Conflicts []VehicleConflict `json:"conflicts"`
}

// RecurrenceResult reports the outcome of a bulk expansion.  Partial
// success is normal: conflicting days are skipped, not fatal.
type RecurrenceResult struct {
	Created []*model.Trip `json:"created"`
	Skipped []SkippedDay  `json:"skipped"`
}

// TripService implements operator scheduling: create, reschedule,
// cancel, delay, delete and recurrence expansion.  Every schedule
// mutation runs the vehicle conflict check first and keeps the
// lifecycle scheduler in sync afterwards.
type TripService struct {
	trips     TripStore
	routes    RouteStore
	vehicles  VehicleStore
	checker   *ConflictChecker
	lifecycle *Lifecycle
	resolver  *PromotionResolver
	events    EventPublisher
	now       func() time.Time
}

// NewTripService constructs the trip service.
func NewTripService(trips TripStore, routes RouteStore, vehicles VehicleStore, checker *ConflictChecker, lifecycle *Lifecycle, resolver *PromotionResolver, events EventPublisher) *TripService {
	return &TripService{
		trips:     trips,
		routes:    routes,
		vehicles:  vehicles,
		checker:   checker,
		lifecycle: lifecycle,
		resolver:  resolver,
		events:    events,
		now:       time.Now,
	}
}

func validateTripInput(in TripInput) error {
	if in.RouteID == 0 {
		return errors.New("route_id is required")
	}
	if len(in.VehicleIDs) == 0 {
		return errors.New("at least one vehicle is required")
	}
	if !in.ArrivalAt.After(in.DepartureAt) {
		return errors.New("arrival must be after departure")
	}
	if in.Price <= 0 {
		return errors.New("price must be positive")
	}
	if in.Driver == "" {
		return errors.New("driver is required")
	}
	seen := make(map[uint64]bool, len(in.VehicleIDs))
	for _, id := range in.VehicleIDs {
		if seen[id] {
			return fmt.Errorf("vehicle %d listed twice", id)
		}
		seen[id] = true
	}
	return nil
}

// Create validates the input, partitions the candidate vehicles by the
// conflict check and creates the trip with the assignable subset.  The
// returned result lists the vehicles that were rejected; the call only
// fails with ErrAllVehiclesConflict when none survive.  Trips created
// in the past start in the status their schedule implies.
func (s *TripService) Create(ctx context.Context, in TripInput) (*model.Trip, AvailabilityResult, error) {
	var none AvailabilityResult
	if err := validateTripInput(in); err != nil {
		return nil, none, err
	}
	if _, err := s.routes.GetByID(ctx, in.RouteID); err != nil {
		return nil, none, err
	}

	in.DepartureAt = in.DepartureAt.UTC()
	in.ArrivalAt = in.ArrivalAt.UTC()
	duration := int(in.ArrivalAt.Sub(in.DepartureAt) / time.Minute)

	result, err := s.checker.CheckAvailability(ctx, in.VehicleIDs, in.DepartureAt, minutesOfDay(in.DepartureAt), duration, 0)
	if err != nil {
		return nil, none, err
	}
	if len(result.Assignable) == 0 {
		return nil, result, ErrAllVehiclesConflict
	}

	capacity, err := s.totalCapacity(ctx, result.Assignable)
	if err != nil {
		return nil, result, err
	}

	trip := &model.Trip{
		RouteID:        in.RouteID,
		VehicleIDs:     result.Assignable,
		DepartureAt:    in.DepartureAt,
		ArrivalAt:      in.ArrivalAt,
		Status:         s.lifecycle.InitialStatus(in.DepartureAt, in.ArrivalAt),
		Price:          in.Price,
		BookedSeats:    0,
		AvailableSeats: capacity,
		Driver:         in.Driver,
		Conductor:      in.Conductor,
	}
	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, result, err
	}
	if err := s.lifecycle.Register(ctx, trip); err != nil {
		return nil, result, err
	}
	s.publishTrip(ctx, "created", trip)
	return trip, result, nil
}

// Update reschedules an existing trip.  The conflict check excludes
// the trip itself so an unchanged window never conflicts with its own
// assignment.  Reducing the vehicle set below the booked seat count is
// rejected: sold seats cannot be unseated by an edit.
func (s *TripService) Update(ctx context.Context, tripID uint64, in TripInput) (*model.Trip, AvailabilityResult, error) {
	var none AvailabilityResult
	if err := validateTripInput(in); err != nil {
		return nil, none, err
	}

	trip, err := s.liveTrip(ctx, tripID)
	if err != nil {
		return nil, none, err
	}
	if trip.Status == model.TripCancelled || trip.Status == model.TripCompleted {
		return nil, none, repository.ErrInvalidTransition
	}
	if _, err := s.routes.GetByID(ctx, in.RouteID); err != nil {
		return nil, none, err
	}

	in.DepartureAt = in.DepartureAt.UTC()
	in.ArrivalAt = in.ArrivalAt.UTC()
	duration := int(in.ArrivalAt.Sub(in.DepartureAt) / time.Minute)

	result, err := s.checker.CheckAvailability(ctx, in.VehicleIDs, in.DepartureAt, minutesOfDay(in.DepartureAt), duration, tripID)
	if err != nil {
		return nil, none, err
	}
	if len(result.Assignable) == 0 {
		return nil, result, ErrAllVehiclesConflict
	}

	capacity, err := s.totalCapacity(ctx, result.Assignable)
	if err != nil {
		return nil, result, err
	}
	if capacity < trip.BookedSeats {
		return nil, result, fmt.Errorf("%w: new capacity %d is below %d booked seats", repository.ErrConflict, capacity, trip.BookedSeats)
	}

	trip.RouteID = in.RouteID
	trip.VehicleIDs = result.Assignable
	trip.DepartureAt = in.DepartureAt
	trip.ArrivalAt = in.ArrivalAt
	trip.Price = in.Price
	trip.Driver = in.Driver
	trip.Conductor = in.Conductor
	trip.AvailableSeats = capacity - trip.BookedSeats
	if err := s.trips.UpdateSchedule(ctx, trip); err != nil {
		return nil, result, err
	}

	// Replace the deferred transitions with ones for the new schedule.
	if err := s.lifecycle.Deregister(ctx, trip.ID); err != nil {
		return nil, result, err
	}
	if err := s.lifecycle.Register(ctx, trip); err != nil {
		return nil, result, err
	}
	s.publishTrip(ctx, "updated", trip)
	return trip, result, nil
}

// Cancel moves a trip to CANCELLED and drops its pending transitions.
func (s *TripService) Cancel(ctx context.Context, tripID uint64) (*model.Trip, error) {
	return s.setStatus(ctx, tripID, model.TripCancelled, "cancelled", true)
}

// MarkDelayed flags a scheduled trip as DELAYED.  The deferred
// transitions stay registered: a delayed trip still departs, just not
// on time, and the operator resumes it explicitly.
func (s *TripService) MarkDelayed(ctx context.Context, tripID uint64) (*model.Trip, error) {
	return s.setStatus(ctx, tripID, model.TripDelayed, "status_changed", false)
}

// Resume moves a DELAYED trip back onto its timeline: to SCHEDULED
// while the departure is still ahead, to IN_PROGRESS once it has
// passed.  The deferred transitions are re-armed from the schedule
// because a stale depart task may have been consumed during the delay;
// a resume past the arrival instant re-arms an immediately firing
// arrival, so the trip still completes.
func (s *TripService) Resume(ctx context.Context, tripID uint64) (*model.Trip, error) {
	trip, err := s.liveTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	trip, err = s.transition(ctx, trip, s.lifecycle.ResumeStatus(trip), "status_changed", false)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.Rearm(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// liveTrip loads a trip for an operator mutation, treating soft-deleted
// rows as gone.
func (s *TripService) liveTrip(ctx context.Context, tripID uint64) (*model.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.DeletedAt != nil {
		return nil, repository.ErrTripNotFound
	}
	return trip, nil
}

func (s *TripService) setStatus(ctx context.Context, tripID uint64, to, eventKind string, deregister bool) (*model.Trip, error) {
	trip, err := s.liveTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, trip, to, eventKind, deregister)
}

func (s *TripService) transition(ctx context.Context, trip *model.Trip, to, eventKind string, deregister bool) (*model.Trip, error) {
	tripID := trip.ID
	if !model.CanTripTransition(trip.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", repository.ErrInvalidTransition, trip.Status, to)
	}
	ok, err := s.trips.TryUpdateStatus(ctx, tripID, trip.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race against a concurrent transition.
		return nil, fmt.Errorf("%w: trip %d left %s concurrently", repository.ErrInvalidTransition, tripID, trip.Status)
	}
	trip.Status = to
	if deregister {
		if err := s.lifecycle.Deregister(ctx, tripID); err != nil {
			return nil, err
		}
	}
	s.publishTrip(ctx, eventKind, trip)
	return trip, nil
}

// Delete soft-deletes a trip and drops its pending transitions.
// Existing tickets keep referencing the row.
func (s *TripService) Delete(ctx context.Context, tripID uint64) error {
	trip, err := s.liveTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if err := s.trips.SoftDelete(ctx, tripID); err != nil {
		return err
	}
	if err := s.lifecycle.Deregister(ctx, tripID); err != nil {
		return err
	}
	s.publishTrip(ctx, "deleted", trip)
	return nil
}

// Generate expands a recurrence into one trip per matching weekday
// between the input's departure date and Until, inclusive.  Days where
// no vehicle survives the conflict check are skipped and reported; a
// recurrence that creates nothing at all is still a success with an
// empty Created list.
func (s *TripService) Generate(ctx context.Context, in RecurrenceInput) (RecurrenceResult, error) {
	var result RecurrenceResult
	if err := validateTripInput(in.TripInput); err != nil {
		return result, err
	}
	if len(in.Weekdays) == 0 {
		return result, errors.New("at least one weekday is required")
	}
	if _, err := s.routes.GetByID(ctx, in.RouteID); err != nil {
		return result, err
	}

	wanted := make(map[time.Weekday]bool, len(in.Weekdays))
	days := make([]string, 0, len(in.Weekdays))
	for _, wd := range in.Weekdays {
		if !wanted[wd] {
			days = append(days, strconv.Itoa(int(wd)))
		}
		wanted[wd] = true
	}
	recurDays := strings.Join(days, ",")

	dep := in.DepartureAt.UTC()
	duration := in.ArrivalAt.UTC().Sub(dep)
	until := time.Date(in.Until.UTC().Year(), in.Until.UTC().Month(), in.Until.UTC().Day(), 0, 0, 0, 0, time.UTC)
	untilCopy := until

	capCache := make(map[string]uint32)
	for day := dep; !day.After(until.Add(24*time.Hour - time.Nanosecond)); day = day.Add(24 * time.Hour) {
		if !wanted[day.Weekday()] {
			continue
		}
		avail, err := s.checker.CheckAvailability(ctx, in.VehicleIDs, day, minutesOfDay(day), int(duration/time.Minute), 0)
		if err != nil {
			return result, err
		}
		if len(avail.Assignable) == 0 {
			result.Skipped = append(result.Skipped, SkippedDay{
				Date:      day.Format("2006-01-02"),
				Conflicts: avail.Conflicts,
			})
			continue
		}

		key := fmt.Sprint(avail.Assignable)
		capacity, ok := capCache[key]
		if !ok {
			capacity, err = s.totalCapacity(ctx, avail.Assignable)
			if err != nil {
				return result, err
			}
			capCache[key] = capacity
		}

		trip := &model.Trip{
			RouteID:        in.RouteID,
			VehicleIDs:     avail.Assignable,
			DepartureAt:    day,
			ArrivalAt:      day.Add(duration),
			Status:         s.lifecycle.InitialStatus(day, day.Add(duration)),
			Price:          in.Price,
			AvailableSeats: capacity,
			Driver:         in.Driver,
			Conductor:      in.Conductor,
			IsRecurring:    true,
			RecurDays:      recurDays,
			RecurUntil:     &untilCopy,
		}
		if err := s.trips.Create(ctx, trip); err != nil {
			return result, err
		}
		if err := s.lifecycle.Register(ctx, trip); err != nil {
			return result, err
		}
		s.publishTrip(ctx, "created", trip)
		result.Created = append(result.Created, trip)
	}
	return result, nil
}

// PricePreview resolves the promotion for a trip's departure date and
// returns the resolved rule together with the discounted price.
func (s *TripService) PricePreview(ctx context.Context, tripID uint64) (*model.Trip, *model.Promotion, float64, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, nil, 0, err
	}
	// The store returns soft-deleted trips so existing tickets keep
	// resolving their itinerary; the public surface must not.
	if trip.DeletedAt != nil {
		return nil, nil, 0, repository.ErrTripNotFound
	}
	promo, err := s.resolver.Resolve(ctx, trip.DepartureAt)
	if err != nil {
		return nil, nil, 0, err
	}
	return trip, promo, utils.CalculateFinalPrice(trip.Price, promo.Percent), nil
}

func (s *TripService) totalCapacity(ctx context.Context, vehicleIDs []uint64) (uint32, error) {
	caps, err := s.vehicles.CapacityByIDs(ctx, vehicleIDs)
	if err != nil {
		return 0, err
	}
	var total uint32
	for _, id := range vehicleIDs {
		total += caps[id]
	}
	return total, nil
}

func (s *TripService) publishTrip(ctx context.Context, kind string, trip *model.Trip) {
	s.events.PublishTripEvent(ctx, queue.TripEvent{
		Kind:           kind,
		TripID:         trip.ID,
		RouteID:        trip.RouteID,
		Status:         trip.Status,
		DepartureAt:    trip.DepartureAt.UTC().Format(time.RFC3339),
		ArrivalAt:      trip.ArrivalAt.UTC().Format(time.RFC3339),
		Price:          trip.Price,
		BookedSeats:    trip.BookedSeats,
		AvailableSeats: trip.AvailableSeats,
	})
}
