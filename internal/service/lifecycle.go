package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/andikaw/bus-ticketing/internal/model"
	"github.com/andikaw/bus-ticketing/internal/queue"
	"github.com/andikaw/bus-ticketing/internal/repository"
)

// Deferred task kinds handled by the lifecycle service.
const (
	TaskTripDepart = "trip.depart"
	TaskTripArrive = "trip.arrive"
)

// departKey returns the scheduler key of a trip's departure transition.
func departKey(tripID uint64) string { return fmt.Sprintf("trip:%d:depart", tripID) }

// arriveKey returns the scheduler key of a trip's arrival transition.
func arriveKey(tripID uint64) string { return fmt.Sprintf("trip:%d:arrive", tripID) }

// Lifecycle advances trips through their time-driven transitions:
// SCHEDULED becomes IN_PROGRESS at departure and IN_PROGRESS becomes
// COMPLETED at arrival.  Transitions are registered with a durable
// scheduler when the trip is created or rescheduled and cancelled when
// the trip is cancelled or deleted.  Handlers are idempotent: the
// underlying status update is a compare-and-set, so a transition that
// already happened (or a trip that no longer exists) is a no-op.
type Lifecycle struct {
	trips  TripStore
	tasks  TaskScheduler
	events EventPublisher
	now    func() time.Time
}

// NewLifecycle constructs the lifecycle service.
func NewLifecycle(trips TripStore, tasks TaskScheduler, events EventPublisher) *Lifecycle {
	return &Lifecycle{trips: trips, tasks: tasks, events: events, now: time.Now}
}

// InitialStatus returns the status a trip should carry at creation
// time given its schedule.  Trips created with a departure already in
// the past start IN_PROGRESS, or COMPLETED when the arrival has also
// passed; their elapsed transitions are not scheduled.
func (l *Lifecycle) InitialStatus(departureAt, arrivalAt time.Time) string {
	now := l.now().UTC()
	switch {
	case !arrivalAt.After(now):
		return model.TripCompleted
	case !departureAt.After(now):
		return model.TripInProgress
	default:
		return model.TripScheduled
	}
}

// Register schedules the pending transitions for a trip.  Only
// transitions still in the future are registered; re-registering the
// same trip replaces its existing tasks.
func (l *Lifecycle) Register(ctx context.Context, trip *model.Trip) error {
	now := l.now().UTC()
	if trip.DepartureAt.After(now) {
		if err := l.tasks.Schedule(ctx, departKey(trip.ID), TaskTripDepart, trip.ID, trip.DepartureAt); err != nil {
			return fmt.Errorf("schedule departure of trip %d: %w", trip.ID, err)
		}
	}
	if trip.ArrivalAt.After(now) {
		if err := l.tasks.Schedule(ctx, arriveKey(trip.ID), TaskTripArrive, trip.ID, trip.ArrivalAt); err != nil {
			return fmt.Errorf("schedule arrival of trip %d: %w", trip.ID, err)
		}
	}
	return nil
}

// ResumeStatus returns the status a delayed trip should re-enter:
// SCHEDULED while its departure is still ahead, IN_PROGRESS once it
// has passed.
func (l *Lifecycle) ResumeStatus(trip *model.Trip) string {
	if trip.DepartureAt.After(l.now().UTC()) {
		return model.TripScheduled
	}
	return model.TripInProgress
}

// Rearm re-derives the transitions a trip still owes from its status
// and schedule.  A depart task can fire as a stale no-op while the
// trip sits DELAYED and is consumed in the process, so neither resume
// nor reconcile may assume any task survived: a SCHEDULED trip gets
// both tasks back, an IN_PROGRESS trip only its arrival, and overdue
// instants are clamped to now so they fire immediately.
func (l *Lifecycle) Rearm(ctx context.Context, trip *model.Trip) error {
	now := l.now().UTC()
	if trip.Status == model.TripScheduled {
		dep := trip.DepartureAt
		if !dep.After(now) {
			dep = now
		}
		if err := l.tasks.Schedule(ctx, departKey(trip.ID), TaskTripDepart, trip.ID, dep); err != nil {
			return fmt.Errorf("schedule departure of trip %d: %w", trip.ID, err)
		}
	}
	arr := trip.ArrivalAt
	if !arr.After(now) {
		arr = now
	}
	if err := l.tasks.Schedule(ctx, arriveKey(trip.ID), TaskTripArrive, trip.ID, arr); err != nil {
		return fmt.Errorf("schedule arrival of trip %d: %w", trip.ID, err)
	}
	return nil
}

// Reconcile walks every trip that still owes a time-driven transition
// and re-derives its deferred tasks.  Task rows normally survive
// restarts on their own, but a trip edited straight in the database or
// a crash between the trip insert and the task upsert leaves none;
// scheduling is an upsert, so running this on every boot is idempotent.
func (l *Lifecycle) Reconcile(ctx context.Context) error {
	trips, err := l.trips.ListUnfinished(ctx)
	if err != nil {
		return err
	}
	for i := range trips {
		if err := l.Rearm(ctx, &trips[i]); err != nil {
			return err
		}
	}
	return nil
}

// Deregister removes any pending transitions for a trip.  Missing
// tasks are not an error; cancellation after a cancel or delete must
// succeed regardless of how far the trip already advanced.
func (l *Lifecycle) Deregister(ctx context.Context, tripID uint64) error {
	if err := l.tasks.Cancel(ctx, departKey(tripID)); err != nil {
		return fmt.Errorf("cancel departure of trip %d: %w", tripID, err)
	}
	if err := l.tasks.Cancel(ctx, arriveKey(tripID)); err != nil {
		return fmt.Errorf("cancel arrival of trip %d: %w", tripID, err)
	}
	return nil
}

// HandleDepart moves a SCHEDULED trip to IN_PROGRESS.  It is invoked
// by the scheduler at departure time and again after restarts for
// overdue tasks, so every outcome other than a lookup failure is
// treated as done.
func (l *Lifecycle) HandleDepart(ctx context.Context, tripID uint64) error {
	return l.advance(ctx, tripID, model.TripScheduled, model.TripInProgress)
}

// HandleArrive moves an IN_PROGRESS trip to COMPLETED.
func (l *Lifecycle) HandleArrive(ctx context.Context, tripID uint64) error {
	return l.advance(ctx, tripID, model.TripInProgress, model.TripCompleted)
}

func (l *Lifecycle) advance(ctx context.Context, tripID uint64, from, to string) error {
	ok, err := l.trips.TryUpdateStatus(ctx, tripID, from, to)
	if err != nil {
		if errors.Is(err, repository.ErrTripNotFound) {
			// Deleted between scheduling and firing; nothing to do.
			return nil
		}
		return fmt.Errorf("advance trip %d to %s: %w", tripID, to, err)
	}
	if !ok {
		// Already advanced, cancelled or delayed; the task is stale.
		log.Printf("lifecycle: trip %d not in %s, skipping transition to %s", tripID, from, to)
		return nil
	}

	trip, err := l.trips.GetByID(ctx, tripID)
	if err != nil {
		// The transition itself committed; only the event is lost.
		log.Printf("lifecycle: reload trip %d after transition: %v", tripID, err)
		return nil
	}
	l.events.PublishTripEvent(ctx, queue.TripEvent{
		Kind:           "status_changed",
		TripID:         trip.ID,
		RouteID:        trip.RouteID,
		Status:         trip.Status,
		DepartureAt:    trip.DepartureAt.UTC().Format(time.RFC3339),
		ArrivalAt:      trip.ArrivalAt.UTC().Format(time.RFC3339),
		Price:          trip.Price,
		BookedSeats:    trip.BookedSeats,
		AvailableSeats: trip.AvailableSeats,
	})
	return nil
}
