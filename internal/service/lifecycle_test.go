package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andikaw/bus-ticketing/internal/model"
)

func newLifecycleAt(trips *fakeTrips, tasks *fakeScheduler, now time.Time) (*Lifecycle, *fakePublisher) {
	pub := &fakePublisher{}
	l := NewLifecycle(trips, tasks, pub)
	l.now = func() time.Time { return now }
	return l, pub
}

func TestInitialStatus(t *testing.T) {
	now := at(2026, time.September, 10, 12, 0)
	l, _ := newLifecycleAt(newFakeTrips(), newFakeScheduler(), now)

	cases := []struct {
		name    string
		dep, ar time.Time
		want    string
	}{
		{"future trip is scheduled", now.Add(2 * time.Hour), now.Add(6 * time.Hour), model.TripScheduled},
		{"departed trip is in progress", now.Add(-time.Hour), now.Add(3 * time.Hour), model.TripInProgress},
		{"finished trip is completed", now.Add(-6 * time.Hour), now.Add(-2 * time.Hour), model.TripCompleted},
		{"departing this instant is in progress", now, now.Add(4 * time.Hour), model.TripInProgress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, l.InitialStatus(tc.dep, tc.ar))
		})
	}
}

func TestRegisterSchedulesOnlyFutureTransitions(t *testing.T) {
	now := at(2026, time.September, 10, 12, 0)
	tasks := newFakeScheduler()
	l, _ := newLifecycleAt(newFakeTrips(), tasks, now)

	// Already departed, not yet arrived: only the arrival is pending.
	trip := &model.Trip{ID: 7, DepartureAt: now.Add(-time.Hour), ArrivalAt: now.Add(3 * time.Hour)}
	require.NoError(t, l.Register(context.Background(), trip))

	_, hasDepart := tasks.scheduled["trip:7:depart"]
	assert.False(t, hasDepart)
	assert.Equal(t, trip.ArrivalAt, tasks.scheduled["trip:7:arrive"])
}

func TestReconcileRearmsLiveTrips(t *testing.T) {
	now := at(2026, time.September, 10, 12, 0)
	trips := newFakeTrips()
	tasks := newFakeScheduler()
	l, _ := newLifecycleAt(trips, tasks, now)

	// A future SCHEDULED trip, an under-way trip whose arrival is
	// overdue, and rows reconcile must skip: completed, cancelled,
	// soft-deleted.
	trips.add(model.Trip{ID: 1, Status: model.TripScheduled,
		DepartureAt: now.Add(4 * time.Hour), ArrivalAt: now.Add(8 * time.Hour)})
	trips.add(model.Trip{ID: 2, Status: model.TripInProgress,
		DepartureAt: now.Add(-6 * time.Hour), ArrivalAt: now.Add(-time.Hour)})
	trips.add(model.Trip{ID: 3, Status: model.TripCompleted,
		DepartureAt: now.Add(-8 * time.Hour), ArrivalAt: now.Add(6 * time.Hour)})
	trips.add(model.Trip{ID: 4, Status: model.TripCancelled,
		DepartureAt: now.Add(4 * time.Hour), ArrivalAt: now.Add(8 * time.Hour)})
	deleted := now.Add(-time.Minute)
	trips.add(model.Trip{ID: 5, Status: model.TripScheduled, DeletedAt: &deleted,
		DepartureAt: now.Add(4 * time.Hour), ArrivalAt: now.Add(8 * time.Hour)})

	require.NoError(t, l.Reconcile(context.Background()))

	assert.Equal(t, now.Add(4*time.Hour), tasks.scheduled["trip:1:depart"])
	assert.Equal(t, now.Add(8*time.Hour), tasks.scheduled["trip:1:arrive"])
	// Trip 2 departed long ago; only its overdue arrival is re-armed,
	// clamped to now so it fires immediately.
	_, hasDepart := tasks.scheduled["trip:2:depart"]
	assert.False(t, hasDepart)
	assert.Equal(t, now, tasks.scheduled["trip:2:arrive"])
	assert.Len(t, tasks.scheduled, 3)
}

func TestDeregisterDropsBothTransitions(t *testing.T) {
	now := at(2026, time.September, 10, 12, 0)
	tasks := newFakeScheduler()
	l, _ := newLifecycleAt(newFakeTrips(), tasks, now)

	trip := &model.Trip{ID: 8, DepartureAt: now.Add(time.Hour), ArrivalAt: now.Add(5 * time.Hour)}
	require.NoError(t, l.Register(context.Background(), trip))
	require.NoError(t, l.Deregister(context.Background(), 8))

	assert.Empty(t, tasks.scheduled)
}

func TestHandleDepartAdvancesAndPublishes(t *testing.T) {
	now := at(2026, time.September, 10, 12, 0)
	trips := newFakeTrips()
	trip := trips.add(model.Trip{
		RouteID:     3,
		DepartureAt: now,
		ArrivalAt:   now.Add(4 * time.Hour),
		Status:      model.TripScheduled,
	})
	l, pub := newLifecycleAt(trips, newFakeScheduler(), now)

	require.NoError(t, l.HandleDepart(context.Background(), trip.ID))

	got, err := trips.GetByID(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TripInProgress, got.Status)
	require.Len(t, pub.tripEvents, 1)
	assert.Equal(t, "status_changed", pub.tripEvents[0].Kind)
	assert.Equal(t, model.TripInProgress, pub.tripEvents[0].Status)
}

func TestHandleDepartIsIdempotent(t *testing.T) {
	now := at(2026, time.September, 10, 12, 0)
	trips := newFakeTrips()
	trip := trips.add(model.Trip{DepartureAt: now, ArrivalAt: now.Add(4 * time.Hour), Status: model.TripScheduled})
	l, pub := newLifecycleAt(trips, newFakeScheduler(), now)

	require.NoError(t, l.HandleDepart(context.Background(), trip.ID))
	// Second fire finds the trip already IN_PROGRESS and does nothing.
	require.NoError(t, l.HandleDepart(context.Background(), trip.ID))

	got, _ := trips.GetByID(context.Background(), trip.ID)
	assert.Equal(t, model.TripInProgress, got.Status)
	assert.Len(t, pub.tripEvents, 1)
}

func TestHandleDepartSkipsCancelledTrip(t *testing.T) {
	now := at(2026, time.September, 10, 12, 0)
	trips := newFakeTrips()
	trip := trips.add(model.Trip{DepartureAt: now, ArrivalAt: now.Add(4 * time.Hour), Status: model.TripCancelled})
	l, pub := newLifecycleAt(trips, newFakeScheduler(), now)

	require.NoError(t, l.HandleDepart(context.Background(), trip.ID))

	got, _ := trips.GetByID(context.Background(), trip.ID)
	assert.Equal(t, model.TripCancelled, got.Status)
	assert.Empty(t, pub.tripEvents)
}

func TestHandleArriveToleratesMissingTrip(t *testing.T) {
	now := at(2026, time.September, 10, 12, 0)
	l, _ := newLifecycleAt(newFakeTrips(), newFakeScheduler(), now)
	assert.NoError(t, l.HandleArrive(context.Background(), 404))
}
