package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andikaw/bus-ticketing/internal/repository"
)

type memStore struct {
	mu    sync.Mutex
	tasks map[string]repository.DeferredTask
}

func newMemStore() *memStore {
	return &memStore{tasks: map[string]repository.DeferredTask{}}
}

func (m *memStore) Upsert(_ context.Context, t repository.DeferredTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.TaskKey] = t
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, key)
	return nil
}

func (m *memStore) ListAll(_ context.Context) ([]repository.DeferredTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.DeferredTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[key]
	return ok
}

// recorder collects fired trip IDs and signals each fire.
type recorder struct {
	mu    sync.Mutex
	fired []uint64
	ch    chan uint64
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan uint64, 16)}
}

func (r *recorder) handle(_ context.Context, tripID uint64) error {
	r.mu.Lock()
	r.fired = append(r.fired, tripID)
	r.mu.Unlock()
	r.ch <- tripID
	return nil
}

func waitFire(t *testing.T, r *recorder) uint64 {
	t.Helper()
	select {
	case id := <-r.ch:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task to fire")
		return 0
	}
}

func TestScheduleFiresAndDeletesRow(t *testing.T) {
	store := newMemStore()
	rec := newRecorder()
	s := New(store)
	s.RegisterHandler("trip.depart", rec.handle)

	require.NoError(t, s.Schedule(context.Background(), "trip:1:depart", "trip.depart", 1, time.Now().Add(20*time.Millisecond)))
	assert.True(t, store.has("trip:1:depart"))

	assert.Equal(t, uint64(1), waitFire(t, rec))

	// The row is removed once the handler succeeds.
	assert.Eventually(t, func() bool { return !store.has("trip:1:depart") }, time.Second, 10*time.Millisecond)
}

func TestCancelStopsPendingTask(t *testing.T) {
	store := newMemStore()
	rec := newRecorder()
	s := New(store)
	s.RegisterHandler("trip.depart", rec.handle)

	require.NoError(t, s.Schedule(context.Background(), "trip:2:depart", "trip.depart", 2, time.Now().Add(time.Hour)))
	require.NoError(t, s.Cancel(context.Background(), "trip:2:depart"))

	assert.False(t, store.has("trip:2:depart"))
	select {
	case <-rec.ch:
		t.Fatal("cancelled task fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelUnknownKeyIsNoop(t *testing.T) {
	s := New(newMemStore())
	assert.NoError(t, s.Cancel(context.Background(), "trip:404:depart"))
}

func TestScheduleReplacesExistingTask(t *testing.T) {
	store := newMemStore()
	rec := newRecorder()
	s := New(store)
	s.RegisterHandler("trip.depart", rec.handle)

	// First far in the future, then rescheduled to fire immediately.
	require.NoError(t, s.Schedule(context.Background(), "trip:3:depart", "trip.depart", 3, time.Now().Add(time.Hour)))
	require.NoError(t, s.Schedule(context.Background(), "trip:3:depart", "trip.depart", 3, time.Now().Add(20*time.Millisecond)))

	assert.Equal(t, uint64(3), waitFire(t, rec))
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.fired, 1)
}

func TestReloadFiresOverdueTasks(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Upsert(context.Background(), repository.DeferredTask{
		TaskKey: "trip:4:arrive",
		Kind:    "trip.arrive",
		TripID:  4,
		FireAt:  time.Now().Add(-time.Hour), // overdue from a previous run
	}))

	rec := newRecorder()
	s := New(store)
	s.RegisterHandler("trip.arrive", rec.handle)
	require.NoError(t, s.Reload(context.Background()))

	assert.Equal(t, uint64(4), waitFire(t, rec))
	assert.Eventually(t, func() bool { return !store.has("trip:4:arrive") }, time.Second, 10*time.Millisecond)
}

func TestUnknownKindIsDropped(t *testing.T) {
	store := newMemStore()
	s := New(store)

	require.NoError(t, s.Schedule(context.Background(), "trip:5:depart", "trip.nonsense", 5, time.Now().Add(10*time.Millisecond)))
	assert.Eventually(t, func() bool { return !store.has("trip:5:depart") }, time.Second, 10*time.Millisecond)
}
