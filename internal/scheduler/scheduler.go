// Package scheduler runs keyed deferred tasks at wall-clock instants.
// Tasks are persisted through a store so they survive restarts; the
// in-process part is a timer per task.  Handlers must be idempotent:
// after a crash between firing and deleting the row, the task fires
// again on the next boot.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/andikaw/bus-ticketing/internal/repository"
)

// retryDelay is how long a failed handler waits before the task is
// re-armed.
const retryDelay = 30 * time.Second

// handlerTimeout bounds one handler invocation.
const handlerTimeout = 15 * time.Second

// TaskStore is the persistence surface of the scheduler.
// *repository.TaskRepo satisfies it.
type TaskStore interface {
	Upsert(ctx context.Context, t repository.DeferredTask) error
	Delete(ctx context.Context, taskKey string) error
	ListAll(ctx context.Context) ([]repository.DeferredTask, error)
}

// Handler executes one task kind.  It receives the trip the task was
// registered for.
type Handler func(ctx context.Context, tripID uint64) error

// Scheduler arms one timer per pending task and dispatches to the
// handler registered for the task's kind.  Scheduling the same key
// again replaces both the row and the timer.
type Scheduler struct {
	store    TaskStore
	handlers map[string]Handler

	mu     sync.Mutex
	timers map[string]*time.Timer
	now    func() time.Time
}

var _ TaskStore = (*repository.TaskRepo)(nil)

// New constructs a scheduler over the given store.  Handlers are
// registered before Reload is called.
func New(store TaskStore) *Scheduler {
	return &Scheduler{
		store:    store,
		handlers: make(map[string]Handler),
		timers:   make(map[string]*time.Timer),
		now:      time.Now,
	}
}

// RegisterHandler binds a task kind to its handler.  Not safe to call
// concurrently with Schedule or Reload; wire handlers during startup.
func (s *Scheduler) RegisterHandler(kind string, h Handler) {
	s.handlers[kind] = h
}

// Schedule persists a task and arms its timer.  An existing task under
// the same key is replaced.  A fire time already in the past fires as
// soon as the timer goroutine runs.
func (s *Scheduler) Schedule(ctx context.Context, key, kind string, tripID uint64, at time.Time) error {
	task := repository.DeferredTask{TaskKey: key, Kind: kind, TripID: tripID, FireAt: at.UTC()}
	if err := s.store.Upsert(ctx, task); err != nil {
		return err
	}
	s.arm(task)
	return nil
}

// Cancel removes a task's row and disarms its timer.  Cancelling a key
// that was never scheduled, or that already fired, is a no-op.
func (s *Scheduler) Cancel(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}
	s.mu.Lock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
	s.mu.Unlock()
	return nil
}

// Reload arms a timer for every persisted task.  Called once at boot;
// overdue tasks fire immediately.
func (s *Scheduler) Reload(ctx context.Context) error {
	tasks, err := s.store.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		s.arm(t)
	}
	if len(tasks) > 0 {
		log.Printf("scheduler: reloaded %d pending tasks", len(tasks))
	}
	return nil
}

func (s *Scheduler) arm(task repository.DeferredTask) {
	delay := task.FireAt.Sub(s.now().UTC())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.timers[task.TaskKey]; ok {
		old.Stop()
	}
	s.timers[task.TaskKey] = time.AfterFunc(delay, func() { s.fire(task) })
}

func (s *Scheduler) fire(task repository.DeferredTask) {
	s.mu.Lock()
	delete(s.timers, task.TaskKey)
	s.mu.Unlock()

	h, ok := s.handlers[task.Kind]
	if !ok {
		log.Printf("scheduler: no handler for kind %q, dropping task %s", task.Kind, task.TaskKey)
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		if err := s.store.Delete(ctx, task.TaskKey); err != nil {
			log.Printf("scheduler: delete task %s: %v", task.TaskKey, err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if err := h(ctx, task.TripID); err != nil {
		log.Printf("scheduler: task %s failed: %v; retrying in %s", task.TaskKey, err, retryDelay)
		retry := task
		retry.FireAt = s.now().UTC().Add(retryDelay)
		s.arm(retry)
		return
	}
	if err := s.store.Delete(ctx, task.TaskKey); err != nil {
		// The handler is idempotent, so a stale row only costs a
		// redundant fire after the next boot.
		log.Printf("scheduler: delete task %s: %v", task.TaskKey, err)
	}
}
