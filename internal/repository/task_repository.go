package repository

import (
	"context"
	"database/sql"
	"time"
)

// DeferredTask is a persisted scheduler entry: a keyed status
// transition that must fire at a wall-clock instant.  Rows survive
// process restarts; the scheduler reloads all of them on boot.
type DeferredTask struct {
	TaskKey string    // deferred_tasks.task_key (e.g. "trip:42:depart")
	Kind    string    // deferred_tasks.kind ("trip.depart", "trip.arrive")
	TripID  uint64    // deferred_tasks.trip_id
	FireAt  time.Time // deferred_tasks.fire_at
}

// TaskRepo provides data access to the deferred_tasks table.
type TaskRepo struct {
	db *sql.DB
}

// NewTaskRepo constructs a TaskRepo with the given DB handle.
func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{db: db} }

// Upsert stores a deferred task, replacing any previous row with the
// same key.  Re-registering a trip's transitions after a schedule edit
// is therefore one statement per transition.
func (r *TaskRepo) Upsert(ctx context.Context, t DeferredTask) error {
	const q = `INSERT INTO deferred_tasks (task_key, kind, trip_id, fire_at)
	           VALUES (?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE kind = VALUES(kind), trip_id = VALUES(trip_id), fire_at = VALUES(fire_at)`
	_, err := r.db.ExecContext(ctx, q, t.TaskKey, t.Kind, t.TripID, t.FireAt.UTC())
	return err
}

// Delete removes a deferred task by key.  Deleting a key that does not
// exist is not an error.
func (r *TaskRepo) Delete(ctx context.Context, taskKey string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM deferred_tasks WHERE task_key = ?`, taskKey)
	return err
}

// ListAll returns every persisted deferred task.  The scheduler calls
// this once on boot to rebuild its in-memory timers; overdue tasks fire
// immediately and rely on the transition guards being idempotent.
func (r *TaskRepo) ListAll(ctx context.Context) ([]DeferredTask, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT task_key, kind, trip_id, fire_at FROM deferred_tasks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DeferredTask
	for rows.Next() {
		var t DeferredTask
		if err := rows.Scan(&t.TaskKey, &t.Kind, &t.TripID, &t.FireAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
