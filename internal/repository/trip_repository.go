// Package repository contains data access logic for the scheduling and
// ticketing domain. This file defines repository methods for trips. A
// Trip is one dated, timed instance of a route; its vehicle assignments
// are stored in the trip_vehicles join table and populated on read.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/andikaw/bus-ticketing/internal/model"
)

// ErrTripNotFound indicates that a trip was not located in the DB.
var ErrTripNotFound = errors.New("trip not found")

// TripRepo manages persistence for trips.
type TripRepo struct {
	db *sql.DB
}

// NewTripRepo constructs a TripRepo with the given DB handle.
func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{db: db} }

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *TripRepo) DB() *sql.DB {
	return r.db
}

const tripColumns = `t.id, t.route_id, t.departure_at, t.arrival_at, t.status, t.price,
	t.booked_seats, t.available_seats, t.driver, t.conductor,
	t.is_recurring, t.recur_days, t.recur_until, t.deleted_at, t.created_at, t.updated_at`

func scanTrip(row interface {
	Scan(dest ...interface{}) error
}) (*model.Trip, error) {
	var t model.Trip
	var conductor sql.NullString
	var recurUntil, deletedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.RouteID, &t.DepartureAt, &t.ArrivalAt, &t.Status, &t.Price,
		&t.BookedSeats, &t.AvailableSeats, &t.Driver, &conductor,
		&t.IsRecurring, &t.RecurDays, &recurUntil, &deletedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if conductor.Valid {
		t.Conductor = conductor.String
	}
	if recurUntil.Valid {
		ru := recurUntil.Time
		t.RecurUntil = &ru
	}
	if deletedAt.Valid {
		da := deletedAt.Time
		t.DeletedAt = &da
	}
	return &t, nil
}

// CreateTx inserts a new trip and its vehicle assignments using the
// provided transaction.  On success the generated ID and DB-default
// fields are populated on the given Trip.  The caller must commit or
// roll back the transaction.
func (r *TripRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Trip) error {
	const q = `INSERT INTO trips
	           (route_id, departure_at, arrival_at, status, price, booked_seats, available_seats,
	            driver, conductor, is_recurring, recur_days, recur_until)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var conductor interface{}
	if t.Conductor != "" {
		conductor = t.Conductor
	}
	var recurUntil interface{}
	if t.RecurUntil != nil {
		recurUntil = t.RecurUntil.UTC()
	}
	res, err := tx.ExecContext(ctx, q,
		t.RouteID, t.DepartureAt.UTC(), t.ArrivalAt.UTC(), t.Status, t.Price,
		t.BookedSeats, t.AvailableSeats, t.Driver, conductor,
		t.IsRecurring, t.RecurDays, recurUntil,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	if err := r.replaceVehiclesTx(ctx, tx, t.ID, t.VehicleIDs); err != nil {
		return err
	}
	// Read the row back to populate timestamps and defaults.
	sel := `SELECT ` + tripColumns + ` FROM trips t WHERE t.id = ?`
	created, err := scanTrip(tx.QueryRowContext(ctx, sel, t.ID))
	if err != nil {
		return err
	}
	vehicleIDs := t.VehicleIDs
	*t = *created
	t.VehicleIDs = vehicleIDs
	return nil
}

// Create inserts a new trip inside its own transaction.
func (r *TripRepo) Create(ctx context.Context, t *model.Trip) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := r.CreateTx(ctx, tx, t); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// replaceVehiclesTx rewrites the trip_vehicles rows for a trip,
// preserving assignment order via the position column.
func (r *TripRepo) replaceVehiclesTx(ctx context.Context, tx *sql.Tx, tripID uint64, vehicleIDs []uint64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM trip_vehicles WHERE trip_id = ?`, tripID); err != nil {
		return err
	}
	if len(vehicleIDs) == 0 {
		return nil
	}
	query := `INSERT INTO trip_vehicles (trip_id, vehicle_id, position) VALUES `
	args := make([]interface{}, 0, len(vehicleIDs)*3)
	for i, vid := range vehicleIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, tripID, vid, i)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// loadVehicleIDs populates the ordered vehicle assignment list for a
// set of trips in a single query.
func (r *TripRepo) loadVehicleIDs(ctx context.Context, trips []*model.Trip) error {
	if len(trips) == 0 {
		return nil
	}
	index := make(map[uint64]*model.Trip, len(trips))
	placeholders := make([]string, 0, len(trips))
	args := make([]interface{}, 0, len(trips))
	for _, t := range trips {
		index[t.ID] = t
		placeholders = append(placeholders, "?")
		args = append(args, t.ID)
	}
	query := `SELECT trip_id, vehicle_id FROM trip_vehicles
	          WHERE trip_id IN (` + strings.Join(placeholders, ",") + `)
	          ORDER BY trip_id, position`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var tripID, vehicleID uint64
		if err := rows.Scan(&tripID, &vehicleID); err != nil {
			return err
		}
		if t, ok := index[tripID]; ok {
			t.VehicleIDs = append(t.VehicleIDs, vehicleID)
		}
	}
	return rows.Err()
}

// GetByID retrieves a trip by its ID including its vehicle assignments.
// It returns ErrTripNotFound when there is no matching row.  Soft
// deleted trips are still returned so that existing tickets can keep
// resolving their itinerary.
func (r *TripRepo) GetByID(ctx context.Context, id uint64) (*model.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips t WHERE t.id = ?`
	t, err := scanTrip(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	if err := r.loadVehicleIDs(ctx, []*model.Trip{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// FindActiveByVehiclesOn returns all live trips that reference any of
// the given vehicles and could occupy them on the target date: trips
// departing on the date itself, plus trips that departed the previous
// day and arrive on the date (cross-midnight carry-over).  Cancelled,
// completed and soft-deleted trips never occupy a vehicle.  When
// excludeID is non-zero that trip is omitted, which lets an update
// re-validate a trip against everyone but itself.
func (r *TripRepo) FindActiveByVehiclesOn(ctx context.Context, vehicleIDs []uint64, date time.Time, excludeID uint64) ([]model.Trip, error) {
	if len(vehicleIDs) == 0 {
		return nil, nil
	}
	day := date.UTC().Format("2006-01-02")
	prev := date.UTC().AddDate(0, 0, -1).Format("2006-01-02")

	placeholders := make([]string, 0, len(vehicleIDs))
	args := make([]interface{}, 0, len(vehicleIDs)+4)
	for _, vid := range vehicleIDs {
		placeholders = append(placeholders, "?")
		args = append(args, vid)
	}
	query := `SELECT DISTINCT ` + tripColumns + `
	          FROM trips t
	          JOIN trip_vehicles tv ON tv.trip_id = t.id
	          WHERE tv.vehicle_id IN (` + strings.Join(placeholders, ",") + `)
	            AND t.status NOT IN (?, ?)
	            AND t.deleted_at IS NULL
	            AND (DATE(t.departure_at) = ?
	                 OR (DATE(t.departure_at) = ? AND DATE(t.arrival_at) = ?))`
	args = append(args, model.TripCancelled, model.TripCompleted, day, prev, day)
	if excludeID != 0 {
		query += ` AND t.id <> ?`
		args = append(args, excludeID)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ptrs []*model.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadVehicleIDs(ctx, ptrs); err != nil {
		return nil, err
	}
	result := make([]model.Trip, 0, len(ptrs))
	for _, t := range ptrs {
		result = append(result, *t)
	}
	return result, nil
}

// UpdateSchedule rewrites a trip's mutable schedule fields (times,
// price, crew, vehicle assignments, seat totals) inside one
// transaction.  Status is not touched here; status changes go through
// TryUpdateStatus.
func (r *TripRepo) UpdateSchedule(ctx context.Context, t *model.Trip) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `UPDATE trips
	           SET departure_at = ?, arrival_at = ?, price = ?, driver = ?, conductor = ?,
	               booked_seats = ?, available_seats = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND deleted_at IS NULL`
	var conductor interface{}
	if t.Conductor != "" {
		conductor = t.Conductor
	}
	res, err := tx.ExecContext(ctx, q,
		t.DepartureAt.UTC(), t.ArrivalAt.UTC(), t.Price, t.Driver, conductor,
		t.BookedSeats, t.AvailableSeats, t.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "gone" from "identical values": MySQL reports zero
		// affected rows for both, so check existence separately.
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM trips WHERE id = ? AND deleted_at IS NULL`, t.ID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrTripNotFound
			}
			return err
		}
	}
	if err := r.replaceVehiclesTx(ctx, tx, t.ID, t.VehicleIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// TryUpdateStatus atomically moves a trip from the expected status to
// the next one.  It returns true when the update claimed the row and
// false otherwise.  Deferred depart/arrive transitions rely on the
// false case being a silent no-op.
func (r *TripRepo) TryUpdateStatus(ctx context.Context, id uint64, expected, next string) (bool, error) {
	const q = `UPDATE trips SET status = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status = ? AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, next, id, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SoftDelete marks a trip as deleted without removing the row, so that
// tickets referencing it keep a resolvable itinerary.  Already deleted
// trips return ErrTripNotFound.
func (r *TripRepo) SoftDelete(ctx context.Context, id uint64) error {
	const q = `UPDATE trips SET deleted_at = UTC_TIMESTAMP(), updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTripNotFound
	}
	return nil
}

// ListUpcomingByRoute returns live scheduled trips on a route departing
// at or after the given instant, soonest first.
func (r *TripRepo) ListUpcomingByRoute(ctx context.Context, routeID uint64, from time.Time) ([]model.Trip, error) {
	q := `SELECT ` + tripColumns + `
	      FROM trips t
	      WHERE t.route_id = ? AND t.departure_at >= ? AND t.status = ?
	        AND t.deleted_at IS NULL
	      ORDER BY t.departure_at`
	rows, err := r.db.QueryContext(ctx, q, routeID, from.UTC(), model.TripScheduled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ptrs []*model.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadVehicleIDs(ctx, ptrs); err != nil {
		return nil, err
	}
	result := make([]model.Trip, 0, len(ptrs))
	for _, t := range ptrs {
		result = append(result, *t)
	}
	return result, nil
}

// ListUnfinished returns non-deleted trips that still owe a
// time-driven transition: SCHEDULED and IN_PROGRESS rows, soonest
// departure first.  The lifecycle walks them on boot to re-derive its
// deferred tasks; overdue trips are included so stuck rows heal.
func (r *TripRepo) ListUnfinished(ctx context.Context) ([]model.Trip, error) {
	q := `SELECT ` + tripColumns + `
	      FROM trips t
	      WHERE t.status IN (?, ?) AND t.deleted_at IS NULL
	      ORDER BY t.departure_at`
	rows, err := r.db.QueryContext(ctx, q, model.TripScheduled, model.TripInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}
