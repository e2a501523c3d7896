package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/andikaw/bus-ticketing/internal/model"
)

// ErrSeatNotFound is returned when a seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// SeatRepo provides read access to the seats table.  Seat status is the
// single-writer gate for the whole reservation machine: every status
// change goes through trySetSeatStatusTx inside a ticket transaction, a
// compare-and-set that names the expected current status and fails when
// the row already moved on.  Read-then-write on seat status is never
// permitted.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// GetByID retrieves a seat by its id.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
	const q = `SELECT id, vehicle_id, seat_number, status, created_at, updated_at
	           FROM seats WHERE id = ?`
	var s model.Seat
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&s.ID, &s.VehicleID, &s.SeatNumber, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByVehicle retrieves all seats of a vehicle ordered by seat number.
func (r *SeatRepo) ListByVehicle(ctx context.Context, vehicleID uint64) ([]model.Seat, error) {
	const q = `SELECT id, vehicle_id, seat_number, status, created_at, updated_at
	           FROM seats
	           WHERE vehicle_id = ?
	           ORDER BY seat_number`
	rows, err := r.db.QueryContext(ctx, q, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.VehicleID, &s.SeatNumber, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// trySetSeatStatusTx is the only write path for seat status: a
// compare-and-set naming the expected current status, run inside the
// ticket transactions.  It reports whether the update claimed the row.
func trySetSeatStatusTx(ctx context.Context, tx *sql.Tx, seatID uint64, expected, next string) (bool, error) {
	const q = `UPDATE seats SET status = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, next, seatID, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
