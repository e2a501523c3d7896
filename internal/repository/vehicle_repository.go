package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/andikaw/bus-ticketing/internal/model"
)

// ErrVehicleNotFound indicates that a vehicle was not located in the DB.
var ErrVehicleNotFound = errors.New("vehicle not found")

// VehicleRepo manages persistence for vehicles and their seat capacity.
// The reservation engine treats vehicles as read-only; fleet
// administration lives outside this service.
type VehicleRepo struct {
	db *sql.DB
}

// NewVehicleRepo constructs a VehicleRepo with the given DB handle.
func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

// GetByID retrieves a vehicle by its ID.  It returns ErrVehicleNotFound
// when there is no matching row.
func (r *VehicleRepo) GetByID(ctx context.Context, id uint64) (*model.Vehicle, error) {
	const q = `SELECT id, plate_number, name, seat_count, status, created_at, updated_at
	           FROM vehicles WHERE id = ?`
	var v model.Vehicle
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&v.ID, &v.PlateNumber, &v.Name, &v.SeatCount, &v.Status, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return &v, nil
}

// GetByIDs retrieves all vehicles whose IDs appear in the given slice.
// Missing IDs simply do not appear in the result; callers compare the
// result set against the request to report "does not exist" conflicts.
func (r *VehicleRepo) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Vehicle, error) {
	result := make(map[uint64]model.Vehicle, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	query := `SELECT id, plate_number, name, seat_count, status, created_at, updated_at
	          FROM vehicles WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var v model.Vehicle
		if err := rows.Scan(
			&v.ID, &v.PlateNumber, &v.Name, &v.SeatCount, &v.Status, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result[v.ID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CapacityByIDs returns the sellable seat capacity per vehicle.  The
// capacity is the number of seats rows when a layout exists, falling
// back to the declared seat_count column for vehicles registered
// without one.
func (r *VehicleRepo) CapacityByIDs(ctx context.Context, ids []uint64) (map[uint64]uint32, error) {
	caps := make(map[uint64]uint32, len(ids))
	if len(ids) == 0 {
		return caps, nil
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	in := strings.Join(placeholders, ",")
	query := `SELECT v.id, v.seat_count, COUNT(s.id)
	          FROM vehicles v
	          LEFT JOIN seats s ON s.vehicle_id = v.id
	          WHERE v.id IN (` + in + `)
	          GROUP BY v.id, v.seat_count`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var declared, laidOut uint32
		if err := rows.Scan(&id, &declared, &laidOut); err != nil {
			return nil, err
		}
		if laidOut > 0 {
			caps[id] = laidOut
		} else {
			caps[id] = declared
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return caps, nil
}
