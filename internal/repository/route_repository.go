package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/andikaw/bus-ticketing/internal/model"
)

// ErrRouteNotFound indicates that a route was not located in the DB.
var ErrRouteNotFound = errors.New("route not found")

// RouteRepo manages persistence for routes.  The reservation engine
// only reads routes; route administration itself lives outside this
// service.
type RouteRepo struct {
	db *sql.DB
}

// NewRouteRepo constructs a RouteRepo with the given DB handle.
func NewRouteRepo(db *sql.DB) *RouteRepo { return &RouteRepo{db: db} }

// GetByID retrieves a route by its ID.  It returns ErrRouteNotFound
// when there is no matching row.
func (r *RouteRepo) GetByID(ctx context.Context, id uint64) (*model.Route, error) {
	const q = `SELECT id, origin, destination, distance_km, base_price, is_active, created_at, updated_at
	           FROM routes WHERE id = ?`
	var rt model.Route
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&rt.ID, &rt.Origin, &rt.Destination, &rt.DistanceKM, &rt.BasePrice,
		&rt.IsActive, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}
	return &rt, nil
}

// ListActive returns all routes currently operated, ordered by origin
// then destination for deterministic output.
func (r *RouteRepo) ListActive(ctx context.Context) ([]model.Route, error) {
	const q = `SELECT id, origin, destination, distance_km, base_price, is_active, created_at, updated_at
	           FROM routes WHERE is_active = 1
	           ORDER BY origin, destination`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Route
	for rows.Next() {
		var rt model.Route
		if err := rows.Scan(
			&rt.ID, &rt.Origin, &rt.Destination, &rt.DistanceKM, &rt.BasePrice,
			&rt.IsActive, &rt.CreatedAt, &rt.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
