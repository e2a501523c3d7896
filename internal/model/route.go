package model

import "time"

// Route represents a fixed origin/destination pair served by the
// operator.  Trips are scheduled instances of a route.  This struct
// corresponds to a row in the `routes` table.
//
// Fields:
//  ID          – primary key identifier.
//  Origin      – departure terminal name.
//  Destination – arrival terminal name.
//  DistanceKM  – route length in kilometres.
//  BasePrice   – default ticket price for trips on this route.
//  IsActive    – whether the route is currently operated.
//  CreatedAt   – timestamp when the route was created.
//  UpdatedAt   – timestamp of last update.
type Route struct {
	ID          uint64    // routes.id
	Origin      string    // routes.origin
	Destination string    // routes.destination
	DistanceKM  float64   // routes.distance_km
	BasePrice   int64     // routes.base_price
	IsActive    bool      // routes.is_active
	CreatedAt   time.Time // routes.created_at
	UpdatedAt   time.Time // routes.updated_at
}
