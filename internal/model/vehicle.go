package model

import "time"

// Vehicle operational statuses.  A vehicle under maintenance is never
// assignable to a trip regardless of its schedule.
const (
	VehicleAvailable   = "AVAILABLE"   // vehicle may be assigned to trips
	VehicleMaintenance = "MAINTENANCE" // vehicle is out of service
)

// Vehicle represents a single bus in the fleet.  Its seat list defines
// the sellable inventory; SeatCount is a fallback used when a vehicle
// was registered without an explicit seat layout.  This struct
// corresponds to a row in the `vehicles` table.
//
// Fields:
//  ID          – primary key identifier.
//  PlateNumber – unique registration plate.
//  Name        – fleet name or model description.
//  SeatCount   – declared capacity, used when no seats rows exist.
//  Status      – operational status (AVAILABLE, MAINTENANCE).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Vehicle struct {
	ID          uint64    // vehicles.id
	PlateNumber string    // vehicles.plate_number
	Name        string    // vehicles.name
	SeatCount   uint32    // vehicles.seat_count
	Status      string    // vehicles.status
	CreatedAt   time.Time // vehicles.created_at
	UpdatedAt   time.Time // vehicles.updated_at
}
