package service

import (
	"context"
	"time"

	"github.com/andikaw/bus-ticketing/internal/model"
)

// Conflict reasons reported by the checker.  A vehicle appears at most
// once per distinct reason in a result.
const (
	ReasonVehicleMissing     = "does not exist"
	ReasonVehicleMaintenance = "under maintenance"
	ReasonScheduleConflict   = "schedule conflict"
)

// VehicleConflict names one rejected vehicle and why.
type VehicleConflict struct {
	VehicleID uint64 `json:"vehicle_id"`
	Reason    string `json:"reason"`
}

// AvailabilityResult partitions candidate vehicles into those that can
// take the proposed trip and those that cannot.  Conflicts are data,
// not errors: callers proceed with the assignable subset.
type AvailabilityResult struct {
	Assignable []uint64          `json:"assignable"`
	Conflicts  []VehicleConflict `json:"conflicts"`
}

// ConflictChecker decides whether vehicles can be assigned to a new
// trip without overlapping their existing assignments, including trips
// that cross midnight into the target date.
type ConflictChecker struct {
	vehicles VehicleStore
	trips    TripStore
}

// NewConflictChecker constructs a checker over the given stores.
func NewConflictChecker(vehicles VehicleStore, trips TripStore) *ConflictChecker {
	return &ConflictChecker{vehicles: vehicles, trips: trips}
}

// minutesOfDay converts an instant to minutes since midnight UTC.
func minutesOfDay(t time.Time) int {
	t = t.UTC()
	return t.Hour()*60 + t.Minute()
}

// sameDate reports whether two instants fall on the same UTC calendar day.
func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// CheckAvailability partitions the candidate vehicles for a trip on the
// given date occupying [startMin, startMin+durationMin) minutes since
// midnight.  excludeTripID, when non-zero, is omitted from the
// candidate trips so a trip being edited does not conflict with itself.
// Only unrecoverable lookup failures return an error; every
// per-vehicle problem is reported in the result instead.
func (c *ConflictChecker) CheckAvailability(ctx context.Context, vehicleIDs []uint64, date time.Time, startMin, durationMin int, excludeTripID uint64) (AvailabilityResult, error) {
	var result AvailabilityResult

	resolved, err := c.vehicles.GetByIDs(ctx, vehicleIDs)
	if err != nil {
		return result, err
	}

	candidates := make([]uint64, 0, len(vehicleIDs))
	for _, id := range vehicleIDs {
		v, ok := resolved[id]
		if !ok {
			result.Conflicts = append(result.Conflicts, VehicleConflict{VehicleID: id, Reason: ReasonVehicleMissing})
			continue
		}
		if v.Status == model.VehicleMaintenance {
			result.Conflicts = append(result.Conflicts, VehicleConflict{VehicleID: id, Reason: ReasonVehicleMaintenance})
			continue
		}
		candidates = append(candidates, id)
	}
	if len(candidates) == 0 {
		return result, nil
	}

	existing, err := c.trips.FindActiveByVehiclesOn(ctx, candidates, date, excludeTripID)
	if err != nil {
		return result, err
	}

	newStart := startMin
	newEnd := startMin + durationMin

	conflicted := make(map[uint64]bool, len(candidates))
	for _, trip := range existing {
		if !c.occupies(trip, date, newStart, newEnd) {
			continue
		}
		for _, vid := range trip.VehicleIDs {
			conflicted[vid] = true
		}
	}

	for _, id := range candidates {
		if conflicted[id] {
			result.Conflicts = append(result.Conflicts, VehicleConflict{VehicleID: id, Reason: ReasonScheduleConflict})
		} else {
			result.Assignable = append(result.Assignable, id)
		}
	}
	return result, nil
}

// occupies reports whether an existing trip blocks the proposed
// [newStart, newEnd) window on the target date.  Intervals are
// half-open: touching endpoints never conflict.
func (c *ConflictChecker) occupies(trip model.Trip, date time.Time, newStart, newEnd int) bool {
	if sameDate(trip.DepartureAt, date) {
		existingStart := minutesOfDay(trip.DepartureAt)
		var existingEnd int
		if sameDate(trip.ArrivalAt, trip.DepartureAt) {
			existingEnd = minutesOfDay(trip.ArrivalAt)
		} else {
			// The trip rolls past midnight; it holds the vehicle from its
			// start through the end of the target date's clock.
			existingEnd = existingStart + trip.DurationMinutes()
		}
		return newStart < existingEnd && existingStart < newEnd
	}
	// Carry-over candidate: departed the previous day and arrives on the
	// target date.  The vehicle is busy until its arrival minute.
	return newStart < minutesOfDay(trip.ArrivalAt)
}
