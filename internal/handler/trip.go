package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/andikaw/bus-ticketing/internal/model"
	"github.com/andikaw/bus-ticketing/internal/service"
)

// TripHandler exposes the operator scheduling endpoints.
type TripHandler struct {
	Trips   *service.TripService
	Checker *service.ConflictChecker
}

func NewTripHandler(trips *service.TripService, checker *service.ConflictChecker) *TripHandler {
	return &TripHandler{Trips: trips, Checker: checker}
}

// ----- DTOs -----

type tripReq struct {
	RouteID     uint64   `json:"route_id"`
	VehicleIDs  []uint64 `json:"vehicle_ids"`
	DepartureAt string   `json:"departure_at"` // RFC3339, UTC
	ArrivalAt   string   `json:"arrival_at"`   // RFC3339, UTC
	Price       int64    `json:"price"`
	Driver      string   `json:"driver"`
	Conductor   string   `json:"conductor"`
}

type generateReq struct {
	tripReq
	Weekdays []int  `json:"weekdays"` // 0=Sunday .. 6=Saturday
	Until    string `json:"until"`    // YYYY-MM-DD, inclusive
}

type availabilityReq struct {
	VehicleIDs  []uint64 `json:"vehicle_ids"`
	DepartureAt string   `json:"departure_at"`
	ArrivalAt   string   `json:"arrival_at"`
	ExcludeTrip uint64   `json:"exclude_trip_id"`
}

type tripResp struct {
	Trip      *model.Trip               `json:"trip"`
	Conflicts []service.VehicleConflict `json:"conflicts,omitempty"`
}

func (r tripReq) toInput() (service.TripInput, error) {
	dep, err := time.Parse(time.RFC3339, r.DepartureAt)
	if err != nil {
		return service.TripInput{}, err
	}
	arr, err := time.Parse(time.RFC3339, r.ArrivalAt)
	if err != nil {
		return service.TripInput{}, err
	}
	return service.TripInput{
		RouteID:     r.RouteID,
		VehicleIDs:  r.VehicleIDs,
		DepartureAt: dep,
		ArrivalAt:   arr,
		Price:       r.Price,
		Driver:      r.Driver,
		Conductor:   r.Conductor,
	}, nil
}

// Create schedules a new trip.  Vehicles that fail the conflict check
// are reported back; the trip is created with the remaining ones.
func (h *TripHandler) Create(c echo.Context) error {
	var req tripReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in, err := req.toInput()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "departure_at/arrival_at must be RFC3339"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	trip, avail, err := h.Trips.Create(ctx, in)
	if err != nil {
		if err == service.ErrAllVehiclesConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "conflicts": avail.Conflicts})
		}
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, tripResp{Trip: trip, Conflicts: avail.Conflicts})
}

// Update reschedules an existing trip.
func (h *TripHandler) Update(c echo.Context) error {
	id := pathID(c, "id")
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	var req tripReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in, err := req.toInput()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "departure_at/arrival_at must be RFC3339"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	trip, avail, err := h.Trips.Update(ctx, id, in)
	if err != nil {
		if err == service.ErrAllVehiclesConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "conflicts": avail.Conflicts})
		}
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, tripResp{Trip: trip, Conflicts: avail.Conflicts})
}

// Cancel marks a trip CANCELLED.
func (h *TripHandler) Cancel(c echo.Context) error {
	return h.statusChange(c, h.Trips.Cancel)
}

// Delay marks a trip DELAYED.
func (h *TripHandler) Delay(c echo.Context) error {
	return h.statusChange(c, h.Trips.MarkDelayed)
}

// Resume moves a DELAYED trip into IN_PROGRESS.
func (h *TripHandler) Resume(c echo.Context) error {
	return h.statusChange(c, h.Trips.Resume)
}

func (h *TripHandler) statusChange(c echo.Context, fn func(ctx context.Context, id uint64) (*model.Trip, error)) error {
	id := pathID(c, "id")
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	trip, err := fn(ctx, id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, tripResp{Trip: trip})
}

// Delete soft-deletes a trip.
func (h *TripHandler) Delete(c echo.Context) error {
	id := pathID(c, "id")
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Trips.Delete(ctx, id); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Generate expands a weekday recurrence into individual trips.
func (h *TripHandler) Generate(c echo.Context) error {
	var req generateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in, err := req.toInput()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "departure_at/arrival_at must be RFC3339"})
	}
	until, err := time.ParseInLocation("2006-01-02", req.Until, time.UTC)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "until must be YYYY-MM-DD"})
	}
	weekdays := make([]time.Weekday, 0, len(req.Weekdays))
	for _, d := range req.Weekdays {
		if d < 0 || d > 6 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "weekdays must be 0..6"})
		}
		weekdays = append(weekdays, time.Weekday(d))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	result, err := h.Trips.Generate(ctx, service.RecurrenceInput{
		TripInput: in,
		Weekdays:  weekdays,
		Until:     until,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

// CheckAvailability previews the conflict partition for a proposed
// schedule without creating anything.
func (h *TripHandler) CheckAvailability(c echo.Context) error {
	var req availabilityReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	dep, err := time.Parse(time.RFC3339, req.DepartureAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "departure_at must be RFC3339"})
	}
	arr, err := time.Parse(time.RFC3339, req.ArrivalAt)
	if err != nil || !arr.After(dep) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "arrival_at must be RFC3339 and after departure"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	dep = dep.UTC()
	startMin := dep.Hour()*60 + dep.Minute()
	result, err := h.Checker.CheckAvailability(ctx, req.VehicleIDs, dep, startMin, int(arr.Sub(dep)/time.Minute), req.ExcludeTrip)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
