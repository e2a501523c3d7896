package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/andikaw/bus-ticketing/internal/repository"
	"github.com/andikaw/bus-ticketing/internal/service"
)

// PublicHandler exposes the unauthenticated browse endpoints: routes,
// upcoming trips, per-trip pricing and the seat map.  These are the
// routes fronted by the Redis response cache.
type PublicHandler struct {
	Routes   *repository.RouteRepo
	Trips    *repository.TripRepo
	Seats    *repository.SeatRepo
	Vehicles *repository.VehicleRepo
	Svc      *service.TripService
}

func NewPublicHandler(routes *repository.RouteRepo, trips *repository.TripRepo, seats *repository.SeatRepo, vehicles *repository.VehicleRepo, svc *service.TripService) *PublicHandler {
	return &PublicHandler{Routes: routes, Trips: trips, Seats: seats, Vehicles: vehicles, Svc: svc}
}

type seatPart struct {
	ID         uint64 `json:"id"`
	SeatNumber string `json:"seat_number"`
	Status     string `json:"status"`
}

type vehicleSeats struct {
	VehicleID uint64     `json:"vehicle_id"`
	Plate     string     `json:"plate_number"`
	Name      string     `json:"name"`
	Seats     []seatPart `json:"seats"`
}

// ListRoutes returns every active route.
func (h *PublicHandler) ListRoutes(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	routes, err := h.Routes.ListActive(ctx)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"routes": routes})
}

// ListTrips returns the upcoming trips of a route, soonest first.
func (h *PublicHandler) ListTrips(c echo.Context) error {
	routeID := pathID(c, "id")
	if routeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Routes.GetByID(ctx, routeID); err != nil {
		return writeErr(c, err)
	}
	trips, err := h.Trips.ListUpcomingByRoute(ctx, routeID, time.Now().UTC())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"trips": trips})
}

// GetTrip returns one trip together with the promotion its departure
// date resolves to and the resulting discounted price.
func (h *PublicHandler) GetTrip(c echo.Context) error {
	tripID := pathID(c, "id")
	if tripID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	trip, promo, finalPrice, err := h.Svc.PricePreview(ctx, tripID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"trip": trip,
		"promotion": echo.Map{
			"id":      promo.ID,
			"name":    promo.Name,
			"type":    promo.Type,
			"percent": promo.Percent,
		},
		"final_price": finalPrice,
	})
}

// GetTripSeats returns the seat map of a trip grouped by vehicle, with
// each seat's live reservation status.
func (h *PublicHandler) GetTripSeats(c echo.Context) error {
	tripID := pathID(c, "id")
	if tripID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	trip, err := h.Trips.GetByID(ctx, tripID)
	if err != nil {
		return writeErr(c, err)
	}
	vehicles, err := h.Vehicles.GetByIDs(ctx, trip.VehicleIDs)
	if err != nil {
		return writeErr(c, err)
	}

	out := make([]vehicleSeats, 0, len(trip.VehicleIDs))
	for _, vid := range trip.VehicleIDs {
		seats, err := h.Seats.ListByVehicle(ctx, vid)
		if err != nil {
			return writeErr(c, err)
		}
		vs := vehicleSeats{VehicleID: vid}
		if v, ok := vehicles[vid]; ok {
			vs.Plate = v.PlateNumber
			vs.Name = v.Name
		}
		for _, s := range seats {
			vs.Seats = append(vs.Seats, seatPart{ID: s.ID, SeatNumber: s.SeatNumber, Status: s.Status})
		}
		out = append(out, vs)
	}
	return c.JSON(http.StatusOK, echo.Map{"trip_id": tripID, "vehicles": out})
}
