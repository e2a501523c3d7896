package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/andikaw/bus-ticketing/internal/repository"
	"github.com/andikaw/bus-ticketing/internal/service"
)

// dbTimeout bounds a handler's downstream work per request.
const dbTimeout = 5 * time.Second

// reqCtx derives a bounded context from the request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// pathID parses a numeric path parameter.  Returns 0 when the value is
// missing or not a positive integer; callers treat 0 as a bad request.
func pathID(c echo.Context, name string) uint64 {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// writeErr translates engine and repository errors into JSON responses.
// Unrecognized errors become an opaque 500 so internals never leak.
func writeErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrRouteNotFound),
		errors.Is(err, repository.ErrVehicleNotFound),
		errors.Is(err, repository.ErrSeatNotFound),
		errors.Is(err, repository.ErrTripNotFound),
		errors.Is(err, repository.ErrTicketNotFound),
		errors.Is(err, repository.ErrPromotionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})

	case errors.Is(err, service.ErrSeatNotOnTrip),
		errors.Is(err, service.ErrBookingClosed),
		errors.Is(err, service.ErrTransferRouteMismatch),
		errors.Is(err, service.ErrTransferPriceMismatch):
		// Booking inside the payment window is a request the client
		// could have known was invalid, not a precondition race.
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})

	case errors.Is(err, service.ErrNotTicketOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})

	case errors.Is(err, repository.ErrSeatUnavailable),
		errors.Is(err, repository.ErrInvalidTransition),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, service.ErrTripNotBookable),
		errors.Is(err, service.ErrTransferNotAllowed),
		errors.Is(err, service.ErrTransferUsed),
		errors.Is(err, service.ErrAllVehiclesConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})

	case errors.Is(err, service.ErrTransferWindowClosed):
		return c.JSON(http.StatusPreconditionFailed, echo.Map{"error": err.Error()})

	case errors.Is(err, repository.ErrNoDefaultPromotion):
		// Deployment problem, not a client one.
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "pricing is misconfigured"})

	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
