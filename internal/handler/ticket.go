package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/andikaw/bus-ticketing/internal/middleware"
	"github.com/andikaw/bus-ticketing/internal/service"
)

// TicketHandler exposes the passenger booking endpoints and the payment
// gateway callback.
type TicketHandler struct {
	Reservations *service.ReservationService
}

func NewTicketHandler(r *service.ReservationService) *TicketHandler {
	return &TicketHandler{Reservations: r}
}

// ----- DTOs -----

type bookReq struct {
	TripID        uint64 `json:"trip_id"`
	SeatID        uint64 `json:"seat_id"`
	PaymentMethod string `json:"payment_method"`
}

type transferReq struct {
	TripID uint64 `json:"trip_id"`
	SeatID uint64 `json:"seat_id"`
}

type paymentCallbackReq struct {
	TicketID uint64 `json:"ticket_id"`
	Status   string `json:"status"` // PAID | FAILED
}

// Book holds a seat and creates the PENDING ticket.
func (h *TicketHandler) Book(c echo.Context) error {
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TripID == 0 || req.SeatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "trip_id and seat_id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ticket, err := h.Reservations.Book(ctx, middleware.UserID(c), req.TripID, req.SeatID, req.PaymentMethod)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, ticket)
}

// Confirm settles the caller's PENDING ticket as paid.
func (h *TicketHandler) Confirm(c echo.Context) error {
	id := pathID(c, "id")
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ticket, err := h.Reservations.Confirm(ctx, middleware.UserID(c), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ticket)
}

// Abandon fails the caller's PENDING ticket and releases the seat.
func (h *TicketHandler) Abandon(c echo.Context) error {
	id := pathID(c, "id")
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ticket, err := h.Reservations.FailTicket(ctx, middleware.UserID(c), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ticket)
}

// Transfer moves the caller's confirmed ticket to a new trip and seat.
func (h *TicketHandler) Transfer(c echo.Context) error {
	id := pathID(c, "id")
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var req transferReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TripID == 0 || req.SeatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "trip_id and seat_id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	next, err := h.Reservations.Transfer(ctx, middleware.UserID(c), id, req.TripID, req.SeatID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, next)
}

// Get returns one of the caller's tickets.
func (h *TicketHandler) Get(c echo.Context) error {
	id := pathID(c, "id")
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ticket, err := h.Reservations.GetForUser(ctx, middleware.UserID(c), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ticket)
}

// List returns all of the caller's tickets, newest first.
func (h *TicketHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	tickets, err := h.Reservations.ListForUser(ctx, middleware.UserID(c))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": tickets})
}

// PaymentCallback settles a ticket on behalf of the payment gateway.
// Gateways retry aggressively; a callback for an already settled ticket
// returns 409 and must not be retried further.
func (h *TicketHandler) PaymentCallback(c echo.Context) error {
	var req paymentCallbackReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TicketID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_id required"})
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status != "PAID" && status != "FAILED" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be PAID or FAILED"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ticket, err := h.Reservations.HandlePaymentCallback(ctx, req.TicketID, status == "PAID")
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ticket)
}
