package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/andikaw/bus-ticketing/internal/repository"
	"github.com/andikaw/bus-ticketing/internal/service"
)

func TestWriteErrStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"trip not found", repository.ErrTripNotFound, http.StatusNotFound},
		{"booking closed", service.ErrBookingClosed, http.StatusBadRequest},
		{"seat not on trip", service.ErrSeatNotOnTrip, http.StatusBadRequest},
		{"not ticket owner", service.ErrNotTicketOwner, http.StatusForbidden},
		{"seat unavailable", repository.ErrSeatUnavailable, http.StatusConflict},
		{"invalid transition", repository.ErrInvalidTransition, http.StatusConflict},
		{"transfer window closed", service.ErrTransferWindowClosed, http.StatusPreconditionFailed},
		{"no default promotion", repository.ErrNoDefaultPromotion, http.StatusInternalServerError},
	}

	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			assert.NoError(t, writeErr(c, tc.err))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}
