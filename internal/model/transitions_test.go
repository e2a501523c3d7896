package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanSeatTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{SeatEmpty, SeatPending, true},
		{SeatEmpty, SeatSold, true}, // transfer places the new seat directly
		{SeatPending, SeatSold, true},
		{SeatPending, SeatEmpty, true},
		{SeatSold, SeatEmpty, true},
		{SeatSold, SeatPending, false},
		{SeatPending, SeatPending, false},
		{SeatEmpty, SeatEmpty, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanSeatTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanTripTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{TripScheduled, TripInProgress, true},
		{TripScheduled, TripCancelled, true},
		{TripScheduled, TripDelayed, true},
		{TripInProgress, TripCompleted, true},
		{TripInProgress, TripCancelled, true},
		{TripDelayed, TripScheduled, true},
		{TripDelayed, TripInProgress, true},
		{TripDelayed, TripCancelled, true},
		{TripScheduled, TripCompleted, false}, // must pass through IN_PROGRESS
		{TripCompleted, TripInProgress, false},
		{TripCancelled, TripScheduled, false},
		{TripInProgress, TripScheduled, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTripTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanTicketTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{TicketPending, TicketSuccess, true},
		{TicketPending, TicketFailed, true},
		{TicketSuccess, TicketTransfer, true},
		{TicketPending, TicketTransfer, false}, // only paid tickets transfer
		{TicketSuccess, TicketFailed, false},
		{TicketFailed, TicketPending, false},
		{TicketTransfer, TicketSuccess, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTicketTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
