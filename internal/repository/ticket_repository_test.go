package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andikaw/bus-ticketing/internal/model"
)

func TestTicketCreateHeld(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expires := time.Date(2026, 9, 2, 7, 0, 0, 0, time.UTC)
	ticket := &model.Ticket{
		UserID:        9,
		TripID:        1,
		SeatID:        11,
		PromotionID:   2,
		PaymentMethod: "VA_BCA",
		TotalPrice:    180000,
		ExpiresAt:     expires,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE seats SET status").
		WithArgs(model.SeatPending, uint64(11), model.SeatEmpty).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO tickets").
		WithArgs(uint64(9), uint64(1), uint64(11), uint64(2), "VA_BCA", 180000.0,
			expires, model.TicketPending, nil).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("UPDATE trips SET booked_seats = booked_seats \\+ \\?, available_seats = available_seats \\+ \\?").
		WithArgs(1, -1, uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewTicketRepo(db)
	require.NoError(t, repo.CreateHeld(context.Background(), ticket))
	assert.Equal(t, uint64(42), ticket.ID)
	assert.Equal(t, model.TicketPending, ticket.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketCreateHeldSeatTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// The seat claim loses the compare-and-set; nothing else may run
	// and the transaction rolls back.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE seats SET status").
		WithArgs(model.SeatPending, uint64(11), model.SeatEmpty).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewTicketRepo(db)
	err = repo.CreateHeld(context.Background(), &model.Ticket{TripID: 1, SeatID: 11})
	assert.ErrorIs(t, err, ErrSeatUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketConfirm(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tickets SET status = \\?, updated_at = CURRENT_TIMESTAMP WHERE id = \\? AND status = \\? AND expires_at >= \\?").
		WithArgs(model.TicketSuccess, uint64(42), model.TicketPending, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tickets SET snapshot = \\? WHERE id = \\? AND snapshot IS NULL").
		WithArgs(`{"ticket_id":42}`, uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE seats SET status").
		WithArgs(model.SeatSold, uint64(11), model.SeatPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewTicketRepo(db)
	require.NoError(t, repo.Confirm(context.Background(), 42, 11, now, `{"ticket_id":42}`))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketConfirmExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// The WHERE clause names both the expected status and the expiry
	// deadline, so a confirmation racing the sweep matches zero rows.
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tickets SET status").
		WithArgs(model.TicketSuccess, uint64(42), model.TicketPending, now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewTicketRepo(db)
	err = repo.Confirm(context.Background(), 42, 11, now, `{}`)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketFail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tickets SET status").
		WithArgs(model.TicketFailed, uint64(42), model.TicketPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tickets SET snapshot").
		WithArgs(`{"ticket_id":42}`, uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE seats SET status").
		WithArgs(model.SeatEmpty, uint64(11), model.SeatPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE trips SET booked_seats = booked_seats \\+ \\?, available_seats = available_seats \\+ \\?").
		WithArgs(-1, 1, uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewTicketRepo(db)
	require.NoError(t, repo.Fail(context.Background(), 42, 1, 11, `{"ticket_id":42}`))
	assert.NoError(t, mock.ExpectationsWereMet())
}
