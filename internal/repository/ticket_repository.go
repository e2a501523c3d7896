// Package repository — ticket persistence. Every state-changing method
// on TicketRepo is a single database transaction combining the ticket
// write, the seat compare-and-set and the trip seat counters, so a
// half-applied booking can never be observed.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/andikaw/bus-ticketing/internal/model"
)

// ErrTicketNotFound indicates that a ticket was not located in the DB.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketRepo manages persistence for tickets.  Tickets are append-only
// from the audit perspective: rows are never deleted, statuses only
// move along the legal transitions, and the snapshot column is written
// at most once.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo constructs a TicketRepo with the given DB handle.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// DB exposes the underlying sql.DB for callers that need to span
// repositories in one transaction.
func (r *TicketRepo) DB() *sql.DB { return r.db }

const ticketColumns = `id, user_id, trip_id, seat_id, promotion_id, payment_method,
	total_price, expires_at, status, snapshot, transferred_to, created_at, updated_at`

func scanTicket(row interface {
	Scan(dest ...interface{}) error
}) (*model.Ticket, error) {
	var t model.Ticket
	var snapshot sql.NullString
	var transferredTo sql.NullInt64
	err := row.Scan(
		&t.ID, &t.UserID, &t.TripID, &t.SeatID, &t.PromotionID, &t.PaymentMethod,
		&t.TotalPrice, &t.ExpiresAt, &t.Status, &snapshot, &transferredTo,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if snapshot.Valid {
		s := snapshot.String
		t.Snapshot = &s
	}
	if transferredTo.Valid {
		id := uint64(transferredTo.Int64)
		t.TransferredTo = &id
	}
	return &t, nil
}

// insertTx inserts a ticket row within the provided transaction and
// populates the generated ID.
func (r *TicketRepo) insertTx(ctx context.Context, tx *sql.Tx, t *model.Ticket, snapshot *string) error {
	const q = `INSERT INTO tickets
	           (user_id, trip_id, seat_id, promotion_id, payment_method, total_price,
	            expires_at, status, snapshot)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var snap interface{}
	if snapshot != nil {
		snap = *snapshot
	}
	res, err := tx.ExecContext(ctx, q,
		t.UserID, t.TripID, t.SeatID, t.PromotionID, t.PaymentMethod, t.TotalPrice,
		t.ExpiresAt.UTC(), t.Status, snap,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// writeSnapshotTx stores the snapshot JSON unless one already exists.
// The WHERE clause makes the write-once guarantee a database fact
// rather than an application promise.
func writeSnapshotTx(ctx context.Context, tx *sql.Tx, ticketID uint64, snapshot string) error {
	const q = `UPDATE tickets SET snapshot = ? WHERE id = ? AND snapshot IS NULL`
	_, err := tx.ExecContext(ctx, q, snapshot, ticketID)
	return err
}

// CreateHeld books a seat: in one transaction it claims the seat
// (EMPTY → PENDING), inserts the PENDING ticket row and shifts the trip
// seat counters.  It returns ErrSeatUnavailable when the seat was not
// EMPTY, leaving no trace of the attempt.
func (r *TicketRepo) CreateHeld(ctx context.Context, t *model.Ticket) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ok, err := trySetSeatStatusTx(ctx, tx, t.SeatID, model.SeatEmpty, model.SeatPending)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSeatUnavailable
	}
	t.Status = model.TicketPending
	if err := r.insertTx(ctx, tx, t, nil); err != nil {
		return err
	}
	if err := adjustTripCountersTx(ctx, tx, t.TripID, +1, -1); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Confirm moves a PENDING ticket to SUCCESS and its seat to SOLD, and
// stores the snapshot if absent.  The ticket update names both the
// expected status and the expiry deadline, so a confirmation racing the
// expiry sweep loses cleanly with ErrInvalidTransition.
func (r *TicketRepo) Confirm(ctx context.Context, ticketID, seatID uint64, now time.Time, snapshot string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `UPDATE tickets SET status = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status = ? AND expires_at >= ?`
	res, err := tx.ExecContext(ctx, q, model.TicketSuccess, ticketID, model.TicketPending, now.UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidTransition
	}
	if err := writeSnapshotTx(ctx, tx, ticketID, snapshot); err != nil {
		return err
	}
	ok, err := trySetSeatStatusTx(ctx, tx, seatID, model.SeatPending, model.SeatSold)
	if err != nil {
		return err
	}
	if !ok {
		// Seat state diverged from the ticket state; roll everything back.
		return ErrSeatUnavailable
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Fail moves a PENDING ticket to FAILED, releases its seat back to
// EMPTY, restores the trip counters and stores the snapshot if absent.
// Both the user-initiated failure path and the expiry sweep call this;
// whichever transition commits first wins and the loser gets
// ErrInvalidTransition.
func (r *TicketRepo) Fail(ctx context.Context, ticketID, tripID, seatID uint64, snapshot string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `UPDATE tickets SET status = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, model.TicketFailed, ticketID, model.TicketPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidTransition
	}
	if err := writeSnapshotTx(ctx, tx, ticketID, snapshot); err != nil {
		return err
	}
	if _, err := trySetSeatStatusTx(ctx, tx, seatID, model.SeatPending, model.SeatEmpty); err != nil {
		return err
	}
	if err := adjustTripCountersTx(ctx, tx, tripID, -1, +1); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Transfer atomically rebooks a SUCCESS ticket onto a new trip/seat:
// the new ticket is inserted directly in SUCCESS with its snapshot, the
// new seat goes EMPTY → SOLD, the old ticket becomes TRANSFER with a
// forward link to its successor, the old seat is released and both
// trips' counters are adjusted.  The old ticket's snapshot is stored if
// absent.  A ticket that already left SUCCESS (including a previous
// transfer) yields ErrInvalidTransition.
func (r *TicketRepo) Transfer(ctx context.Context, old *model.Ticket, next *model.Ticket, oldSnapshot, nextSnapshot string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ok, err := trySetSeatStatusTx(ctx, tx, next.SeatID, model.SeatEmpty, model.SeatSold)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSeatUnavailable
	}
	next.Status = model.TicketSuccess
	if err := r.insertTx(ctx, tx, next, &nextSnapshot); err != nil {
		return err
	}

	const q = `UPDATE tickets SET status = ?, transferred_to = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status = ? AND transferred_to IS NULL`
	res, err := tx.ExecContext(ctx, q, model.TicketTransfer, next.ID, old.ID, model.TicketSuccess)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidTransition
	}
	if err := writeSnapshotTx(ctx, tx, old.ID, oldSnapshot); err != nil {
		return err
	}
	if _, err := trySetSeatStatusTx(ctx, tx, old.SeatID, model.SeatSold, model.SeatEmpty); err != nil {
		return err
	}
	if err := adjustTripCountersTx(ctx, tx, next.TripID, +1, -1); err != nil {
		return err
	}
	if err := adjustTripCountersTx(ctx, tx, old.TripID, -1, +1); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// adjustTripCountersTx shifts a trip's booked/available seat counters
// inside a ticket transaction, so the counters move atomically with
// the seat status change that caused them.
func adjustTripCountersTx(ctx context.Context, tx *sql.Tx, tripID uint64, bookedDelta, availableDelta int) error {
	const q = `UPDATE trips
	           SET booked_seats = booked_seats + ?, available_seats = available_seats + ?,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, bookedDelta, availableDelta, tripID)
	return err
}

// GetByID retrieves a ticket by its ID.  It returns ErrTicketNotFound
// when there is no matching row.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	t, err := scanTicket(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

// ListByUser returns all tickets of a user, newest first.
func (r *TicketRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

// ListExpiredPending returns all PENDING tickets whose payment deadline
// is at or before the given instant.  The expiry sweep feeds each of
// them into Fail; running the sweep twice in a row finds nothing the
// second time because Fail moved them out of PENDING.
func (r *TicketRepo) ListExpiredPending(ctx context.Context, now time.Time) ([]model.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets WHERE status = ? AND expires_at <= ?`
	rows, err := r.db.QueryContext(ctx, q, model.TicketPending, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}
