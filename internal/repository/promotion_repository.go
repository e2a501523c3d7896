package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/andikaw/bus-ticketing/internal/model"
)

// ErrPromotionNotFound is returned when a promotion lookup yields no rows.
var ErrPromotionNotFound = errors.New("promotion not found")

// ErrNoDefaultPromotion is returned when no active DEFAULT promotion
// exists. Its presence is a deployment precondition; callers must
// surface this loudly instead of silently assuming a 0% discount.
var ErrNoDefaultPromotion = errors.New("no default promotion configured")

// PromotionRepo provides data access to the promotions table.
type PromotionRepo struct {
	db *sql.DB
}

// NewPromotionRepo constructs a PromotionRepo with the given DB handle.
func NewPromotionRepo(db *sql.DB) *PromotionRepo { return &PromotionRepo{db: db} }

const promotionColumns = `id, name, type, percent, start_date, expiry_date,
	recur_month, recur_day, is_active, created_at, updated_at`

func scanPromotion(row interface {
	Scan(dest ...interface{}) error
}) (*model.Promotion, error) {
	var p model.Promotion
	var start, expiry sql.NullTime
	err := row.Scan(
		&p.ID, &p.Name, &p.Type, &p.Percent, &start, &expiry,
		&p.RecurMonth, &p.RecurDay, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if start.Valid {
		s := start.Time
		p.StartDate = &s
	}
	if expiry.Valid {
		e := expiry.Time
		p.ExpiryDate = &e
	}
	return &p, nil
}

// GetByID retrieves a promotion by its ID.
func (r *PromotionRepo) GetByID(ctx context.Context, id uint64) (*model.Promotion, error) {
	q := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = ?`
	p, err := scanPromotion(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}
		return nil, err
	}
	return p, nil
}

// FindActiveRecurring returns the active RECURRING promotion matching
// the given month/day pair, or ErrPromotionNotFound when none matches.
func (r *PromotionRepo) FindActiveRecurring(ctx context.Context, month, day int) (*model.Promotion, error) {
	q := `SELECT ` + promotionColumns + `
	      FROM promotions
	      WHERE type = ? AND is_active = 1 AND recur_month = ? AND recur_day = ?
	      LIMIT 1`
	p, err := scanPromotion(r.db.QueryRowContext(ctx, q, model.PromotionRecurring, month, day))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}
		return nil, err
	}
	return p, nil
}

// FindActiveSpecialOn returns the active SPECIAL promotion whose
// inclusive [start_date, expiry_date] range contains the given date, or
// ErrPromotionNotFound when none does.
func (r *PromotionRepo) FindActiveSpecialOn(ctx context.Context, date time.Time) (*model.Promotion, error) {
	day := date.UTC().Format("2006-01-02")
	q := `SELECT ` + promotionColumns + `
	      FROM promotions
	      WHERE type = ? AND is_active = 1
	        AND start_date <= ? AND expiry_date >= ?
	      ORDER BY start_date DESC
	      LIMIT 1`
	p, err := scanPromotion(r.db.QueryRowContext(ctx, q, model.PromotionSpecial, day, day))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}
		return nil, err
	}
	return p, nil
}

// FindDefault returns the single active DEFAULT promotion.  Its absence
// is a configuration error, not a per-request condition.
func (r *PromotionRepo) FindDefault(ctx context.Context) (*model.Promotion, error) {
	q := `SELECT ` + promotionColumns + `
	      FROM promotions
	      WHERE type = ? AND is_active = 1
	      LIMIT 1`
	p, err := scanPromotion(r.db.QueryRowContext(ctx, q, model.PromotionDefault))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoDefaultPromotion
		}
		return nil, err
	}
	return p, nil
}
