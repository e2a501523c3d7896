package model

import "time"

// Promotion types.  Exactly one active DEFAULT promotion must exist;
// it is the fallback when no recurring or special rule matches a date.
const (
	PromotionDefault   = "DEFAULT"
	PromotionRecurring = "RECURRING"
	PromotionSpecial   = "SPECIAL"
)

// Promotion represents a discount rule applied to ticket prices.
// RECURRING rules match a month/day pair every year (public holidays);
// SPECIAL rules match a fixed inclusive date range; DEFAULT matches
// always.  This struct corresponds to a row in the `promotions` table.
//
// Fields:
//  ID         – primary key identifier.
//  Name       – human readable rule name.
//  Type       – DEFAULT, RECURRING or SPECIAL.
//  Percent    – discount percentage (0–100).
//  StartDate  – first valid date (SPECIAL only, nullable).
//  ExpiryDate – last valid date, inclusive (SPECIAL only, nullable).
//  RecurMonth – month of the yearly match (RECURRING only).
//  RecurDay   – day of the yearly match (RECURRING only).
//  IsActive   – whether the rule participates in resolution.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Promotion struct {
	ID         uint64     // promotions.id
	Name       string     // promotions.name
	Type       string     // promotions.type
	Percent    float64    // promotions.percent
	StartDate  *time.Time // promotions.start_date (nullable)
	ExpiryDate *time.Time // promotions.expiry_date (nullable)
	RecurMonth int        // promotions.recur_month
	RecurDay   int        // promotions.recur_day
	IsActive   bool       // promotions.is_active
	CreatedAt  time.Time  // promotions.created_at
	UpdatedAt  time.Time  // promotions.updated_at
}
