package service

import (
	"context"
	"errors"
	"time"

	"github.com/andikaw/bus-ticketing/internal/model"
	"github.com/andikaw/bus-ticketing/internal/repository"
)

// PromotionResolver picks the single discount rule applicable to a
// calendar date.  Precedence, first match wins: an active RECURRING
// rule whose month/day equals the date's, then an active SPECIAL rule
// whose inclusive date range contains the date, then the active
// DEFAULT rule.  A missing DEFAULT rule is a deployment error and is
// surfaced as repository.ErrNoDefaultPromotion.
type PromotionResolver struct {
	promos PromotionStore
}

// NewPromotionResolver constructs a resolver over the given store.
func NewPromotionResolver(promos PromotionStore) *PromotionResolver {
	return &PromotionResolver{promos: promos}
}

// Resolve returns the promotion applicable to the given date.
func (r *PromotionResolver) Resolve(ctx context.Context, date time.Time) (*model.Promotion, error) {
	date = date.UTC()

	p, err := r.promos.FindActiveRecurring(ctx, int(date.Month()), date.Day())
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrPromotionNotFound) {
		return nil, err
	}

	p, err = r.promos.FindActiveSpecialOn(ctx, date)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrPromotionNotFound) {
		return nil, err
	}

	return r.promos.FindDefault(ctx)
}
