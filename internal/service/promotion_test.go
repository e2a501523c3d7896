package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andikaw/bus-ticketing/internal/model"
	"github.com/andikaw/bus-ticketing/internal/repository"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPromotionResolverPrecedence(t *testing.T) {
	def := &model.Promotion{ID: 1, Name: "Standard", Type: model.PromotionDefault, Percent: 0}
	start := date(2026, time.August, 10)
	end := date(2026, time.August, 20)
	special := &model.Promotion{ID: 2, Name: "Summer Sale", Type: model.PromotionSpecial, Percent: 10, StartDate: &start, ExpiryDate: &end}
	recurring := &model.Promotion{ID: 3, Name: "Independence Day", Type: model.PromotionRecurring, Percent: 25, RecurMonth: 8, RecurDay: 17}

	store := &fakePromos{def: def, special: special, recurring: recurring}
	r := NewPromotionResolver(store)

	cases := []struct {
		name string
		day  time.Time
		want uint64
	}{
		{"recurring wins over overlapping special", date(2026, time.August, 17), 3},
		{"special inside range", date(2026, time.August, 12), 2},
		{"special range is inclusive at both ends", date(2026, time.August, 20), 2},
		{"default outside any rule", date(2026, time.March, 3), 1},
		{"recurring matches every year", date(2027, time.August, 17), 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := r.Resolve(context.Background(), tc.day)
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.ID)
		})
	}
}

func TestPromotionResolverMissingDefault(t *testing.T) {
	r := NewPromotionResolver(&fakePromos{})
	_, err := r.Resolve(context.Background(), date(2026, time.March, 3))
	assert.ErrorIs(t, err, repository.ErrNoDefaultPromotion)
}
