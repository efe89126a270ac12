package service

import (
	"context"
	"testing"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redeemOnce registers a customer and redeems promo for them.
func (s *stack) redeemOnce(t *testing.T, email string, promo *domain.Promotion, merchantAccountID uuid.UUID) (*domain.Account, *domain.Redemption) {
	t.Helper()
	acc, profile := s.registerCustomer(t, email)
	receipt, err := s.redemption.Redeem(context.Background(), profile.QRToken, promo.ID, merchantAccountID)
	require.NoError(t, err)
	return acc, &receipt.Redemption
}

func TestRatingService_AggregateScenario(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	merchantAcc, merchant := s.registerMerchant(t, "shop@example.com")
	promo := s.createPromotion(t, merchantAcc.ID, "Free coffee")

	c1, r1 := s.redeemOnce(t, "c1@example.com", promo, merchantAcc.ID)
	c2, r2 := s.redeemOnce(t, "c2@example.com", promo, merchantAcc.ID)
	c3, r3 := s.redeemOnce(t, "c3@example.com", promo, merchantAcc.ID)

	res, err := s.rating.Rate(ctx, c1.ID, r1.ID, 5, strPtr("great"))
	require.NoError(t, err)
	assert.Equal(t, "5.00", res.Aggregate.Average.StringFixed(2))
	assert.Equal(t, int64(1), res.Aggregate.Count)

	second, err := s.rating.Rate(ctx, c2.ID, r2.ID, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, "4.50", second.Aggregate.Average.StringFixed(2))

	res, err = s.rating.Rate(ctx, c3.ID, r3.ID, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, "4.33", res.Aggregate.Average.StringFixed(2))
	assert.Equal(t, int64(3), res.Aggregate.Count)

	m, err := s.merchants.GetByID(ctx, merchant.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("4.33").Equal(m.RatingAverage))
	assert.Equal(t, int64(3), m.RatingCount)

	agg, err := s.rating.DeleteRating(ctx, second.Rating.ID)
	require.NoError(t, err)
	assert.Equal(t, "4.50", agg.Average.StringFixed(2))
	assert.Equal(t, int64(2), agg.Count)

	_, err = s.rating.DeleteRating(ctx, second.Rating.ID)
	assert.ErrorIs(t, err, apperror.ErrRatingNotFound())

	profile, err := s.customers.GetByAccountID(ctx, c2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), profile.RatingsGivenCount)

	live, total, err := s.rating.ListForMerchant(ctx, merchant.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, live, 2)
}

func TestRatingService_Rejections(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	merchantAcc, _ := s.registerMerchant(t, "shop@example.com")
	promo := s.createPromotion(t, merchantAcc.ID, "Free coffee")
	other := s.createPromotion(t, merchantAcc.ID, "Free cake")

	customer, first := s.redeemOnce(t, "ana@example.com", promo, merchantAcc.ID)
	profile, err := s.customers.GetByAccountID(ctx, customer.ID)
	require.NoError(t, err)
	receipt, err := s.redemption.Redeem(ctx, profile.QRToken, other.ID, merchantAcc.ID)
	require.NoError(t, err)
	secondVisit := receipt.Redemption

	t.Run("score out of range", func(t *testing.T) {
		for _, score := range []int{0, 6, -1} {
			_, err := s.rating.Rate(ctx, customer.ID, first.ID, score, nil)
			assert.ErrorIs(t, err, apperror.ErrInvalidScore())
		}
	})

	t.Run("redemption of someone else", func(t *testing.T) {
		_, err := s.rating.Rate(ctx, uuid.New(), first.ID, 4, nil)
		assert.ErrorIs(t, err, apperror.ErrRedemptionNotFound())
	})

	_, err = s.rating.Rate(ctx, customer.ID, first.ID, 4, nil)
	require.NoError(t, err)

	t.Run("same redemption twice", func(t *testing.T) {
		_, err := s.rating.Rate(ctx, customer.ID, first.ID, 5, nil)
		assert.ErrorIs(t, err, apperror.ErrAlreadyRated())
	})

	t.Run("second redemption at the same merchant", func(t *testing.T) {
		_, err := s.rating.Rate(ctx, customer.ID, secondVisit.ID, 5, nil)
		assert.ErrorIs(t, err, apperror.ErrDuplicateRatingForMerchant())
	})

	t.Run("deleted rating keeps the slot", func(t *testing.T) {
		mine, err := s.rating.ListMine(ctx, customer.ID)
		require.NoError(t, err)
		require.Len(t, mine, 1)

		_, err = s.rating.DeleteRating(ctx, mine[0].ID)
		require.NoError(t, err)

		_, err = s.rating.Rate(ctx, customer.ID, secondVisit.ID, 5, nil)
		assert.ErrorIs(t, err, apperror.ErrDuplicateRatingForMerchant())

		mine, err = s.rating.ListMine(ctx, customer.ID)
		require.NoError(t, err)
		assert.Empty(t, mine)
	})
}

func TestRatingService_DeleteLastRatingResetsAverage(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	merchantAcc, merchant := s.registerMerchant(t, "shop@example.com")
	promo := s.createPromotion(t, merchantAcc.ID, "Free coffee")
	customer, redemption := s.redeemOnce(t, "ana@example.com", promo, merchantAcc.ID)

	res, err := s.rating.Rate(ctx, customer.ID, redemption.ID, 3, nil)
	require.NoError(t, err)

	agg, err := s.rating.DeleteRating(ctx, res.Rating.ID)
	require.NoError(t, err)
	assert.True(t, agg.Average.IsZero())
	assert.Equal(t, int64(0), agg.Count)

	m, err := s.merchants.GetByID(ctx, merchant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.RatingCount)
}
