package service

import (
	"context"
	"testing"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports/mocks"
	"qr-loyalty-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestReportingService_MerchantStats(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	merchantAcc, merchant := s.registerMerchant(t, "shop@example.com")
	promo := s.createPromotion(t, merchantAcc.ID, "Free coffee")
	s.createPromotion(t, merchantAcc.ID, "Free cake")

	c1, r1 := s.redeemOnce(t, "c1@example.com", promo, merchantAcc.ID)
	s.redeemOnce(t, "c2@example.com", promo, merchantAcc.ID)
	_, err := s.rating.Rate(ctx, c1.ID, r1.ID, 4, nil)
	require.NoError(t, err)

	_, err = s.merchant.GetPublic(ctx, merchant.ID)
	require.NoError(t, err)

	stats, err := s.reporting.MerchantStats(ctx, merchantAcc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalVisits)
	assert.Equal(t, int64(2), stats.TotalRedemptions)
	assert.Equal(t, int64(2), stats.UniqueCustomers)
	assert.Equal(t, int64(1), stats.RatingCount)
	assert.Equal(t, "4.00", stats.RatingAverage.StringFixed(2))
	assert.Equal(t, int64(2), stats.ActivePromotions)
	assert.Equal(t, int64(2), stats.RedemptionsLast30d)

	// Past the window both promotions have expired and the redemptions age out.
	s.clock.advance(31 * 24 * time.Hour)
	stats, err = s.reporting.MerchantStats(ctx, merchantAcc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.ActivePromotions)
	assert.Equal(t, int64(0), stats.RedemptionsLast30d)
	assert.Equal(t, int64(2), stats.TotalRedemptions)
}

func TestReportingService_MissingProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	merchantRepo := mocks.NewMockMerchantRepository(ctrl)
	svc := NewReportingService(merchantRepo, mocks.NewMockPromotionRepository(ctrl), mocks.NewMockRedemptionRepository(ctrl))

	merchantRepo.EXPECT().GetByAccountID(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := svc.MerchantStats(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrMerchantProfileMissing())
}

func TestReportingService_CountsFromRepositories(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	merchantRepo := mocks.NewMockMerchantRepository(ctrl)
	promotionRepo := mocks.NewMockPromotionRepository(ctrl)
	redemptionRepo := mocks.NewMockRedemptionRepository(ctrl)
	svc := NewReportingService(merchantRepo, promotionRepo, redemptionRepo).(*reportingService)

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	accountID := uuid.New()
	m := &domain.Merchant{ID: uuid.New(), AccountID: accountID, TotalVisits: 40, TotalRedemptions: 12, UniqueCustomers: 9}
	merchantRepo.EXPECT().GetByAccountID(gomock.Any(), accountID).Return(m, nil)
	promotionRepo.EXPECT().CountValid(gomock.Any(), m.ID, now).Return(int64(3), nil)
	redemptionRepo.EXPECT().CountSince(gomock.Any(), m.ID, now.Add(-30*24*time.Hour)).Return(int64(7), nil)

	stats, err := svc.MerchantStats(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), stats.TotalVisits)
	assert.Equal(t, int64(3), stats.ActivePromotions)
	assert.Equal(t, int64(7), stats.RedemptionsLast30d)
}
