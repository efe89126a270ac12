package service

import (
	"context"
	"fmt"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/apperror"

	"github.com/google/uuid"
)

// statsWindow is the look-back period for recent redemptions.
const statsWindow = 30 * 24 * time.Hour

// reportingService implements ports.ReportingService.
type reportingService struct {
	merchantRepo   ports.MerchantRepository
	promotionRepo  ports.PromotionRepository
	redemptionRepo ports.RedemptionRepository
	now            func() time.Time
}

// NewReportingService creates a new reporting service.
func NewReportingService(
	merchantRepo ports.MerchantRepository,
	promotionRepo ports.PromotionRepository,
	redemptionRepo ports.RedemptionRepository,
) ports.ReportingService {
	return &reportingService{
		merchantRepo:   merchantRepo,
		promotionRepo:  promotionRepo,
		redemptionRepo: redemptionRepo,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// MerchantStats returns the dashboard counters for the caller's merchant profile.
func (s *reportingService) MerchantStats(ctx context.Context, merchantAccountID uuid.UUID) (*domain.MerchantStats, error) {
	m, err := s.merchantRepo.GetByAccountID(ctx, merchantAccountID)
	if err != nil {
		return nil, internalError(err)
	}
	if m == nil {
		return nil, apperror.ErrMerchantProfileMissing()
	}

	now := s.now()
	active, err := s.promotionRepo.CountValid(ctx, m.ID, now)
	if err != nil {
		return nil, internalError(fmt.Errorf("count promotions: %w", err))
	}
	recent, err := s.redemptionRepo.CountSince(ctx, m.ID, now.Add(-statsWindow))
	if err != nil {
		return nil, internalError(fmt.Errorf("count redemptions: %w", err))
	}

	return &domain.MerchantStats{
		TotalVisits:        m.TotalVisits,
		TotalRedemptions:   m.TotalRedemptions,
		UniqueCustomers:    m.UniqueCustomers,
		RatingAverage:      m.RatingAverage,
		RatingCount:        m.RatingCount,
		ActivePromotions:   active,
		RedemptionsLast30d: recent,
	}, nil
}
