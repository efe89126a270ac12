package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Title length bounds, in characters.
const (
	minPromotionTitle = 3
	maxPromotionTitle = 255
)

// PromotionServiceImpl implements ports.PromotionService.
type PromotionServiceImpl struct {
	promotionRepo ports.PromotionRepository
	merchantRepo  ports.MerchantRepository
	log           zerolog.Logger
	now           func() time.Time
}

// NewPromotionService creates a new PromotionServiceImpl.
func NewPromotionService(promotionRepo ports.PromotionRepository, merchantRepo ports.MerchantRepository, log zerolog.Logger) *PromotionServiceImpl {
	return &PromotionServiceImpl{
		promotionRepo: promotionRepo,
		merchantRepo:  merchantRepo,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Create publishes a promotion for the caller's merchant profile.
func (s *PromotionServiceImpl) Create(ctx context.Context, accountID uuid.UUID, in ports.PromotionInput) (*domain.Promotion, error) {
	merchant, err := s.merchant(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if in.Title == nil || in.StartsAt == nil || in.EndsAt == nil {
		return nil, apperror.Validation("title, starts_at and ends_at are required")
	}

	now := s.now()
	p := &domain.Promotion{
		ID:         uuid.New(),
		MerchantID: merchant.ID,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyPromotionInput(p, in)
	if err := validatePromotion(p); err != nil {
		return nil, err
	}

	if err := s.promotionRepo.Create(ctx, p); err != nil {
		return nil, internalError(fmt.Errorf("create promotion: %w", err))
	}

	s.log.Info().
		Str("promotion_id", p.ID.String()).
		Str("merchant_id", merchant.ID.String()).
		Msg("promotion created")
	return p, nil
}

// Update patches one of the caller's promotions; the window is re-checked
// after the patch.
func (s *PromotionServiceImpl) Update(ctx context.Context, accountID, id uuid.UUID, in ports.PromotionInput) (*domain.Promotion, error) {
	p, err := s.owned(ctx, accountID, id)
	if err != nil {
		return nil, err
	}

	applyPromotionInput(p, in)
	if err := validatePromotion(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()

	if err := s.promotionRepo.Update(ctx, p); err != nil {
		return nil, internalError(fmt.Errorf("update promotion: %w", err))
	}
	return p, nil
}

// Delete soft-deletes one of the caller's promotions.
func (s *PromotionServiceImpl) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	p, err := s.owned(ctx, accountID, id)
	if err != nil {
		return err
	}
	if err := s.promotionRepo.SoftDelete(ctx, p.ID, s.now()); err != nil {
		return internalError(fmt.Errorf("delete promotion: %w", err))
	}
	return nil
}

// ListMine lists every live promotion of the caller's merchant profile.
func (s *PromotionServiceImpl) ListMine(ctx context.Context, accountID uuid.UUID) ([]domain.Promotion, error) {
	merchant, err := s.merchant(ctx, accountID)
	if err != nil {
		return nil, err
	}
	rows, err := s.promotionRepo.ListByMerchant(ctx, merchant.ID)
	if err != nil {
		return nil, internalError(err)
	}
	return rows, nil
}

// ListValid lists promotions redeemable now at operating merchants.
func (s *PromotionServiceImpl) ListValid(ctx context.Context, params ports.PromotionListParams) ([]domain.Promotion, error) {
	params.At = s.now()
	rows, err := s.promotionRepo.ListValid(ctx, params)
	if err != nil {
		return nil, internalError(err)
	}
	return rows, nil
}

// Get returns a promotion by id.
func (s *PromotionServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Promotion, error) {
	p, err := s.promotionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, internalError(err)
	}
	if p == nil {
		return nil, apperror.ErrPromotionNotFound()
	}
	return p, nil
}

// AdminDelete soft-deletes any promotion.
func (s *PromotionServiceImpl) AdminDelete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.promotionRepo.SoftDelete(ctx, id, s.now()); err != nil {
		return internalError(fmt.Errorf("delete promotion: %w", err))
	}
	return nil
}

func (s *PromotionServiceImpl) merchant(ctx context.Context, accountID uuid.UUID) (*domain.Merchant, error) {
	m, err := s.merchantRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, internalError(err)
	}
	if m == nil {
		return nil, apperror.ErrMerchantProfileMissing()
	}
	return m, nil
}

func (s *PromotionServiceImpl) owned(ctx context.Context, accountID, id uuid.UUID) (*domain.Promotion, error) {
	merchant, err := s.merchant(ctx, accountID)
	if err != nil {
		return nil, err
	}
	p, err := s.promotionRepo.GetForMerchant(ctx, id, merchant.ID)
	if err != nil {
		return nil, internalError(err)
	}
	if p == nil {
		return nil, apperror.ErrPromotionNotFound()
	}
	return p, nil
}

func applyPromotionInput(p *domain.Promotion, in ports.PromotionInput) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.StartsAt != nil {
		p.StartsAt = in.StartsAt.UTC()
	}
	if in.EndsAt != nil {
		p.EndsAt = in.EndsAt.UTC()
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
}

func validatePromotion(p *domain.Promotion) error {
	if n := utf8.RuneCountInString(p.Title); n < minPromotionTitle || n > maxPromotionTitle {
		return apperror.Validation(fmt.Sprintf("title must be %d-%d characters", minPromotionTitle, maxPromotionTitle))
	}
	if !domain.ValidWindow(p.StartsAt, p.EndsAt) {
		return apperror.ErrInvalidPromotionWindow()
	}
	return nil
}
