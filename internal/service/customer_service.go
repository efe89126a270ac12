package service

import (
	"context"
	"fmt"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type customerService struct {
	customerRepo ports.CustomerRepository
	merchantRepo ports.MerchantRepository
	log          zerolog.Logger
}

// NewCustomerService creates a new favorites service.
func NewCustomerService(customerRepo ports.CustomerRepository, merchantRepo ports.MerchantRepository, log zerolog.Logger) ports.CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		merchantRepo: merchantRepo,
		log:          log,
	}
}

// AddFavorite is idempotent.
func (s *customerService) AddFavorite(ctx context.Context, accountID, merchantID uuid.UUID) error {
	if _, err := s.profile(ctx, accountID); err != nil {
		return err
	}
	m, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		return internalError(err)
	}
	if m == nil || !m.IsOperating() {
		return apperror.ErrNotFound("merchant")
	}
	if err := s.customerRepo.AddFavorite(ctx, accountID, merchantID); err != nil {
		return internalError(fmt.Errorf("add favorite: %w", err))
	}
	return nil
}

func (s *customerService) RemoveFavorite(ctx context.Context, accountID, merchantID uuid.UUID) error {
	if _, err := s.profile(ctx, accountID); err != nil {
		return err
	}
	if err := s.customerRepo.RemoveFavorite(ctx, accountID, merchantID); err != nil {
		return internalError(fmt.Errorf("remove favorite: %w", err))
	}
	return nil
}

// ListFavorites returns the favorite merchants that are still operating, in
// the order they were added.
func (s *customerService) ListFavorites(ctx context.Context, accountID uuid.UUID) ([]domain.Merchant, error) {
	p, err := s.profile(ctx, accountID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Merchant, 0, len(p.Favorites))
	for _, id := range p.Favorites {
		m, err := s.merchantRepo.GetByID(ctx, id)
		if err != nil {
			return nil, internalError(err)
		}
		if m != nil && m.IsOperating() {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *customerService) profile(ctx context.Context, accountID uuid.UUID) (*domain.CustomerProfile, error) {
	p, err := s.customerRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, internalError(err)
	}
	if p == nil {
		return nil, apperror.ErrNotFound("customer profile")
	}
	return p, nil
}
