package service

import (
	"context"
	"fmt"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/apperror"
	"qr-loyalty-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RedemptionServiceImpl implements ports.RedemptionService.
type RedemptionServiceImpl struct {
	accountRepo    ports.AccountRepository
	customerRepo   ports.CustomerRepository
	merchantRepo   ports.MerchantRepository
	promotionRepo  ports.PromotionRepository
	redemptionRepo ports.RedemptionRepository
	transactor     ports.DBTransactor
	log            zerolog.Logger
	now            func() time.Time
}

// NewRedemptionService creates a new RedemptionServiceImpl.
func NewRedemptionService(
	accountRepo ports.AccountRepository,
	customerRepo ports.CustomerRepository,
	merchantRepo ports.MerchantRepository,
	promotionRepo ports.PromotionRepository,
	redemptionRepo ports.RedemptionRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *RedemptionServiceImpl {
	return &RedemptionServiceImpl{
		accountRepo:    accountRepo,
		customerRepo:   customerRepo,
		merchantRepo:   merchantRepo,
		promotionRepo:  promotionRepo,
		redemptionRepo: redemptionRepo,
		transactor:     transactor,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Redeem applies a promotion to the customer behind qrToken on behalf of the
// scanning merchant.
//
// The redemption row and every counter it feeds are written in one
// transaction. The merchant row is locked first so the "first visit at this
// merchant" check cannot race, and the (customer, promotion) unique index
// turns a concurrent duplicate into AlreadyRedeemed.
func (s *RedemptionServiceImpl) Redeem(ctx context.Context, qrToken string, promotionID, merchantAccountID uuid.UUID) (*domain.RedemptionReceipt, error) {
	// Step 1: resolve the customer
	customer, err := s.customerRepo.GetByQRToken(ctx, qrToken)
	if err != nil {
		return nil, internalError(fmt.Errorf("resolve qr token: %w", err))
	}
	if customer == nil {
		return nil, apperror.ErrUnknownQrCode()
	}

	// Step 2: blacklist gate
	account, err := s.accountRepo.GetByID(ctx, customer.AccountID)
	if err != nil {
		return nil, internalError(fmt.Errorf("load customer account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrUnknownQrCode()
	}
	if account.Blacklisted {
		return nil, apperror.ErrCustomerBlacklisted()
	}

	// Step 3: the scanning merchant's profile
	merchant, err := s.merchantRepo.GetByAccountID(ctx, merchantAccountID)
	if err != nil {
		return nil, internalError(fmt.Errorf("load merchant profile: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrMerchantProfileMissing()
	}

	// Step 4: the promotion must belong to that merchant
	promo, err := s.promotionRepo.GetForMerchant(ctx, promotionID, merchant.ID)
	if err != nil {
		return nil, internalError(fmt.Errorf("load promotion: %w", err))
	}
	if promo == nil {
		return nil, apperror.ErrPromotionNotFound()
	}

	// Step 5: validity window
	now := s.now()
	if !promo.IsValidAt(now) {
		return nil, apperror.ErrPromotionNotValid()
	}

	// Steps 6-7: insert and counters, atomically
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, internalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if _, err := s.merchantRepo.GetByIDForUpdate(ctx, dbTx, merchant.ID); err != nil {
		return nil, internalError(fmt.Errorf("lock merchant: %w", err))
	}

	seenBefore, err := s.redemptionRepo.ExistsForCustomerAtMerchant(ctx, dbTx, customer.AccountID, merchant.ID)
	if err != nil {
		return nil, internalError(fmt.Errorf("check prior visits: %w", err))
	}

	redemption := &domain.Redemption{
		ID:                uuid.New(),
		CustomerAccountID: customer.AccountID,
		MerchantID:        merchant.ID,
		PromotionID:       promo.ID,
		RedeemedAt:        now,
	}
	if err := s.redemptionRepo.Create(ctx, dbTx, redemption); err != nil {
		if ports.IsConstraint(err, ports.ConstraintRedemptionCustomerPromotion) {
			return nil, apperror.ErrAlreadyRedeemed()
		}
		return nil, internalError(fmt.Errorf("create redemption: %w", err))
	}

	if err := s.merchantRepo.ApplyRedemption(ctx, dbTx, merchant.ID, !seenBefore); err != nil {
		return nil, internalError(fmt.Errorf("update merchant counters: %w", err))
	}
	// The unique pair guarantees this is the customer's first use of the promotion.
	if err := s.promotionRepo.ApplyRedemption(ctx, dbTx, promo.ID, true); err != nil {
		return nil, internalError(fmt.Errorf("update promotion counters: %w", err))
	}
	if err := s.customerRepo.IncrementScans(ctx, dbTx, customer.AccountID); err != nil {
		return nil, internalError(fmt.Errorf("update customer scans: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, internalError(fmt.Errorf("commit tx: %w", err))
	}

	logger.FromContext(ctx, s.log).Info().
		Str("redemption_id", redemption.ID.String()).
		Str("merchant_id", merchant.ID.String()).
		Str("promotion_id", promo.ID.String()).
		Str("account_id", customer.AccountID.String()).
		Bool("first_visit", !seenBefore).
		Msg("promotion redeemed")

	return &domain.RedemptionReceipt{
		Redemption:         *redemption,
		CustomerFirstName:  customer.FirstName,
		CustomerLastName:   customer.LastName,
		PromotionTitle:     promo.Title,
		FirstVisitCustomer: !seenBefore,
	}, nil
}

// MerchantHistory lists the redemptions made at the merchant, newest first.
func (s *RedemptionServiceImpl) MerchantHistory(ctx context.Context, merchantAccountID uuid.UUID, page, pageSize int) ([]domain.Redemption, int64, error) {
	merchant, err := s.merchantRepo.GetByAccountID(ctx, merchantAccountID)
	if err != nil {
		return nil, 0, internalError(err)
	}
	if merchant == nil {
		return nil, 0, apperror.ErrMerchantProfileMissing()
	}

	page, pageSize = normalizePage(page, pageSize)
	rows, total, err := s.redemptionRepo.ListByMerchant(ctx, merchant.ID, page, pageSize)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return rows, total, nil
}

// CustomerHistory lists the customer's redemptions, newest first.
func (s *RedemptionServiceImpl) CustomerHistory(ctx context.Context, customerAccountID uuid.UUID, page, pageSize int) ([]domain.Redemption, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	rows, total, err := s.redemptionRepo.ListByCustomer(ctx, customerAccountID, page, pageSize)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return rows, total, nil
}

// CustomerStats summarises the customer's activity.
func (s *RedemptionServiceImpl) CustomerStats(ctx context.Context, customerAccountID uuid.UUID) (*domain.CustomerStats, error) {
	profile, err := s.customerRepo.GetByAccountID(ctx, customerAccountID)
	if err != nil {
		return nil, internalError(err)
	}
	if profile == nil {
		return nil, apperror.ErrNotFound("customer profile")
	}
	return &domain.CustomerStats{
		ScansCount:        profile.ScansCount,
		RatingsGivenCount: profile.RatingsGivenCount,
		FavoritesCount:    len(profile.Favorites),
	}, nil
}

// normalizePage clamps pagination to page >= 1 and 1 <= pageSize <= 100.
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
