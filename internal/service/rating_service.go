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

// RatingServiceImpl implements ports.RatingService.
type RatingServiceImpl struct {
	ratingRepo     ports.RatingRepository
	redemptionRepo ports.RedemptionRepository
	merchantRepo   ports.MerchantRepository
	customerRepo   ports.CustomerRepository
	transactor     ports.DBTransactor
	log            zerolog.Logger
	now            func() time.Time
}

// NewRatingService creates a new RatingServiceImpl.
func NewRatingService(
	ratingRepo ports.RatingRepository,
	redemptionRepo ports.RedemptionRepository,
	merchantRepo ports.MerchantRepository,
	customerRepo ports.CustomerRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *RatingServiceImpl {
	return &RatingServiceImpl{
		ratingRepo:     ratingRepo,
		redemptionRepo: redemptionRepo,
		merchantRepo:   merchantRepo,
		customerRepo:   customerRepo,
		transactor:     transactor,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Rate records the customer's rating of the merchant behind one of their
// unrated redemptions and folds it into the merchant aggregate.
func (s *RatingServiceImpl) Rate(ctx context.Context, customerAccountID, redemptionID uuid.UUID, score int, comment *string) (*ports.RatingResult, error) {
	if !domain.ValidScore(score) {
		return nil, apperror.ErrInvalidScore()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, internalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	redemption, err := s.redemptionRepo.GetForCustomerForUpdate(ctx, dbTx, redemptionID, customerAccountID)
	if err != nil {
		return nil, internalError(fmt.Errorf("lock redemption: %w", err))
	}
	if redemption == nil {
		return nil, apperror.ErrRedemptionNotFound()
	}
	if redemption.Rated {
		return nil, apperror.ErrAlreadyRated()
	}

	merchant, err := s.merchantRepo.GetByIDForUpdate(ctx, dbTx, redemption.MerchantID)
	if err != nil {
		return nil, internalError(fmt.Errorf("lock merchant: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}

	exists, err := s.ratingRepo.ExistsForMerchantCustomer(ctx, dbTx, merchant.ID, customerAccountID)
	if err != nil {
		return nil, internalError(fmt.Errorf("check existing rating: %w", err))
	}
	if exists {
		return nil, apperror.ErrDuplicateRatingForMerchant()
	}

	rating := &domain.Rating{
		ID:                uuid.New(),
		MerchantID:        merchant.ID,
		CustomerAccountID: customerAccountID,
		RedemptionID:      redemption.ID,
		Score:             score,
		Comment:           comment,
		CreatedAt:         s.now(),
	}
	if err := s.ratingRepo.Create(ctx, dbTx, rating); err != nil {
		switch {
		case ports.IsConstraint(err, ports.ConstraintRatingMerchantCustomer):
			return nil, apperror.ErrDuplicateRatingForMerchant()
		case ports.IsConstraint(err, ports.ConstraintRatingRedemption):
			return nil, apperror.ErrAlreadyRated()
		}
		return nil, internalError(fmt.Errorf("create rating: %w", err))
	}

	if err := s.redemptionRepo.MarkRated(ctx, dbTx, redemption.ID); err != nil {
		return nil, internalError(fmt.Errorf("mark redemption rated: %w", err))
	}

	agg := domain.RatingAggregate{Average: merchant.RatingAverage, Count: merchant.RatingCount}.AddScore(score)
	if err := s.merchantRepo.UpdateRating(ctx, dbTx, merchant.ID, agg); err != nil {
		return nil, internalError(fmt.Errorf("update merchant rating: %w", err))
	}

	if err := s.customerRepo.AdjustRatingsGiven(ctx, dbTx, customerAccountID, 1); err != nil {
		return nil, internalError(fmt.Errorf("update customer ratings: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, internalError(fmt.Errorf("commit tx: %w", err))
	}

	logger.FromContext(ctx, s.log).Info().
		Str("rating_id", rating.ID.String()).
		Str("merchant_id", merchant.ID.String()).
		Str("account_id", customerAccountID.String()).
		Int("score", score).
		Str("average", agg.Average.StringFixed(2)).
		Msg("merchant rated")

	return &ports.RatingResult{Rating: rating, Aggregate: agg}, nil
}

// DeleteRating soft-deletes a rating and reverses its contribution to the
// merchant aggregate. The source redemption stays rated, and the customer
// cannot rate that merchant again.
func (s *RatingServiceImpl) DeleteRating(ctx context.Context, ratingID uuid.UUID) (*domain.RatingAggregate, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, internalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	rating, err := s.ratingRepo.GetByIDForUpdate(ctx, dbTx, ratingID)
	if err != nil {
		return nil, internalError(fmt.Errorf("lock rating: %w", err))
	}
	if rating == nil {
		return nil, apperror.ErrRatingNotFound()
	}

	merchant, err := s.merchantRepo.GetByIDForUpdate(ctx, dbTx, rating.MerchantID)
	if err != nil {
		return nil, internalError(fmt.Errorf("lock merchant: %w", err))
	}

	if err := s.ratingRepo.SoftDelete(ctx, dbTx, rating.ID, s.now()); err != nil {
		return nil, internalError(fmt.Errorf("delete rating: %w", err))
	}

	// A deleted merchant keeps no live aggregate to correct.
	agg := domain.RatingAggregate{}
	if merchant != nil {
		agg = domain.RatingAggregate{Average: merchant.RatingAverage, Count: merchant.RatingCount}.RemoveScore(rating.Score)
		if err := s.merchantRepo.UpdateRating(ctx, dbTx, merchant.ID, agg); err != nil {
			return nil, internalError(fmt.Errorf("update merchant rating: %w", err))
		}
	}

	if err := s.customerRepo.AdjustRatingsGiven(ctx, dbTx, rating.CustomerAccountID, -1); err != nil {
		return nil, internalError(fmt.Errorf("update customer ratings: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, internalError(fmt.Errorf("commit tx: %w", err))
	}

	logger.FromContext(ctx, s.log).Info().
		Str("rating_id", rating.ID.String()).
		Str("merchant_id", rating.MerchantID.String()).
		Str("average", agg.Average.StringFixed(2)).
		Int64("count", agg.Count).
		Msg("rating deleted")

	return &agg, nil
}

// ListForMerchant lists a merchant's live ratings, newest first.
func (s *RatingServiceImpl) ListForMerchant(ctx context.Context, merchantID uuid.UUID, page, pageSize int) ([]domain.Rating, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	rows, total, err := s.ratingRepo.ListByMerchant(ctx, merchantID, page, pageSize)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return rows, total, nil
}

// ListMine lists the customer's live ratings.
func (s *RatingServiceImpl) ListMine(ctx context.Context, customerAccountID uuid.UUID) ([]domain.Rating, error) {
	rows, err := s.ratingRepo.ListByCustomer(ctx, customerAccountID)
	if err != nil {
		return nil, internalError(err)
	}
	return rows, nil
}
