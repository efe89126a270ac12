package memory

import (
	"context"
	"sort"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RedemptionRepo implements ports.RedemptionRepository.
type RedemptionRepo struct {
	s *Store
}

// NewRedemptionRepo creates a new RedemptionRepo.
func NewRedemptionRepo(s *Store) *RedemptionRepo {
	return &RedemptionRepo{s: s}
}

// Create inserts a redemption. A second row for the same (customer,
// promotion) pair is rejected.
func (r *RedemptionRepo) Create(ctx context.Context, tx pgx.Tx, red *domain.Redemption) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.redemptions {
		if existing.CustomerAccountID == red.CustomerAccountID && existing.PromotionID == red.PromotionID {
			return &ports.ConstraintError{Constraint: ports.ConstraintRedemptionCustomerPromotion}
		}
	}

	track(tx, r.s.redemptions, red.ID)
	c := *red
	r.s.redemptions[red.ID] = &c
	return nil
}

// ExistsForCustomerAtMerchant reports whether the customer has redeemed
// anything at the merchant before.
func (r *RedemptionRepo) ExistsForCustomerAtMerchant(ctx context.Context, tx pgx.Tx, customerAccountID, merchantID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, red := range r.s.redemptions {
		if red.CustomerAccountID == customerAccountID && red.MerchantID == merchantID {
			return true, nil
		}
	}
	return false, nil
}

// GetForCustomerForUpdate retrieves a redemption owned by the customer.
func (r *RedemptionRepo) GetForCustomerForUpdate(ctx context.Context, tx pgx.Tx, id, customerAccountID uuid.UUID) (*domain.Redemption, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	red, ok := r.s.redemptions[id]
	if !ok || red.CustomerAccountID != customerAccountID {
		return nil, nil
	}
	c := *red
	return &c, nil
}

// MarkRated sets the rated flag.
func (r *RedemptionRepo) MarkRated(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	red, ok := r.s.redemptions[id]
	if !ok {
		return nil
	}
	track(tx, r.s.redemptions, id)
	red.Rated = true
	return nil
}

func (r *RedemptionRepo) list(match func(*domain.Redemption) bool, pageNum, pageSize int) ([]domain.Redemption, int64) {
	r.s.mu.RLock()
	rows := []domain.Redemption{}
	for _, red := range r.s.redemptions {
		if match(red) {
			rows = append(rows, *red)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].RedeemedAt.Equal(rows[j].RedeemedAt) {
			return rows[i].RedeemedAt.After(rows[j].RedeemedAt)
		}
		return rows[i].ID.String() < rows[j].ID.String()
	})

	start, end := page(len(rows), pageNum, pageSize)
	return rows[start:end], int64(len(rows))
}

// ListByMerchant returns a merchant's redemptions, newest first.
func (r *RedemptionRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, pageNum, pageSize int) ([]domain.Redemption, int64, error) {
	rows, total := r.list(func(red *domain.Redemption) bool { return red.MerchantID == merchantID }, pageNum, pageSize)
	return rows, total, nil
}

// ListByCustomer returns a customer's redemptions, newest first.
func (r *RedemptionRepo) ListByCustomer(ctx context.Context, customerAccountID uuid.UUID, pageNum, pageSize int) ([]domain.Redemption, int64, error) {
	rows, total := r.list(func(red *domain.Redemption) bool { return red.CustomerAccountID == customerAccountID }, pageNum, pageSize)
	return rows, total, nil
}

// CountSince counts a merchant's redemptions at or after since.
func (r *RedemptionRepo) CountSince(ctx context.Context, merchantID uuid.UUID, since time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, red := range r.s.redemptions {
		if red.MerchantID == merchantID && !red.RedeemedAt.Before(since) {
			n++
		}
	}
	return n, nil
}
