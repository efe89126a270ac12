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

// RatingRepo implements ports.RatingRepository.
type RatingRepo struct {
	s *Store
}

// NewRatingRepo creates a new RatingRepo.
func NewRatingRepo(s *Store) *RatingRepo {
	return &RatingRepo{s: s}
}

// Create inserts a rating. Deleted ratings still hold their slots.
func (r *RatingRepo) Create(ctx context.Context, tx pgx.Tx, rt *domain.Rating) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.ratings {
		if existing.MerchantID == rt.MerchantID && existing.CustomerAccountID == rt.CustomerAccountID {
			return &ports.ConstraintError{Constraint: ports.ConstraintRatingMerchantCustomer}
		}
		if existing.RedemptionID == rt.RedemptionID {
			return &ports.ConstraintError{Constraint: ports.ConstraintRatingRedemption}
		}
	}

	track(tx, r.s.ratings, rt.ID)
	c := *rt
	r.s.ratings[rt.ID] = &c
	return nil
}

// ExistsForMerchantCustomer reports whether the customer ever rated the merchant.
func (r *RatingRepo) ExistsForMerchantCustomer(ctx context.Context, tx pgx.Tx, merchantID, customerAccountID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rt := range r.s.ratings {
		if rt.MerchantID == merchantID && rt.CustomerAccountID == customerAccountID {
			return true, nil
		}
	}
	return false, nil
}

// GetByIDForUpdate retrieves a live rating inside a transaction.
func (r *RatingRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Rating, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rt, ok := r.s.ratings[id]
	if !ok || rt.DeletedAt != nil {
		return nil, nil
	}
	c := *rt
	return &c, nil
}

// SoftDelete marks the rating deleted.
func (r *RatingRepo) SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt, ok := r.s.ratings[id]
	if !ok || rt.DeletedAt != nil {
		return nil
	}
	track(tx, r.s.ratings, id)
	rt.DeletedAt = &at
	return nil
}

func (r *RatingRepo) live(match func(*domain.Rating) bool) []domain.Rating {
	r.s.mu.RLock()
	rows := []domain.Rating{}
	for _, rt := range r.s.ratings {
		if rt.DeletedAt == nil && match(rt) {
			rows = append(rows, *rt)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID.String() < rows[j].ID.String()
	})
	return rows
}

// ListByMerchant returns a merchant's live ratings, newest first.
func (r *RatingRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, pageNum, pageSize int) ([]domain.Rating, int64, error) {
	rows := r.live(func(rt *domain.Rating) bool { return rt.MerchantID == merchantID })
	start, end := page(len(rows), pageNum, pageSize)
	return rows[start:end], int64(len(rows)), nil
}

// ListByCustomer returns a customer's live ratings, newest first.
func (r *RatingRepo) ListByCustomer(ctx context.Context, customerAccountID uuid.UUID) ([]domain.Rating, error) {
	return r.live(func(rt *domain.Rating) bool { return rt.CustomerAccountID == customerAccountID }), nil
}
