package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PromotionRepo implements ports.PromotionRepository.
type PromotionRepo struct {
	s *Store
}

// NewPromotionRepo creates a new PromotionRepo.
func NewPromotionRepo(s *Store) *PromotionRepo {
	return &PromotionRepo{s: s}
}

func copyPromotion(p *domain.Promotion) *domain.Promotion {
	out := *p
	return &out
}

// Create inserts a promotion.
func (r *PromotionRepo) Create(ctx context.Context, p *domain.Promotion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.promotions[p.ID] = copyPromotion(p)
	return nil
}

// GetByID retrieves a promotion by ID.
func (r *PromotionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Promotion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.promotions[id]
	if !ok || p.DeletedAt != nil {
		return nil, nil
	}
	return copyPromotion(p), nil
}

// GetForMerchant retrieves a promotion owned by merchantID.
func (r *PromotionRepo) GetForMerchant(ctx context.Context, id, merchantID uuid.UUID) (*domain.Promotion, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil || p == nil || p.MerchantID != merchantID {
		return nil, err
	}
	return p, nil
}

// Update persists the editable promotion fields.
func (r *PromotionRepo) Update(ctx context.Context, in *domain.Promotion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.promotions[in.ID]
	if !ok || p.DeletedAt != nil {
		return nil
	}
	p.Title = in.Title
	p.Description = in.Description
	p.StartsAt = in.StartsAt
	p.EndsAt = in.EndsAt
	p.Active = in.Active
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// SoftDelete marks the promotion deleted.
func (r *PromotionRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.promotions[id]; ok && p.DeletedAt == nil {
		p.DeletedAt = &at
		p.Active = false
	}
	return nil
}

// ListByMerchant returns a merchant's promotions, newest first.
func (r *PromotionRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.Promotion, error) {
	r.s.mu.RLock()
	rows := []domain.Promotion{}
	for _, p := range r.s.promotions {
		if p.DeletedAt == nil && p.MerchantID == merchantID {
			rows = append(rows, *p)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID.String() < rows[j].ID.String()
	})
	return rows, nil
}

// ListValid returns promotions valid at params.At whose merchant is
// operating, ending soonest first.
func (r *PromotionRepo) ListValid(ctx context.Context, params ports.PromotionListParams) ([]domain.Promotion, error) {
	r.s.mu.RLock()
	rows := []domain.Promotion{}
	for _, p := range r.s.promotions {
		if p.DeletedAt != nil || !p.IsValidAt(params.At) {
			continue
		}
		if params.MerchantID != nil && p.MerchantID != *params.MerchantID {
			continue
		}
		m, ok := r.s.merchants[p.MerchantID]
		if !ok || !m.IsOperating() {
			continue
		}
		if params.City != nil && !strings.EqualFold(m.City, *params.City) {
			continue
		}
		if params.CategoryID != nil && m.CategoryID != *params.CategoryID {
			continue
		}
		rows = append(rows, *p)
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].EndsAt.Equal(rows[j].EndsAt) {
			return rows[i].EndsAt.Before(rows[j].EndsAt)
		}
		return rows[i].ID.String() < rows[j].ID.String()
	})
	return rows, nil
}

// CountValid counts a merchant's promotions valid at t.
func (r *PromotionRepo) CountValid(ctx context.Context, merchantID uuid.UUID, at time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, p := range r.s.promotions {
		if p.DeletedAt == nil && p.MerchantID == merchantID && p.IsValidAt(at) {
			n++
		}
	}
	return n, nil
}

// ApplyRedemption bumps the usage counters.
func (r *PromotionRepo) ApplyRedemption(ctx context.Context, tx pgx.Tx, id uuid.UUID, newCustomer bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.promotions[id]
	if !ok || p.DeletedAt != nil {
		return nil
	}
	track(tx, r.s.promotions, id)
	p.UsageCount++
	if newCustomer {
		p.UniqueCustomers++
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}
