package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct {
	s *Store
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(s *Store) *MerchantRepo {
	return &MerchantRepo{s: s}
}

func copyMerchant(m *domain.Merchant) *domain.Merchant {
	out := *m
	out.Images = slices.Clone(m.Images)
	if out.Images == nil {
		out.Images = []string{}
	}
	out.Hours = maps.Clone(m.Hours)
	out.DistanceKm = nil
	return &out
}

// Create inserts a merchant profile.
func (r *MerchantRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.Merchant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.merchants {
		if existing.AccountID == m.AccountID {
			return &ports.ConstraintError{Constraint: ports.ConstraintMerchantAccount}
		}
	}

	track(tx, r.s.merchants, m.ID)
	r.s.merchants[m.ID] = copyMerchant(m)
	return nil
}

// GetByID retrieves a merchant by ID.
func (r *MerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.merchants[id]
	if !ok || m.DeletedAt != nil {
		return nil, nil
	}
	return copyMerchant(m), nil
}

// GetByAccountID retrieves the merchant owned by an account.
func (r *MerchantRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Merchant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.merchants {
		if m.DeletedAt == nil && m.AccountID == accountID {
			return copyMerchant(m), nil
		}
	}
	return nil, nil
}

// GetByIDForUpdate retrieves a merchant inside a transaction.
func (r *MerchantRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Merchant, error) {
	return r.GetByID(ctx, id)
}

func (r *MerchantRepo) update(tx pgx.Tx, id uuid.UUID, fn func(*domain.Merchant)) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.merchants[id]
	if !ok || m.DeletedAt != nil {
		return
	}
	track(tx, r.s.merchants, id)
	fn(m)
	m.UpdatedAt = time.Now().UTC()
}

// Update persists the editable profile fields. Counters and moderation flags
// are left untouched.
func (r *MerchantRepo) Update(ctx context.Context, tx pgx.Tx, in *domain.Merchant) error {
	r.update(tx, in.ID, func(m *domain.Merchant) {
		m.BusinessName = in.BusinessName
		m.Description = in.Description
		m.CategoryID = in.CategoryID
		m.Address = in.Address
		m.City = in.City
		m.PostalCode = in.PostalCode
		m.Phone = in.Phone
		m.Website = in.Website
		m.Latitude = in.Latitude
		m.Longitude = in.Longitude
		m.Hours = maps.Clone(in.Hours)
	})
	return nil
}

// AddImage appends url unless the gallery is full.
func (r *MerchantRepo) AddImage(ctx context.Context, id uuid.UUID, url string, max int) (bool, error) {
	added := false
	r.update(nil, id, func(m *domain.Merchant) {
		if len(m.Images) >= max {
			return
		}
		m.Images = append(slices.Clone(m.Images), url)
		added = true
	})
	return added, nil
}

// SetImages replaces the gallery and primary image.
func (r *MerchantRepo) SetImages(ctx context.Context, id uuid.UUID, images []string, primary *string) error {
	r.update(nil, id, func(m *domain.Merchant) {
		m.Images = slices.Clone(images)
		m.PrimaryImage = primary
	})
	return nil
}

// IncrementVisits adds one to the visit counter.
func (r *MerchantRepo) IncrementVisits(ctx context.Context, id uuid.UUID) error {
	r.update(nil, id, func(m *domain.Merchant) { m.TotalVisits++ })
	return nil
}

// ApplyRedemption bumps the redemption counters.
func (r *MerchantRepo) ApplyRedemption(ctx context.Context, tx pgx.Tx, id uuid.UUID, newCustomer bool) error {
	r.update(tx, id, func(m *domain.Merchant) {
		m.TotalRedemptions++
		if newCustomer {
			m.UniqueCustomers++
		}
	})
	return nil
}

// UpdateRating stores a recomputed aggregate.
func (r *MerchantRepo) UpdateRating(ctx context.Context, tx pgx.Tx, id uuid.UUID, agg domain.RatingAggregate) error {
	r.update(tx, id, func(m *domain.Merchant) {
		m.RatingAverage = agg.Average
		m.RatingCount = agg.Count
	})
	return nil
}

// SetVerified toggles the verified flag.
func (r *MerchantRepo) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	r.update(nil, id, func(m *domain.Merchant) { m.Verified = verified })
	return nil
}

// SetBlacklist blacklists the merchant when reason is set and lifts the
// blacklist otherwise.
func (r *MerchantRepo) SetBlacklist(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason *string, at *time.Time) error {
	r.update(tx, id, func(m *domain.Merchant) {
		m.Blacklisted = reason != nil
		m.BlacklistReason = reason
		m.BlacklistedAt = at
		m.Active = reason == nil
	})
	return nil
}

// SoftDelete marks the merchant deleted.
func (r *MerchantRepo) SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	r.update(tx, id, func(m *domain.Merchant) {
		m.DeletedAt = &at
		m.Active = false
	})
	return nil
}

// List returns merchants ordered by rating, best first.
func (r *MerchantRepo) List(ctx context.Context, params ports.MerchantListParams) ([]domain.Merchant, int64, error) {
	r.s.mu.RLock()
	rows := []domain.Merchant{}
	for _, m := range r.s.merchants {
		if m.DeletedAt != nil {
			continue
		}
		if params.OperatingOnly && !m.IsOperating() {
			continue
		}
		if params.City != nil && !strings.EqualFold(m.City, *params.City) {
			continue
		}
		if params.CategoryID != nil && m.CategoryID != *params.CategoryID {
			continue
		}
		rows = append(rows, *copyMerchant(m))
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].RatingAverage.Cmp(rows[j].RatingAverage); c != 0 {
			return c > 0
		}
		if rows[i].RatingCount != rows[j].RatingCount {
			return rows[i].RatingCount > rows[j].RatingCount
		}
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID.String() < rows[j].ID.String()
	})

	if params.PageSize <= 0 {
		return rows, int64(len(rows)), nil
	}
	start, end := page(len(rows), params.Page, params.PageSize)
	return rows[start:end], int64(len(rows)), nil
}
