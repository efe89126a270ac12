package memory

import (
	"context"
	"slices"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CustomerRepo implements ports.CustomerRepository.
type CustomerRepo struct {
	s *Store
}

// NewCustomerRepo creates a new CustomerRepo.
func NewCustomerRepo(s *Store) *CustomerRepo {
	return &CustomerRepo{s: s}
}

// copyCustomer returns a detached copy. The plaintext phone is never stored.
func copyCustomer(c *domain.CustomerProfile) *domain.CustomerProfile {
	out := *c
	out.Phone = nil
	out.Favorites = slices.Clone(c.Favorites)
	if out.Favorites == nil {
		out.Favorites = []uuid.UUID{}
	}
	return &out
}

// Create inserts a customer profile.
func (r *CustomerRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.CustomerProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.customers {
		if existing.QRToken == p.QRToken {
			return &ports.ConstraintError{Constraint: ports.ConstraintCustomerQRToken}
		}
	}
	if _, ok := r.s.customers[p.AccountID]; ok {
		return &ports.ConstraintError{Constraint: ports.ConstraintCustomerAccount}
	}

	track(tx, r.s.customers, p.AccountID)
	r.s.customers[p.AccountID] = copyCustomer(p)
	return nil
}

// GetByAccountID retrieves the profile owned by an account.
func (r *CustomerRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.CustomerProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.customers[accountID]
	if !ok || p.DeletedAt != nil {
		return nil, nil
	}
	return copyCustomer(p), nil
}

// GetByQRToken resolves a scanned QR token.
func (r *CustomerRepo) GetByQRToken(ctx context.Context, qrToken string) (*domain.CustomerProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.customers {
		if p.DeletedAt == nil && p.QRToken == qrToken {
			return copyCustomer(p), nil
		}
	}
	return nil, nil
}

func (r *CustomerRepo) update(tx pgx.Tx, accountID uuid.UUID, fn func(*domain.CustomerProfile)) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.customers[accountID]
	if !ok || p.DeletedAt != nil {
		return
	}
	track(tx, r.s.customers, accountID)
	fn(p)
	p.UpdatedAt = time.Now().UTC()
}

// Update persists the editable profile fields.
func (r *CustomerRepo) Update(ctx context.Context, profile *domain.CustomerProfile) error {
	r.update(nil, profile.AccountID, func(p *domain.CustomerProfile) {
		p.FirstName = profile.FirstName
		p.LastName = profile.LastName
		p.PhoneEncrypted = profile.PhoneEncrypted
		p.City = profile.City
	})
	return nil
}

// IncrementScans adds one to the scans counter.
func (r *CustomerRepo) IncrementScans(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	r.update(tx, accountID, func(p *domain.CustomerProfile) { p.ScansCount++ })
	return nil
}

// AdjustRatingsGiven moves the ratings-given counter by delta, never below zero.
func (r *CustomerRepo) AdjustRatingsGiven(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, delta int) error {
	r.update(tx, accountID, func(p *domain.CustomerProfile) {
		p.RatingsGivenCount = max(p.RatingsGivenCount+int64(delta), 0)
	})
	return nil
}

// AddFavorite adds merchantID to the favorites set.
func (r *CustomerRepo) AddFavorite(ctx context.Context, accountID, merchantID uuid.UUID) error {
	r.update(nil, accountID, func(p *domain.CustomerProfile) {
		if !p.HasFavorite(merchantID) {
			p.Favorites = append(slices.Clone(p.Favorites), merchantID)
		}
	})
	return nil
}

// RemoveFavorite removes merchantID from the favorites set.
func (r *CustomerRepo) RemoveFavorite(ctx context.Context, accountID, merchantID uuid.UUID) error {
	r.update(nil, accountID, func(p *domain.CustomerProfile) {
		p.Favorites = slices.DeleteFunc(slices.Clone(p.Favorites), func(id uuid.UUID) bool {
			return id == merchantID
		})
	})
	return nil
}

// SoftDeleteByAccount marks the account's profile deleted.
func (r *CustomerRepo) SoftDeleteByAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, at time.Time) error {
	r.update(tx, accountID, func(p *domain.CustomerProfile) { p.DeletedAt = &at })
	return nil
}
