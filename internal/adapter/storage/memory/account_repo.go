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

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	s *Store
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(s *Store) *AccountRepo {
	return &AccountRepo{s: s}
}

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.accounts {
		if existing.DeletedAt == nil && existing.Email == a.Email {
			return &ports.ConstraintError{Constraint: ports.ConstraintAccountEmail}
		}
		if a.GoogleID != nil && existing.GoogleID != nil && *existing.GoogleID == *a.GoogleID {
			return &ports.ConstraintError{Constraint: ports.ConstraintAccountGoogle}
		}
		if a.AppleID != nil && existing.AppleID != nil && *existing.AppleID == *a.AppleID {
			return &ports.ConstraintError{Constraint: ports.ConstraintAccountApple}
		}
	}

	track(tx, r.s.accounts, a.ID)
	r.s.accounts[a.ID] = copyAccount(a)
	return nil
}

func (r *AccountRepo) find(match func(*domain.Account) bool) *domain.Account {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.accounts {
		if a.DeletedAt == nil && match(a) {
			return copyAccount(a)
		}
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.ID == id }), nil
}

// GetByEmail retrieves an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.Email == email }), nil
}

// GetByProvider retrieves an account by linked provider identity.
func (r *AccountRepo) GetByProvider(ctx context.Context, kind domain.ProviderKind, providerID string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool {
		linked := a.ProviderID(kind)
		return linked != nil && *linked == providerID
	}), nil
}

// GetByIDForUpdate retrieves an account inside a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

// GetByEmailForUpdate retrieves an account by email inside a transaction.
func (r *AccountRepo) GetByEmailForUpdate(ctx context.Context, tx pgx.Tx, email string) (*domain.Account, error) {
	return r.GetByEmail(ctx, email)
}

// update applies fn to a live account. Missing or deleted accounts are ignored,
// mirroring an UPDATE that matches no row.
func (r *AccountRepo) update(tx pgx.Tx, id uuid.UUID, fn func(*domain.Account)) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok || a.DeletedAt != nil {
		return
	}
	track(tx, r.s.accounts, id)
	fn(a)
	a.UpdatedAt = time.Now().UTC()
}

// UpdateLoginState persists the lockout counters.
func (r *AccountRepo) UpdateLoginState(ctx context.Context, tx pgx.Tx, id uuid.UUID, state domain.LoginState) error {
	r.update(tx, id, func(a *domain.Account) {
		a.FailedAttempts = state.FailedAttempts
		a.LockUntil = state.LockUntil
		a.LastLoginAt = state.LastLoginAt
	})
	return nil
}

// SetRefreshDigest overwrites the refresh-token slot.
func (r *AccountRepo) SetRefreshDigest(ctx context.Context, tx pgx.Tx, id uuid.UUID, digest *string) error {
	r.update(tx, id, func(a *domain.Account) { a.RefreshTokenDigest = digest })
	return nil
}

// SwapRefreshDigest replaces the slot only if it still holds expected.
func (r *AccountRepo) SwapRefreshDigest(ctx context.Context, id uuid.UUID, expected, replacement string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok || a.DeletedAt != nil || a.RefreshTokenDigest == nil || *a.RefreshTokenDigest != expected {
		return false, nil
	}
	a.RefreshTokenDigest = &replacement
	a.UpdatedAt = time.Now().UTC()
	return true, nil
}

// UpdatePassword replaces the credential hash.
func (r *AccountRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	r.update(nil, id, func(a *domain.Account) { a.PasswordHash = passwordHash })
	return nil
}

// LinkProvider attaches an external identity to the account.
func (r *AccountRepo) LinkProvider(ctx context.Context, tx pgx.Tx, id uuid.UUID, kind domain.ProviderKind, providerID string) error {
	r.s.mu.RLock()
	for _, existing := range r.s.accounts {
		if linked := existing.ProviderID(kind); existing.ID != id && linked != nil && *linked == providerID {
			r.s.mu.RUnlock()
			if kind == domain.ProviderApple {
				return &ports.ConstraintError{Constraint: ports.ConstraintAccountApple}
			}
			return &ports.ConstraintError{Constraint: ports.ConstraintAccountGoogle}
		}
	}
	r.s.mu.RUnlock()

	r.update(tx, id, func(a *domain.Account) {
		pid := providerID
		switch kind {
		case domain.ProviderGoogle:
			a.GoogleID = &pid
		case domain.ProviderApple:
			a.AppleID = &pid
		}
	})
	return nil
}

// SetBlacklist blacklists the account when reason is set and lifts the
// blacklist otherwise. Blacklisting deactivates the account and clears its
// refresh token.
func (r *AccountRepo) SetBlacklist(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason *string, at *time.Time) error {
	r.update(tx, id, func(a *domain.Account) {
		if reason != nil {
			a.Blacklisted = true
			a.BlacklistReason = reason
			a.BlacklistedAt = at
			a.Active = false
			a.RefreshTokenDigest = nil
			return
		}
		a.Blacklisted = false
		a.BlacklistReason = nil
		a.BlacklistedAt = nil
		a.Active = true
	})
	return nil
}

// SetEmailVerified marks the email as verified.
func (r *AccountRepo) SetEmailVerified(ctx context.Context, id uuid.UUID) error {
	r.update(nil, id, func(a *domain.Account) { a.EmailVerified = true })
	return nil
}

// SoftDelete marks the account deleted.
func (r *AccountRepo) SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	r.update(tx, id, func(a *domain.Account) {
		a.DeletedAt = &at
		a.Active = false
		a.RefreshTokenDigest = nil
	})
	return nil
}

// List returns accounts newest first.
func (r *AccountRepo) List(ctx context.Context, params ports.AccountListParams) ([]domain.Account, int64, error) {
	r.s.mu.RLock()
	rows := []domain.Account{}
	for _, a := range r.s.accounts {
		if a.DeletedAt != nil {
			continue
		}
		if params.Role != nil && a.Role != *params.Role {
			continue
		}
		if params.BlacklistedOnly && !a.Blacklisted {
			continue
		}
		rows = append(rows, *a)
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID.String() < rows[j].ID.String()
	})

	start, end := page(len(rows), params.Page, params.PageSize)
	return rows[start:end], int64(len(rows)), nil
}
