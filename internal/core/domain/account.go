package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles checked at the authorization boundary.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleMerchant Role = "merchant"
	RoleCustomer Role = "customer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMerchant, RoleCustomer:
		return true
	}
	return false
}

// ProviderKind identifies an external identity provider.
type ProviderKind string

const (
	ProviderGoogle ProviderKind = "google"
	ProviderApple  ProviderKind = "apple"
)

// Valid reports whether k is a supported provider.
func (k ProviderKind) Valid() bool {
	return k == ProviderGoogle || k == ProviderApple
}

// Login lockout policy.
const (
	DefaultMaxLoginAttempts = 5
	DefaultLockDuration     = 2 * time.Hour
)

// Account is the identity record shared by admins, merchants and customers.
type Account struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	Role               Role       `json:"role"`
	Active             bool       `json:"active"`
	EmailVerified      bool       `json:"email_verified"`
	FailedAttempts     int        `json:"-"`
	LockUntil          *time.Time `json:"-"`
	Blacklisted        bool       `json:"blacklisted"`
	BlacklistReason    *string    `json:"blacklist_reason,omitempty"`
	BlacklistedAt      *time.Time `json:"blacklisted_at,omitempty"`
	GoogleID           *string    `json:"-"`
	AppleID            *string    `json:"-"`
	RefreshTokenDigest *string    `json:"-"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	DeletedAt          *time.Time `json:"-"`
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsLocked reports whether the lockout window is still open at now.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// IsDeleted reports whether the account has been soft-deleted.
func (a *Account) IsDeleted() bool {
	return a.DeletedAt != nil
}

// RegisterFailure applies one failed credential attempt.
// An expired lock restarts the count at 1; reaching maxAttempts opens a lock
// of lockFor unless one is already set.
func (a *Account) RegisterFailure(now time.Time, maxAttempts int, lockFor time.Duration) {
	if a.LockUntil != nil && !a.LockUntil.After(now) {
		a.FailedAttempts = 1
		a.LockUntil = nil
		return
	}
	a.FailedAttempts++
	if a.FailedAttempts >= maxAttempts && a.LockUntil == nil {
		until := now.Add(lockFor)
		a.LockUntil = &until
	}
}

// RegisterSuccess clears the lockout state and stamps the login time.
func (a *Account) RegisterSuccess(now time.Time) {
	a.FailedAttempts = 0
	a.LockUntil = nil
	a.LastLoginAt = &now
}

// ProviderID returns the linked id for kind, if any.
func (a *Account) ProviderID(kind ProviderKind) *string {
	switch kind {
	case ProviderGoogle:
		return a.GoogleID
	case ProviderApple:
		return a.AppleID
	}
	return nil
}

// LoginState is the persisted slice of an account touched by authentication.
type LoginState struct {
	FailedAttempts int
	LockUntil      *time.Time
	LastLoginAt    *time.Time
}

// LoginState extracts the authentication counters.
func (a *Account) LoginState() LoginState {
	return LoginState{
		FailedAttempts: a.FailedAttempts,
		LockUntil:      a.LockUntil,
		LastLoginAt:    a.LastLoginAt,
	}
}
