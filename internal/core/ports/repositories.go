package ports

import (
	"context"
	"time"

	"qr-loyalty-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repositories return (nil, nil) when a row does not exist, and a
// *ConstraintError when a write hits a unique constraint. Soft-deleted rows
// are invisible to every method unless stated otherwise.
// Methods accepting pgx.Tx are used inside transaction blocks; a nil tx runs
// the statement on its own.

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx pgx.Tx, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByProvider(ctx context.Context, kind domain.ProviderKind, providerID string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error)
	GetByEmailForUpdate(ctx context.Context, tx pgx.Tx, email string) (*domain.Account, error)
	UpdateLoginState(ctx context.Context, tx pgx.Tx, id uuid.UUID, state domain.LoginState) error
	// SetRefreshDigest overwrites the single refresh-token slot (nil clears it).
	SetRefreshDigest(ctx context.Context, tx pgx.Tx, id uuid.UUID, digest *string) error
	// SwapRefreshDigest replaces the slot only if it still holds expected.
	// It reports whether the swap happened.
	SwapRefreshDigest(ctx context.Context, id uuid.UUID, expected, replacement string) (bool, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	LinkProvider(ctx context.Context, tx pgx.Tx, id uuid.UUID, kind domain.ProviderKind, providerID string) error
	SetBlacklist(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason *string, at *time.Time) error
	SetEmailVerified(ctx context.Context, id uuid.UUID) error
	SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error
	List(ctx context.Context, params AccountListParams) ([]domain.Account, int64, error)
}

// AccountListParams holds filter + pagination for listing accounts.
type AccountListParams struct {
	Role            *domain.Role
	BlacklistedOnly bool
	Page            int
	PageSize        int
}

// CustomerRepository defines persistence operations for customer profiles.
type CustomerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, profile *domain.CustomerProfile) error
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.CustomerProfile, error)
	GetByQRToken(ctx context.Context, qrToken string) (*domain.CustomerProfile, error)
	Update(ctx context.Context, profile *domain.CustomerProfile) error
	IncrementScans(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error
	AdjustRatingsGiven(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, delta int) error
	AddFavorite(ctx context.Context, accountID, merchantID uuid.UUID) error
	RemoveFavorite(ctx context.Context, accountID, merchantID uuid.UUID) error
	SoftDeleteByAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, at time.Time) error
}

// MerchantRepository defines persistence operations for merchant profiles.
type MerchantRepository interface {
	Create(ctx context.Context, tx pgx.Tx, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Merchant, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Merchant, error)
	Update(ctx context.Context, tx pgx.Tx, merchant *domain.Merchant) error
	// AddImage appends url unless the gallery already holds max images.
	// It reports whether the image was added.
	AddImage(ctx context.Context, id uuid.UUID, url string, max int) (bool, error)
	SetImages(ctx context.Context, id uuid.UUID, images []string, primary *string) error
	IncrementVisits(ctx context.Context, id uuid.UUID) error
	// ApplyRedemption bumps the redemption counter, and the unique-customer
	// counter when newCustomer is set.
	ApplyRedemption(ctx context.Context, tx pgx.Tx, id uuid.UUID, newCustomer bool) error
	UpdateRating(ctx context.Context, tx pgx.Tx, id uuid.UUID, agg domain.RatingAggregate) error
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) error
	SetBlacklist(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason *string, at *time.Time) error
	SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error
	List(ctx context.Context, params MerchantListParams) ([]domain.Merchant, int64, error)
}

// MerchantListParams holds filter + pagination for listing merchants.
// OperatingOnly restricts to active, non-blacklisted merchants. A zero
// PageSize returns every matching row.
type MerchantListParams struct {
	City          *string
	CategoryID    *uuid.UUID
	OperatingOnly bool
	Page          int
	PageSize      int
}

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Update(ctx context.Context, category *domain.Category) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	AdjustMerchantCount(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) error
}

// PromotionRepository defines persistence operations for promotions.
type PromotionRepository interface {
	Create(ctx context.Context, promotion *domain.Promotion) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Promotion, error)
	// GetForMerchant returns the promotion only if merchantID owns it.
	GetForMerchant(ctx context.Context, id, merchantID uuid.UUID) (*domain.Promotion, error)
	Update(ctx context.Context, promotion *domain.Promotion) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.Promotion, error)
	ListValid(ctx context.Context, params PromotionListParams) ([]domain.Promotion, error)
	CountValid(ctx context.Context, merchantID uuid.UUID, at time.Time) (int64, error)
	ApplyRedemption(ctx context.Context, tx pgx.Tx, id uuid.UUID, newCustomer bool) error
}

// PromotionListParams filters currently valid promotions of operating merchants.
type PromotionListParams struct {
	At         time.Time
	MerchantID *uuid.UUID
	City       *string
	CategoryID *uuid.UUID
}

// RedemptionRepository defines persistence operations for redemptions.
type RedemptionRepository interface {
	// Create fails with a ConstraintError on ConstraintRedemptionCustomerPromotion
	// when the pair was already redeemed.
	Create(ctx context.Context, tx pgx.Tx, redemption *domain.Redemption) error
	ExistsForCustomerAtMerchant(ctx context.Context, tx pgx.Tx, customerAccountID, merchantID uuid.UUID) (bool, error)
	// GetForCustomerForUpdate returns the redemption only if it belongs to customerAccountID.
	GetForCustomerForUpdate(ctx context.Context, tx pgx.Tx, id, customerAccountID uuid.UUID) (*domain.Redemption, error)
	MarkRated(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, page, pageSize int) ([]domain.Redemption, int64, error)
	ListByCustomer(ctx context.Context, customerAccountID uuid.UUID, page, pageSize int) ([]domain.Redemption, int64, error)
	CountSince(ctx context.Context, merchantID uuid.UUID, since time.Time) (int64, error)
}

// RatingRepository defines persistence operations for ratings.
// Soft-deleted ratings keep occupying their (merchant, customer) and
// redemption slots.
type RatingRepository interface {
	Create(ctx context.Context, tx pgx.Tx, rating *domain.Rating) error
	ExistsForMerchantCustomer(ctx context.Context, tx pgx.Tx, merchantID, customerAccountID uuid.UUID) (bool, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Rating, error)
	SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, page, pageSize int) ([]domain.Rating, int64, error)
	ListByCustomer(ctx context.Context, customerAccountID uuid.UUID) ([]domain.Rating, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
