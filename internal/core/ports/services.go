package ports

import (
	"context"
	"time"

	"qr-loyalty-backend/internal/core/domain"

	"github.com/google/uuid"
)

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService computes keyed HMAC-SHA256 digests.
type SignatureService interface {
	Sign(payload string) string
	Verify(payload string, signature string) bool
}

// HashService handles password hashing.
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
	// NeedsRehash reports whether hash predates the current algorithm or cost.
	NeedsRehash(hash string) bool
}

// TokenService issues and validates access and refresh JWTs.
type TokenService interface {
	GenerateAccess(accountID uuid.UUID, role domain.Role) (string, time.Time, error)
	GenerateRefresh(accountID uuid.UUID) (string, time.Time, error)
	ValidateAccess(tokenString string) (*TokenClaims, error)
	ValidateRefresh(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AccountID uuid.UUID
	Role      domain.Role
	TokenID   string
}

// TokenPair is an access token with its companion refresh token.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// CategoryCache is the Redis-layer cache of the category list.
type CategoryCache interface {
	Get(ctx context.Context) ([]domain.Category, error) // nil, nil on miss
	Set(ctx context.Context, categories []domain.Category, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// RateLimitResult is the outcome of one rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix seconds
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// AuditService records audit entries without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Service Ports (Business Logic) ---

// AuthService defines authentication business logic.
type AuthService interface {
	RegisterCustomer(ctx context.Context, req RegisterCustomerRequest) (*AuthResult, error)
	RegisterMerchant(ctx context.Context, req RegisterMerchantRequest) (*AuthResult, error)
	Authenticate(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	LoginWithProvider(ctx context.Context, req ProviderLoginRequest) (*AuthResult, error)
	Logout(ctx context.Context, accountID uuid.UUID) error
	ChangePassword(ctx context.Context, accountID uuid.UUID, current, next string) error
}

// RegisterCustomerRequest holds input for customer registration.
type RegisterCustomerRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	City      *string
}

// RegisterMerchantRequest holds input for merchant account registration.
type RegisterMerchantRequest struct {
	Email    string
	Password string
}

// ProviderLoginRequest holds the identity asserted by an external provider.
type ProviderLoginRequest struct {
	Kind       domain.ProviderKind
	ProviderID string
	Email      string
	FirstName  string
	LastName   string
}

// AuthResult is the account together with a freshly issued token pair.
type AuthResult struct {
	Account *domain.Account
	Tokens  TokenPair
}

// AccountService defines account self-service and administration.
type AccountService interface {
	GetProfile(ctx context.Context, accountID uuid.UUID) (*Profile, error)
	UpdateCustomerProfile(ctx context.Context, accountID uuid.UUID, upd CustomerProfileUpdate) (*domain.CustomerProfile, error)
	DeleteOwnAccount(ctx context.Context, accountID uuid.UUID) error
	ListAccounts(ctx context.Context, params AccountListParams) ([]domain.Account, int64, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	BlacklistAccount(ctx context.Context, id uuid.UUID, reason string) (*domain.Account, error)
	UnblacklistAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	VerifyEmail(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}

// Profile is an account with whichever role profile it owns.
type Profile struct {
	Account  *domain.Account         `json:"account"`
	Customer *domain.CustomerProfile `json:"customer,omitempty"`
	Merchant *domain.Merchant        `json:"merchant,omitempty"`
}

// CustomerProfileUpdate is a partial update; nil fields are left untouched.
type CustomerProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
	City      *string
}

// MerchantService defines the merchant catalog.
type MerchantService interface {
	CreateProfile(ctx context.Context, accountID uuid.UUID, in MerchantProfileInput) (*domain.Merchant, error)
	GetMine(ctx context.Context, accountID uuid.UUID) (*domain.Merchant, error)
	UpdateMine(ctx context.Context, accountID uuid.UUID, in MerchantProfileInput) (*domain.Merchant, error)
	AddImage(ctx context.Context, accountID uuid.UUID, url string) (*domain.Merchant, error)
	RemoveImage(ctx context.Context, accountID uuid.UUID, index int) (*domain.Merchant, error)
	SetPrimaryImage(ctx context.Context, accountID uuid.UUID, url string) (*domain.Merchant, error)
	UpdateOpeningHours(ctx context.Context, accountID uuid.UUID, hours domain.WeeklyHours) (*domain.Merchant, error)
	GetPublic(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	List(ctx context.Context, params MerchantListParams) ([]domain.Merchant, int64, error)
	SearchNearby(ctx context.Context, q NearbyQuery) ([]domain.Merchant, error)
	Verify(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	Blacklist(ctx context.Context, id uuid.UUID, reason string) (*domain.Merchant, error)
	Unblacklist(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MerchantProfileInput carries merchant profile fields. On create every
// required field must be set; on update nil fields are left untouched.
type MerchantProfileInput struct {
	BusinessName *string
	Description  *string
	CategoryID   *uuid.UUID
	Address      *string
	City         *string
	PostalCode   *string
	Phone        *string
	Website      *string
	Latitude     *float64
	Longitude    *float64
}

// NearbyQuery describes a proximity search.
type NearbyQuery struct {
	Latitude   float64
	Longitude  float64
	RadiusKm   float64
	CategoryID *uuid.UUID
}

// CategoryService defines the category tree.
type CategoryService interface {
	List(ctx context.Context) ([]domain.Category, error)
	Tree(ctx context.Context) ([]*domain.CategoryNode, error)
	Get(ctx context.Context, id uuid.UUID) (*CategoryDetail, error)
	Create(ctx context.Context, in CategoryInput) (*domain.Category, error)
	Update(ctx context.Context, id uuid.UUID, in CategoryInput) (*domain.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryDetail is a category with its root-first ancestry.
type CategoryDetail struct {
	Category   domain.Category   `json:"category"`
	Breadcrumb []domain.Category `json:"breadcrumb"`
}

// CategoryInput carries category fields; nil fields are left untouched on update.
// ClearParent moves the category to the root.
type CategoryInput struct {
	Name         *string
	Slug         *string
	Description  *string
	Icon         *string
	ParentID     *uuid.UUID
	ClearParent  bool
	DisplayOrder *int
	Active       *bool
}

// PromotionService defines the promotion registry.
type PromotionService interface {
	Create(ctx context.Context, accountID uuid.UUID, in PromotionInput) (*domain.Promotion, error)
	Update(ctx context.Context, accountID, id uuid.UUID, in PromotionInput) (*domain.Promotion, error)
	Delete(ctx context.Context, accountID, id uuid.UUID) error
	ListMine(ctx context.Context, accountID uuid.UUID) ([]domain.Promotion, error)
	ListValid(ctx context.Context, params PromotionListParams) ([]domain.Promotion, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Promotion, error)
	AdminDelete(ctx context.Context, id uuid.UUID) error
}

// PromotionInput carries promotion fields; nil fields are left untouched on update.
type PromotionInput struct {
	Title       *string
	Description *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	Active      *bool
}

// RedemptionService defines the redemption engine.
type RedemptionService interface {
	Redeem(ctx context.Context, qrToken string, promotionID, merchantAccountID uuid.UUID) (*domain.RedemptionReceipt, error)
	MerchantHistory(ctx context.Context, merchantAccountID uuid.UUID, page, pageSize int) ([]domain.Redemption, int64, error)
	CustomerHistory(ctx context.Context, customerAccountID uuid.UUID, page, pageSize int) ([]domain.Redemption, int64, error)
	CustomerStats(ctx context.Context, customerAccountID uuid.UUID) (*domain.CustomerStats, error)
}

// RatingService defines the rating ledger.
type RatingService interface {
	Rate(ctx context.Context, customerAccountID, redemptionID uuid.UUID, score int, comment *string) (*RatingResult, error)
	DeleteRating(ctx context.Context, ratingID uuid.UUID) (*domain.RatingAggregate, error)
	ListForMerchant(ctx context.Context, merchantID uuid.UUID, page, pageSize int) ([]domain.Rating, int64, error)
	ListMine(ctx context.Context, customerAccountID uuid.UUID) ([]domain.Rating, error)
}

// RatingResult is the stored rating and the merchant aggregate it produced.
type RatingResult struct {
	Rating    *domain.Rating
	Aggregate domain.RatingAggregate
}

// CustomerService defines customer favorites.
type CustomerService interface {
	AddFavorite(ctx context.Context, accountID, merchantID uuid.UUID) error
	RemoveFavorite(ctx context.Context, accountID, merchantID uuid.UUID) error
	ListFavorites(ctx context.Context, accountID uuid.UUID) ([]domain.Merchant, error)
}

// ReportingService defines merchant dashboard statistics.
type ReportingService interface {
	MerchantStats(ctx context.Context, merchantAccountID uuid.UUID) (*domain.MerchantStats, error)
}
