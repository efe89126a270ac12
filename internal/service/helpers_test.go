package service

import (
	"context"
	"io"
	"testing"
	"time"

	"qr-loyalty-backend/internal/adapter/storage/memory"
	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testEncryptionKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// testClock is a settable clock shared by every service of a stack.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// stack wires every service over one in-memory store.
type stack struct {
	store  *memory.Store
	clock  *testClock
	hasher *Argon2HashService

	accounts    *memory.AccountRepo
	customers   *memory.CustomerRepo
	merchants   *memory.MerchantRepo
	categories  *memory.CategoryRepo
	promotions  *memory.PromotionRepo
	redemptions *memory.RedemptionRepo
	ratings     *memory.RatingRepo

	auth       *AuthServiceImpl
	account    *AccountServiceImpl
	merchant   *merchantService
	category   *CategoryServiceImpl
	promotion  *PromotionServiceImpl
	redemption *RedemptionServiceImpl
	rating     *RatingServiceImpl
	customer   *customerService
	reporting  *reportingService
}

func newStack(t *testing.T) *stack {
	t.Helper()

	store := memory.NewStore()
	tx := memory.NewTransactor(store)
	clock := &testClock{t: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
	log := newTestLogger()

	enc, err := NewAESEncryptionService(testEncryptionKey)
	require.NoError(t, err)
	hasher := NewArgon2HashService()
	tokens := NewJWTTokenService("access-secret", 15*time.Minute, "refresh-secret", 24*time.Hour, "qr-loyalty-test")
	sig := NewHMACSignatureService("refresh-digest-key")

	s := &stack{
		store:       store,
		clock:       clock,
		hasher:      hasher,
		accounts:    memory.NewAccountRepo(store),
		customers:   memory.NewCustomerRepo(store),
		merchants:   memory.NewMerchantRepo(store),
		categories:  memory.NewCategoryRepo(store),
		promotions:  memory.NewPromotionRepo(store),
		redemptions: memory.NewRedemptionRepo(store),
		ratings:     memory.NewRatingRepo(store),
	}

	s.auth = NewAuthService(s.accounts, s.customers, hasher, enc, tokens, sig, tx, DefaultLockoutPolicy(), log)
	s.auth.now = clock.now
	s.account = NewAccountService(s.accounts, s.customers, s.merchants, s.categories, enc, tx, log)
	s.account.now = clock.now
	s.merchant = NewMerchantService(s.merchants, s.categories, tx, log).(*merchantService)
	s.merchant.now = clock.now
	s.category = NewCategoryService(s.categories, nil, 0, log)
	s.category.now = clock.now
	s.promotion = NewPromotionService(s.promotions, s.merchants, log)
	s.promotion.now = clock.now
	s.redemption = NewRedemptionService(s.accounts, s.customers, s.merchants, s.promotions, s.redemptions, tx, log)
	s.redemption.now = clock.now
	s.rating = NewRatingService(s.ratings, s.redemptions, s.merchants, s.customers, tx, log)
	s.rating.now = clock.now
	s.customer = NewCustomerService(s.customers, s.merchants, log).(*customerService)
	s.reporting = NewReportingService(s.merchants, s.promotions, s.redemptions).(*reportingService)
	s.reporting.now = clock.now
	return s
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }

func timePtr(t time.Time) *time.Time { return &t }

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }

// registerCustomer creates a customer and returns the account with its profile.
func (s *stack) registerCustomer(t *testing.T, email string) (*domain.Account, *domain.CustomerProfile) {
	t.Helper()
	ctx := context.Background()
	res, err := s.auth.RegisterCustomer(ctx, ports.RegisterCustomerRequest{
		Email:     email,
		Password:  "Secret123!",
		FirstName: "Ana",
		LastName:  "Lopez",
	})
	require.NoError(t, err)
	profile, err := s.customers.GetByAccountID(ctx, res.Account.ID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	return res.Account, profile
}

func (s *stack) createCategory(t *testing.T, name string, parent *uuid.UUID) *domain.Category {
	t.Helper()
	c, err := s.category.Create(context.Background(), ports.CategoryInput{Name: strPtr(name), ParentID: parent})
	require.NoError(t, err)
	return c
}

// registerMerchant creates a merchant account with a profile in a fresh category.
func (s *stack) registerMerchant(t *testing.T, email string) (*domain.Account, *domain.Merchant) {
	t.Helper()
	ctx := context.Background()
	res, err := s.auth.RegisterMerchant(ctx, ports.RegisterMerchantRequest{Email: email, Password: "Secret123!"})
	require.NoError(t, err)

	cat := s.createCategory(t, "Cafe "+email, nil)
	m, err := s.merchant.CreateProfile(ctx, res.Account.ID, ports.MerchantProfileInput{
		BusinessName: strPtr("Cafe Sol"),
		CategoryID:   uuidPtr(cat.ID),
		Address:      strPtr("Calle Mayor 1"),
		City:         strPtr("Madrid"),
		Latitude:     floatPtr(40.4168),
		Longitude:    floatPtr(-3.7038),
	})
	require.NoError(t, err)
	return res.Account, m
}

// createPromotion publishes a promotion valid for a day around the stack clock.
func (s *stack) createPromotion(t *testing.T, merchantAccountID uuid.UUID, title string) *domain.Promotion {
	t.Helper()
	now := s.clock.now()
	p, err := s.promotion.Create(context.Background(), merchantAccountID, ports.PromotionInput{
		Title:    strPtr(title),
		StartsAt: timePtr(now.Add(-time.Hour)),
		EndsAt:   timePtr(now.Add(23 * time.Hour)),
	})
	require.NoError(t, err)
	return p
}
