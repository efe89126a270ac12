package service

import (
	"context"
	"testing"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_ProfileRoundTrip(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	acc, _ := s.registerCustomer(t, "ana@example.com")

	_, err := s.account.UpdateCustomerProfile(ctx, acc.ID, ports.CustomerProfileUpdate{
		FirstName: strPtr("Anabel"),
		Phone:     strPtr("+34611111111"),
		City:      strPtr("Sevilla"),
	})
	require.NoError(t, err)

	stored, err := s.customers.GetByAccountID(ctx, acc.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PhoneEncrypted)
	assert.NotEqual(t, "+34611111111", *stored.PhoneEncrypted)

	profile, err := s.account.GetProfile(ctx, acc.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.Customer)
	assert.Nil(t, profile.Merchant)
	assert.Equal(t, "Anabel", profile.Customer.FirstName)
	require.NotNil(t, profile.Customer.Phone)
	assert.Equal(t, "+34611111111", *profile.Customer.Phone)

	_, err = s.account.UpdateCustomerProfile(ctx, acc.ID, ports.CustomerProfileUpdate{Phone: strPtr("")})
	require.NoError(t, err)
	profile, err = s.account.GetProfile(ctx, acc.ID)
	require.NoError(t, err)
	assert.Nil(t, profile.Customer.Phone)
}

func TestAccountService_MerchantProfile(t *testing.T) {
	s := newStack(t)
	acc, m := s.registerMerchant(t, "shop@example.com")

	profile, err := s.account.GetProfile(context.Background(), acc.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.Merchant)
	assert.Equal(t, m.ID, profile.Merchant.ID)
	assert.Nil(t, profile.Customer)
}

func TestAccountService_Blacklist(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	acc, _ := s.registerCustomer(t, "ana@example.com")

	_, err := s.account.BlacklistAccount(ctx, acc.ID, "")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = s.account.BlacklistAccount(ctx, uuid.New(), "spam")
	assert.ErrorIs(t, err, apperror.ErrAccountNotFound())

	blocked, err := s.account.BlacklistAccount(ctx, acc.ID, "spam")
	require.NoError(t, err)
	assert.True(t, blocked.Blacklisted)
	assert.False(t, blocked.Active)

	stored, err := s.accounts.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RefreshTokenDigest)

	list, total, err := s.account.ListAccounts(ctx, ports.AccountListParams{BlacklistedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)

	restored, err := s.account.UnblacklistAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, restored.Blacklisted)
	assert.True(t, restored.Active)

	_, err = s.auth.Authenticate(ctx, "ana@example.com", "Secret123!")
	assert.NoError(t, err)
}

func TestAccountService_ListAccounts(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	s.registerCustomer(t, "a@example.com")
	s.registerCustomer(t, "b@example.com")
	s.registerMerchant(t, "m@example.com")

	role := domain.RoleCustomer
	rows, total, err := s.account.ListAccounts(ctx, ports.AccountListParams{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, rows, 2)

	bad := domain.Role("root")
	_, _, err = s.account.ListAccounts(ctx, ports.AccountListParams{Role: &bad})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestAccountService_VerifyEmail(t *testing.T) {
	s := newStack(t)
	acc, _ := s.registerCustomer(t, "ana@example.com")

	verified, err := s.account.VerifyEmail(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)
}

func TestAccountService_DeleteCustomer(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	acc, profile := s.registerCustomer(t, "ana@example.com")

	require.NoError(t, s.account.DeleteOwnAccount(ctx, acc.ID))

	_, err := s.account.GetAccount(ctx, acc.ID)
	assert.ErrorIs(t, err, apperror.ErrAccountNotFound())

	p, err := s.customers.GetByQRToken(ctx, profile.QRToken)
	require.NoError(t, err)
	assert.Nil(t, p)

	// The email is free again.
	s.registerCustomer(t, "ana@example.com")
}

func TestAccountService_DeleteMerchant(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	acc, m := s.registerMerchant(t, "shop@example.com")

	require.NoError(t, s.account.DeleteAccount(ctx, acc.ID))

	gone, err := s.merchants.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	cat, err := s.categories.GetByID(ctx, m.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cat.MerchantCount)

	assert.ErrorIs(t, s.account.DeleteAccount(ctx, acc.ID), apperror.ErrAccountNotFound())
}
