package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AccountServiceImpl implements ports.AccountService.
type AccountServiceImpl struct {
	accountRepo  ports.AccountRepository
	customerRepo ports.CustomerRepository
	merchantRepo ports.MerchantRepository
	categoryRepo ports.CategoryRepository
	encSvc       ports.EncryptionService
	transactor   ports.DBTransactor
	log          zerolog.Logger
	now          func() time.Time
}

// NewAccountService creates a new AccountServiceImpl.
func NewAccountService(
	accountRepo ports.AccountRepository,
	customerRepo ports.CustomerRepository,
	merchantRepo ports.MerchantRepository,
	categoryRepo ports.CategoryRepository,
	encSvc ports.EncryptionService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *AccountServiceImpl {
	return &AccountServiceImpl{
		accountRepo:  accountRepo,
		customerRepo: customerRepo,
		merchantRepo: merchantRepo,
		categoryRepo: categoryRepo,
		encSvc:       encSvc,
		transactor:   transactor,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// GetProfile returns the account with the profile matching its role.
func (s *AccountServiceImpl) GetProfile(ctx context.Context, accountID uuid.UUID) (*ports.Profile, error) {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	profile := &ports.Profile{Account: account}
	switch account.Role {
	case domain.RoleCustomer:
		c, err := s.loadCustomer(ctx, accountID)
		if err != nil {
			return nil, err
		}
		profile.Customer = c
	case domain.RoleMerchant:
		m, err := s.merchantRepo.GetByAccountID(ctx, accountID)
		if err != nil {
			return nil, internalError(err)
		}
		profile.Merchant = m
	}
	return profile, nil
}

// UpdateCustomerProfile applies a partial update to the caller's customer profile.
func (s *AccountServiceImpl) UpdateCustomerProfile(ctx context.Context, accountID uuid.UUID, upd ports.CustomerProfileUpdate) (*domain.CustomerProfile, error) {
	profile, err := s.loadCustomer(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.ErrNotFound("customer profile")
	}

	if upd.FirstName != nil {
		profile.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		profile.LastName = *upd.LastName
	}
	if upd.City != nil {
		profile.City = upd.City
	}
	if upd.Phone != nil {
		if *upd.Phone == "" {
			profile.Phone = nil
			profile.PhoneEncrypted = nil
		} else {
			enc, err := s.encSvc.Encrypt(*upd.Phone)
			if err != nil {
				return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt phone: %w", err))
			}
			profile.Phone = upd.Phone
			profile.PhoneEncrypted = &enc
		}
	}
	profile.UpdatedAt = s.now()

	if err := s.customerRepo.Update(ctx, profile); err != nil {
		return nil, internalError(fmt.Errorf("update customer profile: %w", err))
	}
	return profile, nil
}

// DeleteOwnAccount soft-deletes the caller's account and profile.
func (s *AccountServiceImpl) DeleteOwnAccount(ctx context.Context, accountID uuid.UUID) error {
	return s.DeleteAccount(ctx, accountID)
}

// ListAccounts lists accounts for administrators.
func (s *AccountServiceImpl) ListAccounts(ctx context.Context, params ports.AccountListParams) ([]domain.Account, int64, error) {
	if params.Role != nil && !params.Role.Valid() {
		return nil, 0, apperror.Validation(fmt.Sprintf("unknown role %q", *params.Role))
	}
	params.Page, params.PageSize = normalizePage(params.Page, params.PageSize)
	rows, total, err := s.accountRepo.List(ctx, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return rows, total, nil
}

// GetAccount returns an account by id.
func (s *AccountServiceImpl) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.getAccount(ctx, id)
}

// BlacklistAccount blocks an account. The account is deactivated and its
// refresh token cleared in the same transaction.
func (s *AccountServiceImpl) BlacklistAccount(ctx context.Context, id uuid.UUID, reason string) (*domain.Account, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.Validation("blacklist reason is required")
	}
	now := s.now()
	return s.setBlacklist(ctx, id, &reason, &now)
}

// UnblacklistAccount lifts the block and reactivates the account.
func (s *AccountServiceImpl) UnblacklistAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.setBlacklist(ctx, id, nil, nil)
}

func (s *AccountServiceImpl) setBlacklist(ctx context.Context, id uuid.UUID, reason *string, at *time.Time) (*domain.Account, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, internalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, internalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	if err := s.accountRepo.SetBlacklist(ctx, dbTx, id, reason, at); err != nil {
		return nil, internalError(fmt.Errorf("update blacklist: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, internalError(fmt.Errorf("commit tx: %w", err))
	}

	account.Blacklisted = reason != nil
	account.BlacklistReason = reason
	account.BlacklistedAt = at
	account.Active = reason == nil
	if reason != nil {
		account.RefreshTokenDigest = nil
	}

	s.log.Info().
		Str("account_id", id.String()).
		Bool("blacklisted", account.Blacklisted).
		Msg("account blacklist updated")
	return account, nil
}

// VerifyEmail marks the account's email as verified.
func (s *AccountServiceImpl) VerifyEmail(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	if _, err := s.getAccount(ctx, id); err != nil {
		return nil, err
	}
	if err := s.accountRepo.SetEmailVerified(ctx, id); err != nil {
		return nil, internalError(err)
	}
	return s.getAccount(ctx, id)
}

// DeleteAccount soft-deletes the account together with its role profile.
// A deleted merchant leaves its category's merchant count.
func (s *AccountServiceImpl) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return internalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return internalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return apperror.ErrAccountNotFound()
	}

	now := s.now()
	switch account.Role {
	case domain.RoleCustomer:
		if err := s.customerRepo.SoftDeleteByAccount(ctx, dbTx, id, now); err != nil {
			return internalError(fmt.Errorf("delete customer profile: %w", err))
		}
	case domain.RoleMerchant:
		m, err := s.merchantRepo.GetByAccountID(ctx, id)
		if err != nil {
			return internalError(fmt.Errorf("load merchant profile: %w", err))
		}
		if m != nil {
			if err := s.merchantRepo.SoftDelete(ctx, dbTx, m.ID, now); err != nil {
				return internalError(fmt.Errorf("delete merchant profile: %w", err))
			}
			if err := s.categoryRepo.AdjustMerchantCount(ctx, dbTx, m.CategoryID, -1); err != nil {
				return internalError(fmt.Errorf("update category count: %w", err))
			}
		}
	}

	if err := s.accountRepo.SoftDelete(ctx, dbTx, id, now); err != nil {
		return internalError(fmt.Errorf("delete account: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return internalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("account_id", id.String()).Msg("account deleted")
	return nil
}

func (s *AccountServiceImpl) getAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, internalError(err)
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}
	return account, nil
}

// loadCustomer returns the profile with its phone decrypted.
func (s *AccountServiceImpl) loadCustomer(ctx context.Context, accountID uuid.UUID) (*domain.CustomerProfile, error) {
	profile, err := s.customerRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, internalError(err)
	}
	if profile == nil || profile.PhoneEncrypted == nil {
		return profile, nil
	}
	phone, err := s.encSvc.Decrypt(*profile.PhoneEncrypted)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt phone: %w", err))
	}
	profile.Phone = &phone
	return profile, nil
}
