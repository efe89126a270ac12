package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/apperror"
	"qr-loyalty-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LockoutPolicy configures brute-force protection.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// DefaultLockoutPolicy locks an account for 2 hours after 5 failures.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		MaxAttempts:  domain.DefaultMaxLoginAttempts,
		LockDuration: domain.DefaultLockDuration,
	}
}

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	accountRepo  ports.AccountRepository
	customerRepo ports.CustomerRepository
	hashSvc      ports.HashService
	encSvc       ports.EncryptionService
	tokenSvc     ports.TokenService
	sigSvc       ports.SignatureService
	transactor   ports.DBTransactor
	policy       LockoutPolicy
	log          zerolog.Logger
	now          func() time.Time
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	accountRepo ports.AccountRepository,
	customerRepo ports.CustomerRepository,
	hashSvc ports.HashService,
	encSvc ports.EncryptionService,
	tokenSvc ports.TokenService,
	sigSvc ports.SignatureService,
	transactor ports.DBTransactor,
	policy LockoutPolicy,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		accountRepo:  accountRepo,
		customerRepo: customerRepo,
		hashSvc:      hashSvc,
		encSvc:       encSvc,
		tokenSvc:     tokenSvc,
		sigSvc:       sigSvc,
		transactor:   transactor,
		policy:       policy,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// RegisterCustomer creates a customer account and its QR-bearing profile in
// one transaction, then signs the customer in.
func (s *AuthServiceImpl) RegisterCustomer(ctx context.Context, req ports.RegisterCustomerRequest) (*ports.AuthResult, error) {
	email := domain.NormalizeEmail(req.Email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, internalError(fmt.Errorf("hash password: %w", err))
	}

	now := s.now()
	account := &domain.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         domain.RoleCustomer,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	profile, err := s.newCustomerProfile(account.ID, req.FirstName, req.LastName, req.Phone, req.City, now)
	if err != nil {
		return nil, err
	}

	return s.createAndSignIn(ctx, account, profile)
}

// RegisterMerchant creates a merchant account. The merchant profile is
// created separately once the merchant fills in the business details.
func (s *AuthServiceImpl) RegisterMerchant(ctx context.Context, req ports.RegisterMerchantRequest) (*ports.AuthResult, error) {
	email := domain.NormalizeEmail(req.Email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, internalError(fmt.Errorf("hash password: %w", err))
	}

	now := s.now()
	account := &domain.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         domain.RoleMerchant,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	return s.createAndSignIn(ctx, account, nil)
}

// Authenticate checks credentials. Blacklisting is reported before the lock,
// and the lock before the credential result.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = domain.NormalizeEmail(email)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, internalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByEmailForUpdate(ctx, dbTx, email)
	if err != nil {
		return nil, internalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	if account.Blacklisted {
		return nil, apperror.ErrBlacklisted(deref(account.BlacklistReason))
	}

	now := s.now()
	if account.IsLocked(now) {
		return nil, apperror.ErrAccountLocked()
	}

	valid, err := s.hashSvc.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, internalError(fmt.Errorf("verify password: %w", err))
	}

	if !valid {
		account.RegisterFailure(now, s.policy.MaxAttempts, s.policy.LockDuration)
		if err := s.accountRepo.UpdateLoginState(ctx, dbTx, account.ID, account.LoginState()); err != nil {
			return nil, internalError(fmt.Errorf("record failed login: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return nil, internalError(fmt.Errorf("commit tx: %w", err))
		}
		logger.FromContext(ctx, s.log).Warn().
			Str("account_id", account.ID.String()).
			Int("failed_attempts", account.FailedAttempts).
			Bool("locked", account.LockUntil != nil).
			Msg("failed login attempt")
		return nil, apperror.ErrInvalidCredentials()
	}

	if !account.Active {
		return nil, apperror.ErrAccountDisabled()
	}

	account.RegisterSuccess(now)
	if err := s.accountRepo.UpdateLoginState(ctx, dbTx, account.ID, account.LoginState()); err != nil {
		return nil, internalError(fmt.Errorf("record login: %w", err))
	}

	tokens, err := s.issueTokens(ctx, dbTx, account)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, internalError(fmt.Errorf("commit tx: %w", err))
	}

	if s.hashSvc.NeedsRehash(account.PasswordHash) {
		s.upgradeHash(ctx, account, password)
	}

	return &ports.AuthResult{Account: account, Tokens: *tokens}, nil
}

// upgradeHash replaces a legacy password hash now that the plain password is
// known. Failures only cost the upgrade, never the login.
func (s *AuthServiceImpl) upgradeHash(ctx context.Context, account *domain.Account, password string) {
	hash, err := s.hashSvc.Hash(password)
	if err == nil {
		err = s.accountRepo.UpdatePassword(ctx, account.ID, hash)
	}
	log := logger.FromContext(ctx, s.log)
	if err != nil {
		log.Warn().Err(err).Str("account_id", account.ID.String()).Msg("password hash upgrade failed")
		return
	}
	account.PasswordHash = hash
	log.Info().Str("account_id", account.ID.String()).Msg("password hash upgraded")
}

// Refresh exchanges a refresh token for a new pair. The token must verify and
// must still be the one stored for the account; the stored value is swapped
// atomically so a token can be spent only once.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (*ports.TokenPair, error) {
	claims, err := s.tokenSvc.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, apperror.ErrInvalidRefreshToken()
	}

	account, err := s.accountRepo.GetByID(ctx, claims.AccountID)
	if err != nil {
		return nil, internalError(fmt.Errorf("find account: %w", err))
	}
	if account == nil || !account.Active || account.Blacklisted || account.RefreshTokenDigest == nil {
		return nil, apperror.ErrInvalidRefreshToken()
	}
	current := *account.RefreshTokenDigest
	if !s.sigSvc.Verify(refreshToken, current) {
		return nil, apperror.ErrInvalidRefreshToken()
	}

	pair, err := s.generatePair(account)
	if err != nil {
		return nil, err
	}

	swapped, err := s.accountRepo.SwapRefreshDigest(ctx, account.ID, current, s.sigSvc.Sign(pair.RefreshToken))
	if err != nil {
		return nil, internalError(fmt.Errorf("swap refresh token: %w", err))
	}
	if !swapped {
		return nil, apperror.ErrInvalidRefreshToken()
	}

	return pair, nil
}

// LoginWithProvider signs in through an external identity provider. The
// account is found by provider id, then by email; an email match gets the
// provider linked. Unknown identities become new pre-verified customers.
func (s *AuthServiceImpl) LoginWithProvider(ctx context.Context, req ports.ProviderLoginRequest) (*ports.AuthResult, error) {
	if !req.Kind.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unsupported provider %q", req.Kind))
	}
	if req.ProviderID == "" {
		return nil, apperror.Validation("provider id is required")
	}
	email := domain.NormalizeEmail(req.Email)

	account, err := s.accountRepo.GetByProvider(ctx, req.Kind, req.ProviderID)
	if err != nil {
		return nil, internalError(fmt.Errorf("find account by provider: %w", err))
	}
	if account == nil && email != "" {
		account, err = s.accountRepo.GetByEmail(ctx, email)
		if err != nil {
			return nil, internalError(fmt.Errorf("find account by email: %w", err))
		}
	}

	if account == nil {
		if email == "" {
			return nil, apperror.Validation("email is required for first sign-in")
		}
		return s.registerFromProvider(ctx, req, email)
	}

	if account.Blacklisted {
		return nil, apperror.ErrBlacklisted(deref(account.BlacklistReason))
	}
	if !account.Active {
		return nil, apperror.ErrAccountDisabled()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, internalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if linked := account.ProviderID(req.Kind); linked == nil {
		if err := s.accountRepo.LinkProvider(ctx, dbTx, account.ID, req.Kind, req.ProviderID); err != nil {
			if ports.IsConstraint(err) {
				return nil, apperror.ErrConflict("provider identity already linked to another account")
			}
			return nil, internalError(fmt.Errorf("link provider: %w", err))
		}
		id := req.ProviderID
		setProviderID(account, req.Kind, &id)
	} else if *linked != req.ProviderID {
		return nil, apperror.ErrConflict("account is linked to a different provider identity")
	}

	account.RegisterSuccess(s.now())
	if err := s.accountRepo.UpdateLoginState(ctx, dbTx, account.ID, account.LoginState()); err != nil {
		return nil, internalError(fmt.Errorf("record login: %w", err))
	}

	tokens, err := s.issueTokens(ctx, dbTx, account)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, internalError(fmt.Errorf("commit tx: %w", err))
	}

	return &ports.AuthResult{Account: account, Tokens: *tokens}, nil
}

func (s *AuthServiceImpl) registerFromProvider(ctx context.Context, req ports.ProviderLoginRequest, email string) (*ports.AuthResult, error) {
	// The password is never disclosed; provider accounts sign in through the provider only.
	unusable, err := generateRandomHex(32)
	if err != nil {
		return nil, internalError(fmt.Errorf("generate password: %w", err))
	}
	passwordHash, err := s.hashSvc.Hash(unusable)
	if err != nil {
		return nil, internalError(fmt.Errorf("hash password: %w", err))
	}

	now := s.now()
	account := &domain.Account{
		ID:            uuid.New(),
		Email:         email,
		PasswordHash:  passwordHash,
		Role:          domain.RoleCustomer,
		Active:        true,
		EmailVerified: true,
		LastLoginAt:   &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	id := req.ProviderID
	setProviderID(account, req.Kind, &id)

	profile, err := s.newCustomerProfile(account.ID, req.FirstName, req.LastName, nil, nil, now)
	if err != nil {
		return nil, err
	}

	return s.createAndSignIn(ctx, account, profile)
}

// Logout clears the stored refresh token.
func (s *AuthServiceImpl) Logout(ctx context.Context, accountID uuid.UUID) error {
	if err := s.accountRepo.SetRefreshDigest(ctx, nil, accountID, nil); err != nil {
		return internalError(fmt.Errorf("clear refresh token: %w", err))
	}
	return nil
}

// ChangePassword replaces the password after checking the current one, and
// signs out every session.
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, accountID uuid.UUID, current, next string) error {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return internalError(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return apperror.ErrAccountNotFound()
	}

	valid, err := s.hashSvc.Verify(current, account.PasswordHash)
	if err != nil {
		return internalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return apperror.ErrInvalidCredentials()
	}

	passwordHash, err := s.hashSvc.Hash(next)
	if err != nil {
		return internalError(fmt.Errorf("hash password: %w", err))
	}

	if err := s.accountRepo.UpdatePassword(ctx, accountID, passwordHash); err != nil {
		return internalError(fmt.Errorf("update password: %w", err))
	}
	if err := s.accountRepo.SetRefreshDigest(ctx, nil, accountID, nil); err != nil {
		return internalError(fmt.Errorf("clear refresh token: %w", err))
	}

	s.log.Info().Str("account_id", accountID.String()).Msg("password changed")
	return nil
}

func (s *AuthServiceImpl) ensureEmailFree(ctx context.Context, email string) error {
	existing, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		return internalError(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		return apperror.ErrEmailExists()
	}
	return nil
}

func (s *AuthServiceImpl) newCustomerProfile(accountID uuid.UUID, firstName, lastName string, phone, city *string, now time.Time) (*domain.CustomerProfile, error) {
	qrToken, err := domain.NewQRToken()
	if err != nil {
		return nil, internalError(err)
	}

	profile := &domain.CustomerProfile{
		ID:        uuid.New(),
		AccountID: accountID,
		FirstName: firstName,
		LastName:  lastName,
		City:      city,
		QRToken:   qrToken,
		Favorites: []uuid.UUID{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if phone != nil && *phone != "" {
		enc, err := s.encSvc.Encrypt(*phone)
		if err != nil {
			return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt phone: %w", err))
		}
		profile.PhoneEncrypted = &enc
		profile.Phone = phone
	}
	return profile, nil
}

// createAndSignIn inserts the account (and customer profile, if any) and
// issues the first token pair, all in one transaction.
func (s *AuthServiceImpl) createAndSignIn(ctx context.Context, account *domain.Account, profile *domain.CustomerProfile) (*ports.AuthResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, internalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.accountRepo.Create(ctx, dbTx, account); err != nil {
		if ports.IsConstraint(err, ports.ConstraintAccountEmail) {
			return nil, apperror.ErrEmailExists()
		}
		if ports.IsConstraint(err, ports.ConstraintAccountGoogle, ports.ConstraintAccountApple) {
			return nil, apperror.ErrConflict("provider identity already linked to another account")
		}
		return nil, internalError(fmt.Errorf("create account: %w", err))
	}

	if profile != nil {
		if err := s.customerRepo.Create(ctx, dbTx, profile); err != nil {
			return nil, internalError(fmt.Errorf("create customer profile: %w", err))
		}
	}

	tokens, err := s.issueTokens(ctx, dbTx, account)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, internalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("role", string(account.Role)).
		Msg("account registered")

	return &ports.AuthResult{Account: account, Tokens: *tokens}, nil
}

// issueTokens generates a pair and stores the refresh digest in the
// account's single slot, replacing any previous one.
func (s *AuthServiceImpl) issueTokens(ctx context.Context, tx pgx.Tx, account *domain.Account) (*ports.TokenPair, error) {
	pair, err := s.generatePair(account)
	if err != nil {
		return nil, err
	}

	digest := s.sigSvc.Sign(pair.RefreshToken)
	if err := s.accountRepo.SetRefreshDigest(ctx, tx, account.ID, &digest); err != nil {
		return nil, internalError(fmt.Errorf("store refresh token: %w", err))
	}
	account.RefreshTokenDigest = &digest
	return pair, nil
}

func (s *AuthServiceImpl) generatePair(account *domain.Account) (*ports.TokenPair, error) {
	access, accessExp, err := s.tokenSvc.GenerateAccess(account.ID, account.Role)
	if err != nil {
		return nil, internalError(fmt.Errorf("generate access token: %w", err))
	}
	refresh, refreshExp, err := s.tokenSvc.GenerateRefresh(account.ID)
	if err != nil {
		return nil, internalError(fmt.Errorf("generate refresh token: %w", err))
	}
	return &ports.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func setProviderID(a *domain.Account, kind domain.ProviderKind, id *string) {
	switch kind {
	case domain.ProviderGoogle:
		a.GoogleID = id
	case domain.ProviderApple:
		a.AppleID = id
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// generateRandomHex generates a random hex string of n bytes.
func generateRandomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
