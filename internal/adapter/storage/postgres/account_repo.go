package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, email, password_hash, role, active, email_verified, failed_attempts, lock_until,
	blacklisted, blacklist_reason, blacklisted_at, google_id, apple_id, refresh_token_digest,
	last_login_at, created_at, updated_at, deleted_at`

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	a := &domain.Account{}
	var role string
	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &role, &a.Active, &a.EmailVerified,
		&a.FailedAttempts, &a.LockUntil, &a.Blacklisted, &a.BlacklistReason,
		&a.BlacklistedAt, &a.GoogleID, &a.AppleID, &a.RefreshTokenDigest,
		&a.LastLoginAt, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Role = domain.Role(role)
	return a, nil
}

func (r *AccountRepo) getOne(ctx context.Context, q querier, op, where string, args ...any) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where
	a, err := scanAccount(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, readError(op, err)
	}
	return a, nil
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `INSERT INTO accounts (id, email, password_hash, role, active, email_verified, google_id, apple_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := on(r.pool, tx).Exec(ctx, query,
		a.ID, a.Email, a.PasswordHash, string(a.Role), a.Active, a.EmailVerified,
		a.GoogleID, a.AppleID, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return writeError("insert account", err)
	}
	return nil
}

// GetByID fetches a live account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return r.getOne(ctx, r.pool, "get account by id", `id = $1 AND deleted_at IS NULL`, id)
}

// GetByEmail fetches a live account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getOne(ctx, r.pool, "get account by email", `email = $1 AND deleted_at IS NULL`, email)
}

// GetByProvider fetches the live account linked to an external identity.
func (r *AccountRepo) GetByProvider(ctx context.Context, kind domain.ProviderKind, providerID string) (*domain.Account, error) {
	column, err := providerColumn(kind)
	if err != nil {
		return nil, err
	}
	return r.getOne(ctx, r.pool, "get account by provider", column+` = $1 AND deleted_at IS NULL`, providerID)
}

// GetByIDForUpdate fetches and row-locks an account inside a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	return r.getOne(ctx, on(r.pool, tx), "get account by id for update", `id = $1 AND deleted_at IS NULL FOR UPDATE`, id)
}

// GetByEmailForUpdate fetches and row-locks an account by email.
func (r *AccountRepo) GetByEmailForUpdate(ctx context.Context, tx pgx.Tx, email string) (*domain.Account, error) {
	return r.getOne(ctx, on(r.pool, tx), "get account by email for update", `email = $1 AND deleted_at IS NULL FOR UPDATE`, email)
}

// UpdateLoginState persists the lockout counters.
func (r *AccountRepo) UpdateLoginState(ctx context.Context, tx pgx.Tx, id uuid.UUID, state domain.LoginState) error {
	query := `UPDATE accounts SET failed_attempts = $1, lock_until = $2, last_login_at = $3, updated_at = NOW()
		WHERE id = $4`
	if _, err := on(r.pool, tx).Exec(ctx, query, state.FailedAttempts, state.LockUntil, state.LastLoginAt, id); err != nil {
		return fmt.Errorf("update login state: %w", err)
	}
	return nil
}

// SetRefreshDigest overwrites the refresh-token slot.
func (r *AccountRepo) SetRefreshDigest(ctx context.Context, tx pgx.Tx, id uuid.UUID, digest *string) error {
	query := `UPDATE accounts SET refresh_token_digest = $1, updated_at = NOW() WHERE id = $2`
	if _, err := on(r.pool, tx).Exec(ctx, query, digest, id); err != nil {
		return fmt.Errorf("set refresh digest: %w", err)
	}
	return nil
}

// SwapRefreshDigest replaces the slot only if it still holds expected.
func (r *AccountRepo) SwapRefreshDigest(ctx context.Context, id uuid.UUID, expected, replacement string) (bool, error) {
	query := `UPDATE accounts SET refresh_token_digest = $1, updated_at = NOW()
		WHERE id = $2 AND refresh_token_digest = $3 AND deleted_at IS NULL`
	tag, err := r.pool.Exec(ctx, query, replacement, id, expected)
	if err != nil {
		return false, fmt.Errorf("swap refresh digest: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdatePassword stores a new password hash.
func (r *AccountRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE accounts SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.pool.Exec(ctx, query, passwordHash, id); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// LinkProvider attaches an external identity to the account.
func (r *AccountRepo) LinkProvider(ctx context.Context, tx pgx.Tx, id uuid.UUID, kind domain.ProviderKind, providerID string) error {
	column, err := providerColumn(kind)
	if err != nil {
		return err
	}
	query := `UPDATE accounts SET ` + column + ` = $1, updated_at = NOW() WHERE id = $2`
	if _, err := on(r.pool, tx).Exec(ctx, query, providerID, id); err != nil {
		return writeError("link provider", err)
	}
	return nil
}

// SetBlacklist blacklists the account when reason is set and lifts the
// blacklist otherwise. Blacklisting deactivates the account and clears its
// refresh token.
func (r *AccountRepo) SetBlacklist(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason *string, at *time.Time) error {
	query := `UPDATE accounts SET blacklisted = FALSE, blacklist_reason = NULL, blacklisted_at = NULL,
		active = TRUE, updated_at = NOW() WHERE id = $1`
	args := []any{id}
	if reason != nil {
		query = `UPDATE accounts SET blacklisted = TRUE, blacklist_reason = $1, blacklisted_at = $2,
			active = FALSE, refresh_token_digest = NULL, updated_at = NOW() WHERE id = $3`
		args = []any{reason, at, id}
	}
	if _, err := on(r.pool, tx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("set account blacklist: %w", err)
	}
	return nil
}

// SetEmailVerified marks the email as verified.
func (r *AccountRepo) SetEmailVerified(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE accounts SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("set email verified: %w", err)
	}
	return nil
}

// SoftDelete marks the account deleted, which frees its email.
func (r *AccountRepo) SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	query := `UPDATE accounts SET deleted_at = $1, active = FALSE, refresh_token_digest = NULL, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL`
	if _, err := on(r.pool, tx).Exec(ctx, query, at, id); err != nil {
		return fmt.Errorf("soft delete account: %w", err)
	}
	return nil
}

// List returns accounts with optional filters and pagination, newest first.
func (r *AccountRepo) List(ctx context.Context, params ports.AccountListParams) ([]domain.Account, int64, error) {
	conditions := []string{"deleted_at IS NULL"}
	args := []any{}
	argIdx := 1

	if params.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, string(*params.Role))
		argIdx++
	}
	if params.BlacklistedOnly {
		conditions = append(conditions, "blacklisted = TRUE")
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM accounts"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	limit, offset := limitOffset(params.Page, params.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM accounts%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		accountColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, total, nil
}

func providerColumn(kind domain.ProviderKind) (string, error) {
	switch kind {
	case domain.ProviderGoogle:
		return "google_id", nil
	case domain.ProviderApple:
		return "apple_id", nil
	}
	return "", fmt.Errorf("unsupported provider %q", kind)
}

// limitOffset applies the default page size of 20.
func limitOffset(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return pageSize, (page - 1) * pageSize
}
