package postgres

import (
	"context"
	"testing"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount() *domain.Account {
	now := testTime()
	return &domain.Account{
		ID:           uuid.New(),
		Email:        "ana@example.com",
		PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$salt$hash",
		Role:         domain.RoleCustomer,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func accountCols() []string {
	return []string{"id", "email", "password_hash", "role", "active", "email_verified", "failed_attempts",
		"lock_until", "blacklisted", "blacklist_reason", "blacklisted_at", "google_id", "apple_id",
		"refresh_token_digest", "last_login_at", "created_at", "updated_at", "deleted_at"}
}

func accountRow(rows *pgxmock.Rows, a *domain.Account) *pgxmock.Rows {
	return rows.AddRow(
		a.ID, a.Email, a.PasswordHash, string(a.Role), a.Active, a.EmailVerified, a.FailedAttempts,
		a.LockUntil, a.Blacklisted, a.BlacklistReason, a.BlacklistedAt, a.GoogleID, a.AppleID,
		a.RefreshTokenDigest, a.LastLoginAt, a.CreatedAt, a.UpdatedAt, a.DeletedAt,
	)
}

func TestAccountRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(a.ID, a.Email, a.PasswordHash, "customer", true, false,
			a.GoogleID, a.AppleID, a.CreatedAt, a.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), nil, a)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Create_DuplicateEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectBegin()
	a := newTestAccount()
	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(a.ID, a.Email, a.PasswordHash, "customer", true, false,
			a.GoogleID, a.AppleID, a.CreatedAt, a.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: ports.ConstraintAccountEmail})

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, a)
	assert.True(t, ports.IsConstraint(err, ports.ConstraintAccountEmail))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()
	a.RefreshTokenDigest = strPtr("digest")

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE email = .+ AND deleted_at IS NULL").
		WithArgs(a.Email).
		WillReturnRows(accountRow(pgxmock.NewRows(accountCols()), a))

	result, err := repo.GetByEmail(context.Background(), a.Email)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.ID, result.ID)
	assert.Equal(t, domain.RoleCustomer, result.Role)
	assert.Equal(t, "digest", *result.RefreshTokenDigest)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(accountCols()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByProvider(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()
	a.AppleID = strPtr("apple-sub")

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE apple_id").
		WithArgs("apple-sub").
		WillReturnRows(accountRow(pgxmock.NewRows(accountCols()), a))

	result, err := repo.GetByProvider(context.Background(), domain.ProviderApple, "apple-sub")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.ID, result.ID)

	_, err = repo.GetByProvider(context.Background(), domain.ProviderKind("github"), "x")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE id .+ FOR UPDATE").
		WithArgs(a.ID).
		WillReturnRows(accountRow(pgxmock.NewRows(accountCols()), a))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), dbTx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.Email, result.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_SwapRefreshDigest(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE accounts SET refresh_token_digest .+ AND refresh_token_digest").
		WithArgs("new", id, "old").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE accounts SET refresh_token_digest .+ AND refresh_token_digest").
		WithArgs("newer", id, "old").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	swapped, err := repo.SwapRefreshDigest(context.Background(), id, "old", "new")
	require.NoError(t, err)
	assert.True(t, swapped)

	swapped, err = repo.SwapRefreshDigest(context.Background(), id, "old", "newer")
	require.NoError(t, err)
	assert.False(t, swapped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_SetBlacklist(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	id := uuid.New()
	at := testTime()
	reason := strPtr("spam")

	mock.ExpectExec("UPDATE accounts SET blacklisted = TRUE, blacklist_reason = .+ refresh_token_digest = NULL").
		WithArgs(reason, &at, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE accounts SET blacklisted = FALSE").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SetBlacklist(context.Background(), nil, id, reason, &at))
	require.NoError(t, repo.SetBlacklist(context.Background(), nil, id, nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_LinkProvider_Conflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectExec("UPDATE accounts SET google_id").
		WithArgs("google-sub", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: ports.ConstraintAccountGoogle})

	err = repo.LinkProvider(context.Background(), nil, uuid.New(), domain.ProviderGoogle, "google-sub")
	assert.True(t, ports.IsConstraint(err, ports.ConstraintAccountGoogle))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()
	b := newTestAccount()
	b.Email = "bea@example.com"
	role := domain.RoleCustomer

	mock.ExpectQuery("SELECT COUNT.+ FROM accounts WHERE deleted_at IS NULL AND role = .+ AND blacklisted = TRUE").
		WithArgs("customer").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE .+ ORDER BY created_at DESC, id LIMIT").
		WithArgs("customer", 20, 0).
		WillReturnRows(accountRow(accountRow(pgxmock.NewRows(accountCols()), a), b))

	list, total, err := repo.List(context.Background(), ports.AccountListParams{Role: &role, BlacklistedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 2)
	assert.Equal(t, "bea@example.com", list[1].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}
