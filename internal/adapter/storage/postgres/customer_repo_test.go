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

func customerCols() []string {
	return []string{"id", "account_id", "first_name", "last_name", "phone_encrypted", "city", "qr_token",
		"scans_count", "ratings_given_count", "favorites", "created_at", "updated_at", "deleted_at"}
}

func newTestCustomer() *domain.CustomerProfile {
	now := testTime()
	return &domain.CustomerProfile{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		FirstName: "Ana",
		LastName:  "Lopez",
		QRToken:   "QRC_0123456789abcdef0123456789abcdef",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCustomerRepo_Create_DuplicateToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCustomerRepo(mock)
	p := newTestCustomer()

	mock.ExpectExec("INSERT INTO customer_profiles").
		WithArgs(p.ID, p.AccountID, p.FirstName, p.LastName, p.PhoneEncrypted, p.City,
			p.QRToken, p.CreatedAt, p.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: ports.ConstraintCustomerQRToken})

	err = repo.Create(context.Background(), nil, p)
	assert.True(t, ports.IsConstraint(err, ports.ConstraintCustomerQRToken))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepo_GetByQRToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCustomerRepo(mock)
	p := newTestCustomer()
	fav := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM customer_profiles WHERE qr_token").
		WithArgs(p.QRToken).
		WillReturnRows(pgxmock.NewRows(customerCols()).AddRow(
			p.ID, p.AccountID, p.FirstName, p.LastName, p.PhoneEncrypted, p.City, p.QRToken,
			int64(4), int64(1), []string{fav.String()}, p.CreatedAt, p.UpdatedAt, p.DeletedAt,
		))

	result, err := repo.GetByQRToken(context.Background(), p.QRToken)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.AccountID, result.AccountID)
	assert.Equal(t, int64(4), result.ScansCount)
	assert.Equal(t, []uuid.UUID{fav}, result.Favorites)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepo_GetByAccountID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCustomerRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM customer_profiles WHERE account_id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(customerCols()))

	result, err := repo.GetByAccountID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepo_Favorites(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCustomerRepo(mock)
	accountID, merchantID := uuid.New(), uuid.New()

	mock.ExpectExec("UPDATE customer_profiles SET favorites = array_append.+ ANY").
		WithArgs(merchantID, accountID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE customer_profiles SET favorites = array_remove").
		WithArgs(merchantID, accountID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.AddFavorite(context.Background(), accountID, merchantID))
	require.NoError(t, repo.RemoveFavorite(context.Background(), accountID, merchantID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepo_AdjustRatingsGiven(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCustomerRepo(mock)
	accountID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE customer_profiles SET ratings_given_count = GREATEST").
		WithArgs(-1, accountID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.AdjustRatingsGiven(context.Background(), dbTx, accountID, -1)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
