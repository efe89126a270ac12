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

func ratingCols() []string {
	return []string{"id", "merchant_id", "customer_account_id", "redemption_id", "score", "comment", "created_at", "deleted_at"}
}

func newTestRating() *domain.Rating {
	return &domain.Rating{
		ID:                uuid.New(),
		MerchantID:        uuid.New(),
		CustomerAccountID: uuid.New(),
		RedemptionID:      uuid.New(),
		Score:             4,
		Comment:           strPtr("Great flat white"),
		CreatedAt:         testTime(),
	}
}

func ratingRow(rows *pgxmock.Rows, rt *domain.Rating) *pgxmock.Rows {
	return rows.AddRow(rt.ID, rt.MerchantID, rt.CustomerAccountID, rt.RedemptionID, rt.Score,
		rt.Comment, rt.CreatedAt, rt.DeletedAt)
}

func TestRatingRepo_Create_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRatingRepo(mock)
	rt := newTestRating()

	mock.ExpectExec("INSERT INTO ratings").
		WithArgs(rt.ID, rt.MerchantID, rt.CustomerAccountID, rt.RedemptionID, 4, rt.Comment, rt.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: ports.ConstraintRatingMerchantCustomer})

	err = repo.Create(context.Background(), nil, rt)
	assert.True(t, ports.IsConstraint(err, ports.ConstraintRatingMerchantCustomer))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRatingRepo(mock)
	rt := newTestRating()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM ratings WHERE id = .+ AND deleted_at IS NULL FOR UPDATE").
		WithArgs(rt.ID).
		WillReturnRows(ratingRow(pgxmock.NewRows(ratingCols()), rt))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), dbTx, rt.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 4, result.Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepo_ExistsForMerchantCustomer_IncludesDeleted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRatingRepo(mock)
	merchantID, customerID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT EXISTS .+ FROM ratings WHERE merchant_id = .+ AND customer_account_id").
		WithArgs(merchantID, customerID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsForMerchantCustomer(context.Background(), nil, merchantID, customerID)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepo_ListByMerchant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRatingRepo(mock)
	rt := newTestRating()

	mock.ExpectQuery("SELECT COUNT.+ FROM ratings WHERE merchant_id").
		WithArgs(rt.MerchantID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM ratings WHERE merchant_id .+ ORDER BY created_at DESC").
		WithArgs(rt.MerchantID, 20, 0).
		WillReturnRows(ratingRow(pgxmock.NewRows(ratingCols()), rt))

	list, total, err := repo.ListByMerchant(context.Background(), rt.MerchantID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "Great flat white", *list[0].Comment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepo_SoftDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRatingRepo(mock)
	id := uuid.New()
	at := testTime()

	mock.ExpectExec("UPDATE ratings SET deleted_at").
		WithArgs(at, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.SoftDelete(context.Background(), nil, id, at)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
