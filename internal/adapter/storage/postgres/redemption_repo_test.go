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

func redemptionCols() []string {
	return []string{"id", "customer_account_id", "merchant_id", "promotion_id", "redeemed_at", "rated"}
}

func newTestRedemption() *domain.Redemption {
	return &domain.Redemption{
		ID:                uuid.New(),
		CustomerAccountID: uuid.New(),
		MerchantID:        uuid.New(),
		PromotionID:       uuid.New(),
		RedeemedAt:        testTime(),
	}
}

func TestRedemptionRepo_Create_AlreadyRedeemed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRedemptionRepo(mock)
	red := newTestRedemption()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO redemptions").
		WithArgs(red.ID, red.CustomerAccountID, red.MerchantID, red.PromotionID, red.RedeemedAt, false).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: ports.ConstraintRedemptionCustomerPromotion})

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, red)
	assert.True(t, ports.IsConstraint(err, ports.ConstraintRedemptionCustomerPromotion))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedemptionRepo_ExistsForCustomerAtMerchant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRedemptionRepo(mock)
	customerID, merchantID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(customerID, merchantID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsForCustomerAtMerchant(context.Background(), nil, customerID, merchantID)
	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedemptionRepo_GetForCustomerForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRedemptionRepo(mock)
	red := newTestRedemption()

	mock.ExpectQuery("SELECT .+ FROM redemptions WHERE id = .+ AND customer_account_id = .+ FOR UPDATE").
		WithArgs(red.ID, red.CustomerAccountID).
		WillReturnRows(pgxmock.NewRows(redemptionCols()).AddRow(
			red.ID, red.CustomerAccountID, red.MerchantID, red.PromotionID, red.RedeemedAt, false))

	result, err := repo.GetForCustomerForUpdate(context.Background(), nil, red.ID, red.CustomerAccountID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, red.PromotionID, result.PromotionID)
	assert.False(t, result.Rated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedemptionRepo_ListByCustomer(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRedemptionRepo(mock)
	red := newTestRedemption()

	mock.ExpectQuery("SELECT COUNT.+ FROM redemptions WHERE customer_account_id").
		WithArgs(red.CustomerAccountID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(21)))
	mock.ExpectQuery("SELECT .+ FROM redemptions WHERE customer_account_id .+ ORDER BY redeemed_at DESC").
		WithArgs(red.CustomerAccountID, 20, 20).
		WillReturnRows(pgxmock.NewRows(redemptionCols()).AddRow(
			red.ID, red.CustomerAccountID, red.MerchantID, red.PromotionID, red.RedeemedAt, true))

	list, total, err := repo.ListByCustomer(context.Background(), red.CustomerAccountID, 2, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(21), total)
	require.Len(t, list, 1)
	assert.True(t, list[0].Rated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedemptionRepo_CountSince(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRedemptionRepo(mock)
	merchantID := uuid.New()
	since := testTime()

	mock.ExpectQuery("SELECT COUNT.+ FROM redemptions WHERE merchant_id .+ redeemed_at").
		WithArgs(merchantID, since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	n, err := repo.CountSince(context.Background(), merchantID, since)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
