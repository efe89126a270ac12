package postgres

import (
	"context"
	"testing"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promotionCols() []string {
	return []string{"id", "merchant_id", "title", "description", "starts_at", "ends_at", "active",
		"usage_count", "unique_customers", "created_at", "updated_at", "deleted_at"}
}

func newTestPromotion(merchantID uuid.UUID) *domain.Promotion {
	now := testTime()
	return &domain.Promotion{
		ID:          uuid.New(),
		MerchantID:  merchantID,
		Title:       "Free coffee",
		Description: "With any pastry",
		StartsAt:    now.Add(-time.Hour),
		EndsAt:      now.Add(23 * time.Hour),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func promotionRow(rows *pgxmock.Rows, p *domain.Promotion) *pgxmock.Rows {
	return rows.AddRow(p.ID, p.MerchantID, p.Title, p.Description, p.StartsAt, p.EndsAt, p.Active,
		p.UsageCount, p.UniqueCustomers, p.CreatedAt, p.UpdatedAt, p.DeletedAt)
}

func TestPromotionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPromotionRepo(mock)
	p := newTestPromotion(uuid.New())

	mock.ExpectExec("INSERT INTO promotions").
		WithArgs(p.ID, p.MerchantID, p.Title, p.Description, p.StartsAt, p.EndsAt, true, p.CreatedAt, p.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepo_GetForMerchant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPromotionRepo(mock)
	p := newTestPromotion(uuid.New())
	intruder := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM promotions p WHERE p.id = .+ AND p.merchant_id").
		WithArgs(p.ID, p.MerchantID).
		WillReturnRows(promotionRow(pgxmock.NewRows(promotionCols()), p))
	mock.ExpectQuery("SELECT .+ FROM promotions p WHERE p.id = .+ AND p.merchant_id").
		WithArgs(p.ID, intruder).
		WillReturnRows(pgxmock.NewRows(promotionCols()))

	own, err := repo.GetForMerchant(context.Background(), p.ID, p.MerchantID)
	require.NoError(t, err)
	require.NotNil(t, own)
	assert.Equal(t, "Free coffee", own.Title)

	foreign, err := repo.GetForMerchant(context.Background(), p.ID, intruder)
	require.NoError(t, err)
	assert.Nil(t, foreign)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepo_ListValid(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPromotionRepo(mock)
	merchantID := uuid.New()
	p := newTestPromotion(merchantID)
	at := testTime()
	city := "Madrid"

	mock.ExpectQuery("SELECT .+ FROM promotions p JOIN merchants m .+ m.blacklisted = FALSE AND p.merchant_id = .+ AND lower.m.city. .+ ORDER BY p.ends_at").
		WithArgs(at, merchantID, city).
		WillReturnRows(promotionRow(pgxmock.NewRows(promotionCols()), p))

	list, err := repo.ListValid(context.Background(), ports.PromotionListParams{At: at, MerchantID: &merchantID, City: &city})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepo_CountValid(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPromotionRepo(mock)
	merchantID := uuid.New()
	at := testTime()

	mock.ExpectQuery("SELECT COUNT.+ FROM promotions WHERE merchant_id").
		WithArgs(merchantID, at).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

	n, err := repo.CountValid(context.Background(), merchantID, at)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepo_SoftDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPromotionRepo(mock)
	id := uuid.New()
	at := testTime()

	mock.ExpectExec("UPDATE promotions SET deleted_at").
		WithArgs(at, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.SoftDelete(context.Background(), id, at)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
