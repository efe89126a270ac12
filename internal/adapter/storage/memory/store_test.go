package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMerchant(accountID uuid.UUID) *domain.Merchant {
	return &domain.Merchant{
		ID:            uuid.New(),
		AccountID:     accountID,
		BusinessName:  "Cafe Lumiere",
		CategoryID:    uuid.New(),
		City:          "Paris",
		Active:        true,
		RatingAverage: decimal.Zero,
		Images:        []string{},
		CreatedAt:     time.Now().UTC(),
	}
}

func TestTx_RollbackRestoresWrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	merchants := NewMerchantRepo(store)
	redemptions := NewRedemptionRepo(store)
	tr := NewTransactor(store)

	m := newMerchant(uuid.New())
	require.NoError(t, merchants.Create(ctx, nil, m))

	tx, err := tr.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, merchants.ApplyRedemption(ctx, tx, m.ID, true))
	red := &domain.Redemption{ID: uuid.New(), CustomerAccountID: uuid.New(), MerchantID: m.ID, PromotionID: uuid.New()}
	require.NoError(t, redemptions.Create(ctx, tx, red))
	require.NoError(t, tx.Rollback(ctx))

	got, err := merchants.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.TotalRedemptions)
	assert.Equal(t, int64(0), got.UniqueCustomers)

	exists, err := redemptions.ExistsForCustomerAtMerchant(ctx, nil, red.CustomerAccountID, m.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTx_CommitKeepsWrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	merchants := NewMerchantRepo(store)
	tr := NewTransactor(store)

	m := newMerchant(uuid.New())
	require.NoError(t, merchants.Create(ctx, nil, m))

	tx, err := tr.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, merchants.ApplyRedemption(ctx, tx, m.ID, false))
	require.NoError(t, tx.Commit(ctx))
	assert.ErrorIs(t, tx.Rollback(ctx), pgx.ErrTxClosed)

	got, _ := merchants.GetByID(ctx, m.ID)
	assert.Equal(t, int64(1), got.TotalRedemptions)
	assert.Equal(t, int64(0), got.UniqueCustomers)
}

func TestTransactor_BeginWaitsForSlot(t *testing.T) {
	store := NewStore()
	tr := NewTransactor(store)

	tx, err := tr.Begin(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = tr.Begin(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, tx.Commit(context.Background()))
	tx2, err := tr.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback(context.Background()))
}

func TestTransactor_SerialisesTransactions(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	merchants := NewMerchantRepo(store)
	tr := NewTransactor(store)

	m := newMerchant(uuid.New())
	require.NoError(t, merchants.Create(ctx, nil, m))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := tr.Begin(ctx)
			if err != nil {
				return
			}
			defer tx.Rollback(ctx) //nolint:errcheck
			_ = merchants.ApplyRedemption(ctx, tx, m.ID, false)
			_ = tx.Commit(ctx)
		}()
	}
	wg.Wait()

	got, _ := merchants.GetByID(ctx, m.ID)
	assert.Equal(t, int64(50), got.TotalRedemptions)
}

func TestAccountRepo_Constraints(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepo(NewStore())

	gid := "google-1"
	a := &domain.Account{ID: uuid.New(), Email: "a@example.com", Role: domain.RoleCustomer, GoogleID: &gid}
	require.NoError(t, repo.Create(ctx, nil, a))

	err := repo.Create(ctx, nil, &domain.Account{ID: uuid.New(), Email: "a@example.com"})
	assert.True(t, ports.IsConstraint(err, ports.ConstraintAccountEmail))

	err = repo.Create(ctx, nil, &domain.Account{ID: uuid.New(), Email: "b@example.com", GoogleID: &gid})
	assert.True(t, ports.IsConstraint(err, ports.ConstraintAccountGoogle))

	// A deleted account frees its email.
	require.NoError(t, repo.SoftDelete(ctx, nil, a.ID, time.Now()))
	assert.NoError(t, repo.Create(ctx, nil, &domain.Account{ID: uuid.New(), Email: "a@example.com"}))
}

func TestAccountRepo_SwapRefreshDigest(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepo(NewStore())
	a := &domain.Account{ID: uuid.New(), Email: "a@example.com"}
	require.NoError(t, repo.Create(ctx, nil, a))

	first := "digest-1"
	require.NoError(t, repo.SetRefreshDigest(ctx, nil, a.ID, &first))

	ok, err := repo.SwapRefreshDigest(ctx, a.ID, "digest-1", "digest-2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SwapRefreshDigest(ctx, a.ID, "digest-1", "digest-3")
	require.NoError(t, err)
	assert.False(t, ok)

	got, _ := repo.GetByID(ctx, a.ID)
	assert.Equal(t, "digest-2", *got.RefreshTokenDigest)
}

func TestAccountRepo_BlacklistClearsSession(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepo(NewStore())
	digest := "d"
	a := &domain.Account{ID: uuid.New(), Email: "a@example.com", Active: true, RefreshTokenDigest: &digest}
	require.NoError(t, repo.Create(ctx, nil, a))

	reason := "fraud"
	now := time.Now().UTC()
	require.NoError(t, repo.SetBlacklist(ctx, nil, a.ID, &reason, &now))
	got, _ := repo.GetByID(ctx, a.ID)
	assert.True(t, got.Blacklisted)
	assert.False(t, got.Active)
	assert.Nil(t, got.RefreshTokenDigest)

	require.NoError(t, repo.SetBlacklist(ctx, nil, a.ID, nil, nil))
	got, _ = repo.GetByID(ctx, a.ID)
	assert.False(t, got.Blacklisted)
	assert.True(t, got.Active)
	assert.Nil(t, got.BlacklistReason)
}

func TestMerchantRepo_AddImageCap(t *testing.T) {
	ctx := context.Background()
	repo := NewMerchantRepo(NewStore())
	m := newMerchant(uuid.New())
	require.NoError(t, repo.Create(ctx, nil, m))

	for i := 0; i < domain.MaxGalleryImages; i++ {
		added, err := repo.AddImage(ctx, m.ID, "https://img.example.com/x.png", domain.MaxGalleryImages)
		require.NoError(t, err)
		assert.True(t, added)
	}
	added, err := repo.AddImage(ctx, m.ID, "https://img.example.com/y.png", domain.MaxGalleryImages)
	require.NoError(t, err)
	assert.False(t, added)

	got, _ := repo.GetByID(ctx, m.ID)
	assert.Len(t, got.Images, domain.MaxGalleryImages)
}

func TestRedemptionRepo_UniquePair(t *testing.T) {
	ctx := context.Background()
	repo := NewRedemptionRepo(NewStore())
	customer, promo := uuid.New(), uuid.New()

	require.NoError(t, repo.Create(ctx, nil, &domain.Redemption{ID: uuid.New(), CustomerAccountID: customer, PromotionID: promo}))
	err := repo.Create(ctx, nil, &domain.Redemption{ID: uuid.New(), CustomerAccountID: customer, PromotionID: promo})
	assert.True(t, ports.IsConstraint(err, ports.ConstraintRedemptionCustomerPromotion))
}

func TestRatingRepo_DeletedRatingKeepsSlot(t *testing.T) {
	ctx := context.Background()
	repo := NewRatingRepo(NewStore())
	merchant, customer := uuid.New(), uuid.New()
	rt := &domain.Rating{ID: uuid.New(), MerchantID: merchant, CustomerAccountID: customer, RedemptionID: uuid.New(), Score: 4}
	require.NoError(t, repo.Create(ctx, nil, rt))
	require.NoError(t, repo.SoftDelete(ctx, nil, rt.ID, time.Now()))

	got, err := repo.GetByIDForUpdate(ctx, nil, rt.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	exists, err := repo.ExistsForMerchantCustomer(ctx, nil, merchant, customer)
	require.NoError(t, err)
	assert.True(t, exists)

	err = repo.Create(ctx, nil, &domain.Rating{ID: uuid.New(), MerchantID: merchant, CustomerAccountID: customer, RedemptionID: uuid.New(), Score: 5})
	assert.True(t, ports.IsConstraint(err, ports.ConstraintRatingMerchantCustomer))
}

func TestPromotionRepo_ListValid(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	merchants := NewMerchantRepo(store)
	promos := NewPromotionRepo(store)
	now := time.Now().UTC()

	open := newMerchant(uuid.New())
	closed := newMerchant(uuid.New())
	closed.Active = false
	require.NoError(t, merchants.Create(ctx, nil, open))
	require.NoError(t, merchants.Create(ctx, nil, closed))

	valid := &domain.Promotion{ID: uuid.New(), MerchantID: open.ID, Title: "valid", StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour), Active: true}
	expired := &domain.Promotion{ID: uuid.New(), MerchantID: open.ID, Title: "expired", StartsAt: now.Add(-2 * time.Hour), EndsAt: now.Add(-time.Hour), Active: true}
	hidden := &domain.Promotion{ID: uuid.New(), MerchantID: closed.ID, Title: "hidden", StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour), Active: true}
	for _, p := range []*domain.Promotion{valid, expired, hidden} {
		require.NoError(t, promos.Create(ctx, p))
	}

	got, err := promos.ListValid(ctx, ports.PromotionListParams{At: now})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, valid.ID, got[0].ID)

	n, err := promos.CountValid(ctx, open.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCustomerRepo_Favorites(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerRepo(NewStore())
	p := &domain.CustomerProfile{ID: uuid.New(), AccountID: uuid.New(), QRToken: "QRC_1"}
	require.NoError(t, repo.Create(ctx, nil, p))

	m := uuid.New()
	require.NoError(t, repo.AddFavorite(ctx, p.AccountID, m))
	require.NoError(t, repo.AddFavorite(ctx, p.AccountID, m))
	got, _ := repo.GetByAccountID(ctx, p.AccountID)
	assert.Equal(t, []uuid.UUID{m}, got.Favorites)

	require.NoError(t, repo.RemoveFavorite(ctx, p.AccountID, m))
	got, _ = repo.GetByAccountID(ctx, p.AccountID)
	assert.Empty(t, got.Favorites)

	err := repo.Create(ctx, nil, &domain.CustomerProfile{ID: uuid.New(), AccountID: uuid.New(), QRToken: "QRC_1"})
	assert.True(t, ports.IsConstraint(err, ports.ConstraintCustomerQRToken))
}

func TestPage(t *testing.T) {
	start, end := page(45, 3, 20)
	assert.Equal(t, 40, start)
	assert.Equal(t, 45, end)

	start, end = page(5, 4, 20)
	assert.Equal(t, 5, start)
	assert.Equal(t, 5, end)
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthCheck(NewStore())
	assert.Equal(t, "memory", h.Name())
	assert.True(t, h.Critical())
	assert.NoError(t, h.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.Ping(ctx), context.Canceled)
}
