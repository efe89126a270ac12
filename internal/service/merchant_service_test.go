package service

import (
	"context"
	"fmt"
	"testing"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/internal/core/ports/mocks"
	"qr-loyalty-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMerchantService_CreateProfile_MissingFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMerchantService(mocks.NewMockMerchantRepository(ctrl), mocks.NewMockCategoryRepository(ctrl),
		mocks.NewMockDBTransactor(ctrl), newTestLogger())

	_, err := svc.CreateProfile(context.Background(), uuid.New(), ports.MerchantProfileInput{BusinessName: strPtr("Cafe")})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestMerchantService_CreateProfile_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockMerchantRepository(ctrl)
	svc := NewMerchantService(mockRepo, mocks.NewMockCategoryRepository(ctrl), mocks.NewMockDBTransactor(ctrl), newTestLogger())

	accountID := uuid.New()
	mockRepo.EXPECT().GetByAccountID(gomock.Any(), accountID).Return(&domain.Merchant{ID: uuid.New()}, nil)

	_, err := svc.CreateProfile(context.Background(), accountID, ports.MerchantProfileInput{
		BusinessName: strPtr("Cafe"),
		CategoryID:   uuidPtr(uuid.New()),
		Address:      strPtr("Main St"),
		City:         strPtr("Madrid"),
		Latitude:     floatPtr(40),
		Longitude:    floatPtr(-3),
	})
	assert.ErrorIs(t, err, apperror.ErrConflict(""))
}

func TestMerchantService_CreateProfile_UnknownCategory(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockMerchantRepository(ctrl)
	mockCats := mocks.NewMockCategoryRepository(ctrl)
	svc := NewMerchantService(mockRepo, mockCats, mocks.NewMockDBTransactor(ctrl), newTestLogger())

	mockRepo.EXPECT().GetByAccountID(gomock.Any(), gomock.Any()).Return(nil, nil)
	mockCats.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := svc.CreateProfile(context.Background(), uuid.New(), ports.MerchantProfileInput{
		BusinessName: strPtr("Cafe"),
		CategoryID:   uuidPtr(uuid.New()),
		Address:      strPtr("Main St"),
		City:         strPtr("Madrid"),
		Latitude:     floatPtr(40),
		Longitude:    floatPtr(-3),
	})
	assert.ErrorIs(t, err, apperror.ErrNotFound("category"))
}

func TestMerchantService_GetPublic_HidesBlacklisted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockMerchantRepository(ctrl)
	svc := NewMerchantService(mockRepo, mocks.NewMockCategoryRepository(ctrl), mocks.NewMockDBTransactor(ctrl), newTestLogger())

	id := uuid.New()
	mockRepo.EXPECT().GetByID(gomock.Any(), id).Return(&domain.Merchant{ID: id, Active: false, Blacklisted: true}, nil)

	_, err := svc.GetPublic(context.Background(), id)
	assert.ErrorIs(t, err, apperror.ErrNotFound("merchant"))
}

func TestMerchantService_ProfileLifecycle(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	acc, m := s.registerMerchant(t, "shop@example.com")
	assert.True(t, m.Active)
	assert.False(t, m.Verified)

	cat, err := s.categories.GetByID(ctx, m.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cat.MerchantCount)

	moved := s.createCategory(t, "Bakery", nil)
	updated, err := s.merchant.UpdateMine(ctx, acc.ID, ports.MerchantProfileInput{
		CategoryID: uuidPtr(moved.ID),
		Website:    strPtr("https://cafesol.example"),
	})
	require.NoError(t, err)
	assert.Equal(t, moved.ID, updated.CategoryID)

	cat, err = s.categories.GetByID(ctx, m.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cat.MerchantCount)
	cat, err = s.categories.GetByID(ctx, moved.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cat.MerchantCount)

	public, err := s.merchant.GetPublic(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), public.TotalVisits)

	verified, err := s.merchant.Verify(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, verified.Verified)

	_, err = s.merchant.Blacklist(ctx, m.ID, "  ")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	bl, err := s.merchant.Blacklist(ctx, m.ID, "fake reviews")
	require.NoError(t, err)
	assert.True(t, bl.Blacklisted)
	_, err = s.merchant.GetPublic(ctx, m.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound("merchant"))

	_, err = s.merchant.Unblacklist(ctx, m.ID)
	require.NoError(t, err)
	_, err = s.merchant.GetPublic(ctx, m.ID)
	require.NoError(t, err)

	require.NoError(t, s.merchant.Delete(ctx, m.ID))
	cat, err = s.categories.GetByID(ctx, moved.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cat.MerchantCount)

	_, err = s.merchant.GetMine(ctx, acc.ID)
	assert.ErrorIs(t, err, apperror.ErrMerchantProfileMissing())
}

func TestMerchantService_Gallery(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	acc, _ := s.registerMerchant(t, "shop@example.com")

	for i := 0; i < domain.MaxGalleryImages; i++ {
		_, err := s.merchant.AddImage(ctx, acc.ID, fmt.Sprintf("https://img.example/%d.jpg", i))
		require.NoError(t, err)
	}

	_, err := s.merchant.AddImage(ctx, acc.ID, "https://img.example/extra.jpg")
	assert.ErrorIs(t, err, apperror.ErrImageLimitExceeded(domain.MaxGalleryImages))

	m, err := s.merchant.SetPrimaryImage(ctx, acc.ID, "https://img.example/2.jpg")
	require.NoError(t, err)
	require.NotNil(t, m.PrimaryImage)

	m, err = s.merchant.RemoveImage(ctx, acc.ID, 2)
	require.NoError(t, err)
	assert.Len(t, m.Images, domain.MaxGalleryImages-1)
	assert.Nil(t, m.PrimaryImage)
	assert.NotContains(t, m.Images, "https://img.example/2.jpg")

	_, err = s.merchant.RemoveImage(ctx, acc.ID, 10)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = s.merchant.AddImage(ctx, acc.ID, "https://img.example/extra.jpg")
	require.NoError(t, err)
}

func TestMerchantService_OpeningHours(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	acc, _ := s.registerMerchant(t, "shop@example.com")

	m, err := s.merchant.UpdateOpeningHours(ctx, acc.ID, domain.WeeklyHours{
		"monday": {Open: true, Start: "08:00", End: "20:00"},
		"sunday": {Open: false},
	})
	require.NoError(t, err)
	assert.Equal(t, "08:00", m.Hours["monday"].Start)

	tests := []struct {
		name  string
		hours domain.WeeklyHours
	}{
		{"unknown day", domain.WeeklyHours{"funday": {Open: false}}},
		{"bad start", domain.WeeklyHours{"monday": {Open: true, Start: "8am", End: "20:00"}}},
		{"end before start", domain.WeeklyHours{"friday": {Open: true, Start: "18:00", End: "09:00"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.merchant.UpdateOpeningHours(ctx, acc.ID, tt.hours)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		})
	}
}

func TestMerchantService_SearchNearby(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	_, sol := s.registerMerchant(t, "sol@example.com")
	northAcc, north := s.registerMerchant(t, "north@example.com")
	bcnAcc, _ := s.registerMerchant(t, "bcn@example.com")

	_, err := s.merchant.UpdateMine(ctx, northAcc.ID, ports.MerchantProfileInput{
		Latitude: floatPtr(40.4530), Longitude: floatPtr(-3.6883),
	})
	require.NoError(t, err)
	_, err = s.merchant.UpdateMine(ctx, bcnAcc.ID, ports.MerchantProfileInput{
		City: strPtr("Barcelona"), Latitude: floatPtr(41.3874), Longitude: floatPtr(2.1686),
	})
	require.NoError(t, err)

	hits, err := s.merchant.SearchNearby(ctx, ports.NearbyQuery{Latitude: 40.4168, Longitude: -3.7038})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, sol.ID, hits[0].ID)
	assert.Equal(t, north.ID, hits[1].ID)
	require.NotNil(t, hits[1].DistanceKm)
	assert.InDelta(t, 4.2, *hits[1].DistanceKm, 0.3)

	wide, err := s.merchant.SearchNearby(ctx, ports.NearbyQuery{Latitude: 40.4168, Longitude: -3.7038, RadiusKm: 1000})
	require.NoError(t, err)
	assert.Len(t, wide, 3)

	_, err = s.merchant.SearchNearby(ctx, ports.NearbyQuery{Latitude: 91, Longitude: 0})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	list, total, err := s.merchant.List(ctx, ports.MerchantListParams{City: strPtr("barcelona")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
}
