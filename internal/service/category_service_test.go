package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/internal/core/ports/mocks"
	"qr-loyalty-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCategoryService_TreeAndBreadcrumb(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	food := s.createCategory(t, "Food", nil)
	cafes := s.createCategory(t, "Cafes", &food.ID)
	specialty := s.createCategory(t, "Specialty Coffee", &cafes.ID)
	s.createCategory(t, "Retail", nil)

	assert.Equal(t, "specialty-coffee", specialty.Slug)

	tree, err := s.category.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)

	detail, err := s.category.Get(ctx, specialty.ID)
	require.NoError(t, err)
	require.Len(t, detail.Breadcrumb, 3)
	assert.Equal(t, food.ID, detail.Breadcrumb[0].ID)
	assert.Equal(t, specialty.ID, detail.Breadcrumb[2].ID)

	_, err = s.category.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound("category"))
}

func TestCategoryService_RejectsCycles(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	food := s.createCategory(t, "Food", nil)
	cafes := s.createCategory(t, "Cafes", &food.ID)
	specialty := s.createCategory(t, "Specialty", &cafes.ID)

	_, err := s.category.Update(ctx, food.ID, ports.CategoryInput{ParentID: &specialty.ID})
	assert.ErrorIs(t, err, apperror.ErrCategoryCycle())

	_, err = s.category.Update(ctx, food.ID, ports.CategoryInput{ParentID: &food.ID})
	assert.ErrorIs(t, err, apperror.ErrCategoryCycle())

	moved, err := s.category.Update(ctx, specialty.ID, ports.CategoryInput{ClearParent: true})
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)
}

func TestCategoryService_UniqueNames(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	first := s.createCategory(t, "Food", nil)
	_, err := s.category.Create(ctx, ports.CategoryInput{Name: strPtr("Food")})
	assert.ErrorIs(t, err, apperror.ErrConflict(""))

	require.NoError(t, s.category.Delete(ctx, first.ID))
	s.createCategory(t, "Food", nil)

	_, err = s.category.Create(ctx, ports.CategoryInput{Name: strPtr("  ")})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = s.category.Create(ctx, ports.CategoryInput{Name: strPtr("Orphan"), ParentID: uuidPtr(uuid.New())})
	assert.ErrorIs(t, err, apperror.ErrNotFound("parent category"))
}

func TestCategoryService_RenameReslugs(t *testing.T) {
	s := newStack(t)
	c := s.createCategory(t, "Food", nil)

	updated, err := s.category.Update(context.Background(), c.ID, ports.CategoryInput{Name: strPtr("Street Food")})
	require.NoError(t, err)
	assert.Equal(t, "street-food", updated.Slug)
}

func TestCategoryService_ListUsesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockCategoryRepository(ctrl)
	cache := mocks.NewMockCategoryCache(ctrl)
	svc := NewCategoryService(repo, cache, time.Minute, newTestLogger())

	cached := []domain.Category{
		{ID: uuid.New(), Name: "Food", Active: true},
		{ID: uuid.New(), Name: "Hidden", Active: false},
	}
	cache.EXPECT().Get(gomock.Any()).Return(cached, nil)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Food", list[0].Name)
}

func TestCategoryService_CacheMissFillsCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockCategoryRepository(ctrl)
	cache := mocks.NewMockCategoryCache(ctrl)
	svc := NewCategoryService(repo, cache, time.Minute, newTestLogger())

	rows := []domain.Category{{ID: uuid.New(), Name: "Food", Active: true}}
	cache.EXPECT().Get(gomock.Any()).Return(nil, errors.New("redis down"))
	repo.EXPECT().List(gomock.Any()).Return(rows, nil)
	cache.EXPECT().Set(gomock.Any(), rows, time.Minute).Return(nil)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCategoryService_WritesInvalidateCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockCategoryRepository(ctrl)
	cache := mocks.NewMockCategoryCache(ctrl)
	svc := NewCategoryService(repo, cache, time.Minute, newTestLogger())

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	cache.EXPECT().Invalidate(gomock.Any()).Return(nil)

	c, err := svc.Create(context.Background(), ports.CategoryInput{Name: strPtr("Night Life")})
	require.NoError(t, err)
	assert.Equal(t, "night-life", c.Slug)
}
