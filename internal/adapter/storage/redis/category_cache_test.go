package redis

import (
	"context"
	"testing"
	"time"

	"qr-loyalty-backend/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*CategoryCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCategoryCache(client), s
}

func TestCategoryCache_SetAndGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	result, err := cache.Get(ctx)
	assert.NoError(t, err)
	assert.Nil(t, result, "miss should return nil")

	parent := uuid.New()
	categories := []domain.Category{
		{ID: parent, Name: "Food", Slug: "food", Active: true, MerchantCount: 2},
		{ID: uuid.New(), Name: "Cafes", Slug: "cafes", ParentID: &parent, DisplayOrder: 1, Active: true},
	}
	require.NoError(t, cache.Set(ctx, categories, 10*time.Minute))

	result, err = cache.Get(ctx)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "Food", result[0].Name)
	assert.Equal(t, int64(2), result[0].MerchantCount)
	assert.Equal(t, parent, *result[1].ParentID)
}

func TestCategoryCache_EmptyListIsAHit(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, []domain.Category{}, time.Minute))

	result, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestCategoryCache_TTLExpiry(t *testing.T) {
	cache, s := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, []domain.Category{{ID: uuid.New(), Name: "Food"}}, time.Second))
	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx)
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestCategoryCache_Invalidate(t *testing.T) {
	cache, s := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, []domain.Category{{ID: uuid.New(), Name: "Food"}}, time.Hour))
	require.NoError(t, cache.Invalidate(ctx))
	assert.False(t, s.Exists(categoryListKey))

	result, err := cache.Get(ctx)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestCategoryCache_CorruptValue(t *testing.T) {
	cache, s := newTestCache(t)
	require.NoError(t, s.Set(categoryListKey, "not json"))

	_, err := cache.Get(context.Background())
	assert.Error(t, err)
}
