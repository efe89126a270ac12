package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qr-loyalty-backend/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

const categoryListKey = "qrl:categories:list"

// CategoryCache implements ports.CategoryCache as a single JSON value.
type CategoryCache struct {
	client *goredis.Client
	key    string
}

// NewCategoryCache creates a new Redis-backed category cache.
func NewCategoryCache(client *goredis.Client) *CategoryCache {
	return &CategoryCache{client: client, key: categoryListKey}
}

// Get returns the cached list. Returns nil, nil on a miss.
func (c *CategoryCache) Get(ctx context.Context) ([]domain.Category, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis category cache get: %w", err)
	}

	categories := []domain.Category{}
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("decode cached categories: %w", err)
	}
	return categories, nil
}

// Set stores the list with ttl.
func (c *CategoryCache) Set(ctx context.Context, categories []domain.Category, ttl time.Duration) error {
	raw, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis category cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached list.
func (c *CategoryCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("redis category cache invalidate: %w", err)
	}
	return nil
}
