package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkravets/storefront/internal/cart/application"
)

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func key(identityKey string) string {
	return fmt.Sprintf("cart:%s", identityKey)
}

func (c *RedisCache) Get(ctx context.Context, identityKey string) (application.CartView, error) {
	data, err := c.rdb.Get(ctx, key(identityKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return application.CartView{}, application.ErrCacheMiss
	}
	if err != nil {
		return application.CartView{}, err
	}

	var view application.CartView
	if err := json.Unmarshal(data, &view); err != nil {
		return application.CartView{}, err
	}
	return view, nil
}

func (c *RedisCache) Set(ctx context.Context, identityKey string, view application.CartView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key(identityKey), data, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, identityKey string) error {
	return c.rdb.Del(ctx, key(identityKey)).Err()
}
