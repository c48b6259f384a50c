package auth

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"

	"storefront-api/shared/pkg/cache"
)

const defaultKeyCacheKey = "auth:firebase:certs"

// RedisKeyCache stores the certificate set in redis with the lifetime the
// issuer announced.
type RedisKeyCache struct {
	Redis *cache.Redis
	Key   string
}

func (c *RedisKeyCache) key() string {
	if c.Key == "" {
		return defaultKeyCacheKey
	}
	return c.Key
}

func (c *RedisKeyCache) Get(ctx context.Context) (Certs, time.Duration, bool, error) {
	raw, err := c.Redis.GetString(ctx, c.key())
	if errors.Is(err, cache.ErrMiss) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	ttl, err := c.Redis.TTL(ctx, c.key())
	if errors.Is(err, cache.ErrMiss) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}

	var certs Certs
	if err := json.Unmarshal([]byte(raw), &certs); err != nil {
		return nil, 0, false, err
	}
	return certs, ttl, true, nil
}

func (c *RedisKeyCache) Put(ctx context.Context, certs Certs, ttl time.Duration) error {
	raw, err := json.Marshal(certs)
	if err != nil {
		return err
	}
	return c.Redis.SetString(ctx, c.key(), string(raw), ttl)
}
