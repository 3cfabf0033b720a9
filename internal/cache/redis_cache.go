package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"cellarpos/backend/internal/domain"
)

type RedisForecastCache struct {
	client *redis.Client
}

func NewRedisForecastCache(addr string, password string, db int) *RedisForecastCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisForecastCache{client: client}
}

func (c *RedisForecastCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisForecastCache) Close() error {
	return c.client.Close()
}

func (c *RedisForecastCache) Get(ctx context.Context, key string) (*domain.ForecastResponse, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read forecast cache: %w", err)
	}

	var resp domain.ForecastResponse
	if err := json.Unmarshal(val, &resp); err != nil {
		return nil, false, fmt.Errorf("decode cached forecast: %w", err)
	}
	return &resp, true, nil
}

func (c *RedisForecastCache) Set(ctx context.Context, key string, value *domain.ForecastResponse, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultForecastTTL
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
