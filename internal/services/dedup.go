package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"event-checkout/internal/config"
)

const webhookEventKeyPrefix = "webhook:event:"

// NewRedisClient connects to Redis and pings it once.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisEventDeduplicator records processed webhook event ids in Redis.
type RedisEventDeduplicator struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisEventDeduplicator remembers ids for ttl, 24h when zero.
func NewRedisEventDeduplicator(client redis.UniversalClient, ttl time.Duration) *RedisEventDeduplicator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisEventDeduplicator{client: client, ttl: ttl}
}

func (d *RedisEventDeduplicator) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, webhookEventKeyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim webhook event: %w", err)
	}
	return ok, nil
}

func (d *RedisEventDeduplicator) Release(ctx context.Context, eventID string) error {
	if err := d.client.Del(ctx, webhookEventKeyPrefix+eventID).Err(); err != nil {
		return fmt.Errorf("failed to release webhook event: %w", err)
	}
	return nil
}

// NoopDeduplicator claims every id. Replays are then absorbed by the
// monotonic status transitions alone.
type NoopDeduplicator struct{}

func (NoopDeduplicator) Claim(ctx context.Context, eventID string) (bool, error) { return true, nil }

func (NoopDeduplicator) Release(ctx context.Context, eventID string) error { return nil }
