package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-checkout/internal/config"
)

func TestNoopDeduplicator(t *testing.T) {
	var d NoopDeduplicator
	for i := 0; i < 2; i++ {
		ok, err := d.Claim(context.Background(), "evt_1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.NoError(t, d.Release(context.Background(), "evt_1"))
}

func TestRedisEventDeduplicator(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	d := NewRedisEventDeduplicator(client, time.Minute)
	id := "evt_" + uuid.NewString()

	ok, err := d.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Claim(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must be rejected")

	require.NoError(t, d.Release(ctx, id))

	ok, err = d.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok, "released id can be claimed again")
	require.NoError(t, d.Release(ctx, id))
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
