package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStorage instance
func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStorage, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisStorage(client, ttl), mr
}

func TestRedisGet_Success(t *testing.T) {
	s, mr := setupTestRedis(t, 0)
	ctx := context.Background()

	require.NoError(t, mr.Set(redisKey("beautivra-cart"), `[{"product_id":"p1"}]`))

	got, err := s.Get(ctx, "beautivra-cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"product_id":"p1"}]`, string(got))
}

func TestRedisGet_Miss(t *testing.T) {
	s, _ := setupTestRedis(t, 0)

	got, err := s.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, got)
}

func TestRedisSet_NoTTL(t *testing.T) {
	s, mr := setupTestRedis(t, 0)

	require.NoError(t, s.Set(context.Background(), "k", []byte("v")))

	stored, err := mr.Get(redisKey("k"))
	require.NoError(t, err)
	assert.Equal(t, "v", stored)
	assert.Equal(t, time.Duration(0), mr.TTL(redisKey("k")))
}

func TestRedisSet_WithTTL(t *testing.T) {
	s, mr := setupTestRedis(t, 720*time.Hour)

	require.NoError(t, s.Set(context.Background(), "k", []byte("v")))

	assert.Equal(t, 720*time.Hour, mr.TTL(redisKey("k")))
}

func TestRedisDelete(t *testing.T) {
	s, mr := setupTestRedis(t, 0)
	ctx := context.Background()

	require.NoError(t, mr.Set(redisKey("k"), "v"))
	assert.True(t, mr.Exists(redisKey("k")))

	require.NoError(t, s.Delete(ctx, "k"))
	assert.False(t, mr.Exists(redisKey("k")))

	// Deleting non-existent key should not error
	assert.NoError(t, s.Delete(ctx, "k"))
}

func TestRedisKey_Format(t *testing.T) {
	assert.Equal(t, "storefront:sid:beautivra-cart", redisKey("sid:beautivra-cart"))
}
