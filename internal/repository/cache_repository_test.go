package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agape-api/pkg/cache"
	appErrors "github.com/noah-isme/agape-api/pkg/errors"
)

func TestCacheRepositoryWithoutClientIsAlwaysMiss(t *testing.T) {
	repo := NewCacheRepository(nil, nil, nil)
	var dest map[string]int

	assert.ErrorIs(t, repo.Get(context.Background(), "k", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", 1, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "k*"))
	assert.NoError(t, repo.Close())
}

func TestCacheRepositoryOpensBreakerWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	breaker := cache.NewCircuitBreaker("test-cache", time.Minute, nil)
	repo := NewCacheRepository(client, breaker, nil)

	var dest map[string]int
	for i := 0; i < 3; i++ {
		err := repo.Get(context.Background(), "dash:summary:2025", &dest)
		require.Error(t, err)
		assert.NotErrorIs(t, err, appErrors.ErrCacheMiss)
	}

	err := repo.Get(context.Background(), "dash:summary:2025", &dest)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, gobreaker.StateOpen, breaker.State())
}
