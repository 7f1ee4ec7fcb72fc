package data

import (
	"context"
	"testing"
	"time"

	"UIForge/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return rdb, mr
}

func TestCache_SetAndGet(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	defer rdb.Close()

	cache := NewCacheClient(rdb)
	ctx := context.Background()

	job := &model.Job{
		JobID:  "c2b7e6de-8c4f-4b38-9a71-1f50c2a9f001",
		Owner:  "default_user",
		Prompt: "a login form",
		Status: model.StatusSuccess,
	}

	err := cache.Set(ctx, jobCacheKey(job.JobID), job, TTLJob)
	require.NoError(t, err)

	var got model.Job
	err = cache.Get(ctx, jobCacheKey(job.JobID), &got)
	require.NoError(t, err)
	assert.Equal(t, job.JobID, got.JobID)
	assert.Equal(t, model.StatusSuccess, got.Status)
	assert.Equal(t, "a login form", got.Prompt)
}

func TestCache_GetMissing(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	defer rdb.Close()

	cache := NewCacheClient(rdb)

	var got model.Job
	err := cache.Get(context.Background(), jobCacheKey("missing"), &got)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestCache_TTLApplied(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	defer rdb.Close()

	cache := NewCacheClient(rdb)
	ctx := context.Background()

	err := cache.Set(ctx, jobCacheKey("ttl-job"), &model.Job{JobID: "ttl-job"}, TTLJob)
	require.NoError(t, err)

	ttl := rdb.TTL(ctx, jobCacheKey("ttl-job")).Val()
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, TTLJob)

	// After the TTL elapses the entry is gone.
	mr.FastForward(TTLJob + time.Second)
	var got model.Job
	err = cache.Get(ctx, jobCacheKey("ttl-job"), &got)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestCache_Delete(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	defer rdb.Close()

	cache := NewCacheClient(rdb)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, jobCacheKey("gone"), &model.Job{JobID: "gone"}, TTLJob))
	require.NoError(t, cache.Delete(ctx, jobCacheKey("gone")))

	var got model.Job
	err := cache.Get(ctx, jobCacheKey("gone"), &got)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestCache_NilClientFailsGracefully(t *testing.T) {
	cache := NewCacheClient(nil)
	ctx := context.Background()

	err := cache.Set(ctx, "k", "v", time.Minute)
	assert.Error(t, err)

	var got string
	err = cache.Get(ctx, "k", &got)
	assert.Error(t, err)
}
