package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redismock "github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carematch/internal/common/logger"
	"carematch/internal/models"
)

func newTestCache(t *testing.T) (*PoolCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewPoolCache(client, time.Minute, logger.NewTestLogger(t)), mr
}

func samplePool() []models.MatchCandidate {
	return []models.MatchCandidate{
		{Kind: models.KindCoordinator, ID: "c-1", Name: "Coordinator One", Regions: []string{"north"}, MaxLoad: 8},
		{Kind: models.KindFacility, ID: "f-1", Name: "Facility One", Regions: []string{"north"}, MaxLoad: 50, MonthlyFee: 2500},
	}
}

func TestPoolCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "north")
	assert.False(t, ok)

	cache.Set(ctx, "north", samplePool())

	got, ok := cache.Get(ctx, "north")
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "c-1", got[0].ID)
	assert.Equal(t, int64(2500), got[1].MonthlyFee)
}

func TestPoolCacheTTL(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, "north", samplePool())
	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, "north")
	assert.False(t, ok)
}

func TestPoolCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, "north", samplePool())
	cache.Set(ctx, "south", samplePool())

	require.NoError(t, cache.Invalidate(ctx, "north"))

	_, ok := cache.Get(ctx, "north")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "south")
	assert.True(t, ok)
}

func TestPoolCacheCorruptEntryDropped(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("carematch:pool:north", "not json"))

	_, ok := cache.Get(ctx, "north")
	assert.False(t, ok)
	assert.False(t, mr.Exists("carematch:pool:north"))
}

func TestPoolCacheDegradesWhenRedisDown(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	mr.Close()

	_, ok := cache.Get(ctx, "north")
	assert.False(t, ok)
	cache.Set(ctx, "north", samplePool()) // must not panic
}

func TestPoolCacheBackendErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewPoolCache(client, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	mock.ExpectGet("carematch:pool:north").SetErr(stderrors.New("connection refused"))
	_, ok := cache.Get(ctx, "north")
	assert.False(t, ok)

	raw, err := json.Marshal(samplePool())
	require.NoError(t, err)
	mock.ExpectSet("carematch:pool:north", raw, time.Minute).SetErr(stderrors.New("connection refused"))
	cache.Set(ctx, "north", samplePool())

	mock.ExpectDel("carematch:pool:north").SetErr(stderrors.New("connection refused"))
	err = cache.Invalidate(ctx, "north")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_UNAVAILABLE")

	require.NoError(t, mock.ExpectationsWereMet())
}
