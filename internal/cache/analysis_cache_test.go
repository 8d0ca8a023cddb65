package cache

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/config"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
)

func TestKeyBuilderIsStable(t *testing.T) {
	cfg := pipeline.RunConfig{PeriodMonths: 4}

	a := NewKeyBuilder("db", cfg).AddList("branch", []string{"02", "01"}).Add("day", "2024-05-01").Key()
	b := NewKeyBuilder("db", cfg).Add("day", "2024-05-01").AddList("branch", []string{" 01", "02"}).Key()
	c := NewKeyBuilder("db", pipeline.RunConfig{PeriodMonths: 6}).AddList("branch", []string{"01", "02"}).Add("day", "2024-05-01").Key()

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, analysisKeyPrefix+":db:"))
}

func TestKeyBuilderContentDigest(t *testing.T) {
	cfg := pipeline.RunConfig{PeriodMonths: 4}

	a := NewKeyBuilder("upload", cfg).AddContent("stock", []byte("a;b")).Key()
	b := NewKeyBuilder("upload", cfg).AddContent("stock", []byte("a;c")).Key()

	assert.NotEqual(t, a, b)
}

func TestDisabledCacheIsNoop(t *testing.T) {
	c, err := NewAnalysisCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	require.NoError(t, c.Set(context.Background(), "k", &AnalysisEntry{}))
	entry, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, entry)
	assert.NoError(t, c.InvalidateAll(context.Background()))
	assert.NoError(t, c.Close())
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = redisOptions(config.CacheConfig{RedisURL: "redis://:secret@redis:6379/1"})
	require.NoError(t, err)
	assert.Equal(t, "redis:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 1, opts.DB)

	_, err = redisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)

	assert.Equal(t, defaultAnalysisTTL, analysisTTL(config.CacheConfig{}))
	assert.Equal(t, 30*time.Second, analysisTTL(config.CacheConfig{TTLSeconds: 30}))
}

func TestAnalysisEntryRoundTripsUnboundedCoverage(t *testing.T) {
	entry := AnalysisEntry{
		Run: pipeline.RunSummary{ID: "run-1", Status: pipeline.StatusCompleted},
		Result: stock_coverage.Result{
			Records: []stock_coverage.EnrichedProductRecord{
				{CoverageMonths: stock_coverage.Coverage(math.Inf(1)), Status: stock_coverage.StatusNoMovement},
			},
		},
	}

	payload, err := json.Marshal(entry)
	require.NoError(t, err)

	var decoded AnalysisEntry
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Len(t, decoded.Result.Records, 1)
	assert.True(t, decoded.Result.Records[0].CoverageMonths.IsUnbounded())
	assert.Equal(t, "run-1", decoded.Run.ID)
}
