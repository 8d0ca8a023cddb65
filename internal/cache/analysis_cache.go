package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/config"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
	"github.com/redis/go-redis/v9"
)

const (
	analysisKeyPrefix     = "inventory:analysis"
	analysisScanBatchSize = 100
	defaultAnalysisTTL    = time.Minute
)

// AnalysisEntry is a completed run as stored in the cache.
type AnalysisEntry struct {
	Run    pipeline.RunSummary   `json:"run"`
	Result stock_coverage.Result `json:"result"`
}

type AnalysisCache interface {
	Get(ctx context.Context, key string) (*AnalysisEntry, bool, error)
	Set(ctx context.Context, key string, entry *AnalysisEntry) error
	Invalidate(ctx context.Context, key string) error
	InvalidateAll(ctx context.Context) error
	Close() error
}

type redisAnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopAnalysisCache struct{}

func NewAnalysisCache(cfg config.CacheConfig) (AnalysisCache, error) {
	if !cfg.Enabled {
		return &noopAnalysisCache{}, nil
	}

	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &redisAnalysisCache{
		client: client,
		ttl:    analysisTTL(cfg),
	}, nil
}

// redisOptions prefers REDIS_URL and falls back to host, port and db.
func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opts, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func analysisTTL(cfg config.CacheConfig) time.Duration {
	if cfg.TTLSeconds <= 0 {
		return defaultAnalysisTTL
	}
	return time.Duration(cfg.TTLSeconds) * time.Second
}

func NewNoopAnalysisCache() AnalysisCache {
	return &noopAnalysisCache{}
}

func (c *redisAnalysisCache) Get(ctx context.Context, key string) (*AnalysisEntry, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var entry AnalysisEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, false, fmt.Errorf("decode analysis cache: %w", err)
	}

	return &entry, true, nil
}

func (c *redisAnalysisCache) Set(ctx context.Context, key string, entry *AnalysisEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode analysis cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisAnalysisCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// InvalidateAll drops every key under the analysis prefix, batch by batch.
func (c *redisAnalysisCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, analysisKeyPrefix+"*", analysisScanBatchSize).Iterator()
	batch := make([]string, 0, analysisScanBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == analysisScanBatchSize {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis delete failed: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis delete failed: %w", err)
		}
	}
	return nil
}

func (c *redisAnalysisCache) Close() error {
	return c.client.Close()
}

func (n *noopAnalysisCache) Get(ctx context.Context, key string) (*AnalysisEntry, bool, error) {
	return nil, false, nil
}

func (n *noopAnalysisCache) Set(ctx context.Context, key string, entry *AnalysisEntry) error {
	return nil
}

func (n *noopAnalysisCache) Invalidate(ctx context.Context, key string) error {
	return nil
}

func (n *noopAnalysisCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func (n *noopAnalysisCache) Close() error {
	return nil
}

// KeyBuilder collects the inputs that identify an analysis run.
type KeyBuilder struct {
	source string
	parts  []string
}

func NewKeyBuilder(source string, cfg pipeline.RunConfig) *KeyBuilder {
	return &KeyBuilder{
		source: source,
		parts: []string{
			"period_months=" + strconv.Itoa(cfg.PeriodMonths),
			"strict=" + strconv.FormatBool(cfg.Strict),
		},
	}
}

// Add records a named value. Empty values are skipped.
func (b *KeyBuilder) Add(name, value string) *KeyBuilder {
	value = strings.TrimSpace(value)
	if value != "" {
		b.parts = append(b.parts, name+"="+value)
	}
	return b
}

// AddList records a set of values regardless of their order or case.
func (b *KeyBuilder) AddList(name string, values []string) *KeyBuilder {
	return b.Add(name, joinStrings(values))
}

// AddContent records a digest of raw input bytes.
func (b *KeyBuilder) AddContent(name string, content []byte) *KeyBuilder {
	sum := sha1.Sum(content)
	return b.Add(name, hex.EncodeToString(sum[:]))
}

// Key returns the cache key for the collected parts.
func (b *KeyBuilder) Key() string {
	parts := append([]string(nil), b.parts...)
	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return fmt.Sprintf("%s:%s:%s", analysisKeyPrefix, b.source, hex.EncodeToString(sum[:]))
}

func joinStrings(values []string) string {
	c := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(strings.ToLower(v))
		if v != "" {
			c = append(c, v)
		}
	}
	sort.Strings(c)
	return strings.Join(c, ",")
}
