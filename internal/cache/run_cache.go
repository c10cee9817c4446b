package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/autopar/backend-go/internal/config"
	"github.com/andresuchdata/autopar/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const runKeyPrefix = "par:run:"

// SuggestionRunCache holds generated runs between generation and the user-driven apply step.
type SuggestionRunCache interface {
	GetRun(ctx context.Context, id string) (*domain.SuggestionRun, bool, error)
	SetRun(ctx context.Context, run *domain.SuggestionRun) error
	DeleteRun(ctx context.Context, id string) error
	// InvalidateAll drops every cached run and returns how many were removed.
	InvalidateAll(ctx context.Context) (int, error)
}

type redisRunCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSuggestionRunCache returns a redis-backed cache, or an in-process one when caching
// is disabled so that runs can still be fetched and applied by ID.
func NewSuggestionRunCache(cfg config.CacheConfig) (SuggestionRunCache, error) {
	if !cfg.Enabled {
		return NewMemoryRunCache(runTTL(cfg), time.Now), nil
	}

	client, err := dialRedis(cfg)
	if err != nil {
		return nil, err
	}

	return &redisRunCache{client: client, ttl: runTTL(cfg)}, nil
}

func runKey(id string) string {
	return runKeyPrefix + id
}

func (c *redisRunCache) GetRun(ctx context.Context, id string) (*domain.SuggestionRun, bool, error) {
	payload, err := c.client.Get(ctx, runKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var run domain.SuggestionRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, false, fmt.Errorf("decode suggestion run cache: %w", err)
	}

	return &run, true, nil
}

func (c *redisRunCache) SetRun(ctx context.Context, run *domain.SuggestionRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode suggestion run cache: %w", err)
	}

	if err := c.client.Set(ctx, runKey(run.ID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisRunCache) DeleteRun(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, runKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *redisRunCache) InvalidateAll(ctx context.Context) (int, error) {
	return unlinkPrefix(ctx, c.client, runKeyPrefix)
}

type memoryEntry struct {
	payload []byte
	expires time.Time
}

// memoryRunCache stores encoded runs in process. Entries are copies, so callers
// never share slices with the cache.
type memoryRunCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryRunCache creates an in-process run cache.
func NewMemoryRunCache(ttl time.Duration, now func() time.Time) SuggestionRunCache {
	if ttl <= 0 {
		ttl = defaultRunTTL
	}
	if now == nil {
		now = time.Now
	}
	return &memoryRunCache{entries: make(map[string]memoryEntry), ttl: ttl, now: now}
}

func (c *memoryRunCache) GetRun(ctx context.Context, id string) (*domain.SuggestionRun, bool, error) {
	c.mu.Lock()
	entry, ok := c.entries[runKey(id)]
	if ok && !c.now().Before(entry.expires) {
		delete(c.entries, runKey(id))
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	var run domain.SuggestionRun
	if err := json.Unmarshal(entry.payload, &run); err != nil {
		return nil, false, fmt.Errorf("decode suggestion run cache: %w", err)
	}
	return &run, true, nil
}

func (c *memoryRunCache) SetRun(ctx context.Context, run *domain.SuggestionRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode suggestion run cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[runKey(run.ID)] = memoryEntry{payload: payload, expires: c.now().Add(c.ttl)}
	return nil
}

func (c *memoryRunCache) DeleteRun(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, runKey(id))
	return nil
}

func (c *memoryRunCache) InvalidateAll(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]memoryEntry)
	return n, nil
}
