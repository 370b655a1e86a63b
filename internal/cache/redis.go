// Package cache holds the Redis-backed summary cache.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/config"
	"github.com/Soft-Craft-Bol/tinkus-backend/internal/services"
)

const (
	summaryKey    = "participantes:resumen"
	generationKey = "participantes:resumen:generacion"
	pingTimeout   = 5 * time.Second
)

// Connect initialises a Redis client and validates connectivity with a ping.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// SummaryCache stores the payment summary as JSON under a single key, next to
// a generation counter that Invalidate bumps. A write tagged with an older
// generation is dropped, so a summary computed before a mutation never
// outlives that mutation's invalidation.
type SummaryCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewSummaryCache(client redis.Cmdable, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

// setIfGeneration writes KEYS[1] only while KEYS[2] still holds ARGV[1].
var setIfGeneration = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// Get returns a nil summary on a miss, along with the current generation.
func (c *SummaryCache) Get(ctx context.Context) (*services.Summary, int64, error) {
	vals, err := c.client.MGet(ctx, summaryKey, generationKey).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("summary cache get: %w", err)
	}

	var generation int64
	if raw, ok := vals[1].(string); ok {
		if generation, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, 0, fmt.Errorf("summary cache generation: %w", err)
		}
	}

	raw, ok := vals[0].(string)
	if !ok {
		return nil, generation, nil
	}
	var s services.Summary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, 0, fmt.Errorf("summary cache decode: %w", err)
	}
	return &s, generation, nil
}

func (c *SummaryCache) Set(ctx context.Context, s *services.Summary, generation int64) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("summary cache encode: %w", err)
	}
	keys := []string{summaryKey, generationKey}
	err = setIfGeneration.Run(ctx, c.client, keys, strconv.FormatInt(generation, 10), raw, c.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("summary cache set: %w", err)
	}
	return nil
}

func (c *SummaryCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, summaryKey)
		return nil
	})
	return err
}
