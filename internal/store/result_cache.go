package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pathlight/assessment-backend/internal/config"
	"github.com/pathlight/assessment-backend/internal/model"
)

// resultCacheTTL bounds how long a settled result stays in Redis. The row
// in Postgres remains the durable copy.
const resultCacheTTL = 24 * time.Hour

type cachedResult struct {
	OwnerID uuid.UUID          `json:"owner_id"`
	Result  *model.ScoreResult `json:"result"`
}

// RedisResultCache keeps settled score results in Redis so result reads
// skip Postgres entirely. Misses fall through to the session store.
type RedisResultCache struct {
	client *redis.Client
}

func NewRedisResultCache(client *redis.Client) *RedisResultCache {
	return &RedisResultCache{client: client}
}

// Put stores the result together with the owning identity so a cache hit
// can still be ownership-checked.
func (c *RedisResultCache) Put(ctx context.Context, ownerID uuid.UUID, res *model.ScoreResult) error {
	data, err := json.Marshal(cachedResult{OwnerID: ownerID, Result: res})
	if err != nil {
		return fmt.Errorf("marshal cached result: %w", err)
	}
	key := config.CacheKey.SessionResultKey(res.SessionID.String())
	if err := c.client.Set(ctx, key, data, resultCacheTTL).Err(); err != nil {
		return fmt.Errorf("cache result: %w", err)
	}
	return nil
}

// Get returns the cached result and its owner, or ErrNotFound on a miss.
func (c *RedisResultCache) Get(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, *model.ScoreResult, error) {
	key := config.CacheKey.SessionResultKey(sessionID.String())
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return uuid.Nil, nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("read cached result: %w", err)
	}

	var entry cachedResult
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupt entry behaves like a miss so the store copy wins.
		return uuid.Nil, nil, ErrNotFound
	}
	return entry.OwnerID, entry.Result, nil
}
