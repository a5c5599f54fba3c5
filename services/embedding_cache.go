package services

import (
	"context"
	"encoding/json"
	"time"

	"qa-agent-backend/internal/logger"
	"qa-agent-backend/utils"

	"github.com/redis/go-redis/v9"
)

// EmbeddingCacheService caches derived query vectors in Redis, keyed by a
// hash of the text. It only ever holds recomputable data: collection and
// record state stay exclusively in MongoDB. A nil Redis client disables
// the cache and every lookup is a miss.
type EmbeddingCacheService struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewEmbeddingCacheService(rdb *redis.Client, ttl time.Duration) *EmbeddingCacheService {
	return &EmbeddingCacheService{rdb: rdb, ttl: ttl}
}

// Get returns the cached vector for text, if any. Cache errors degrade to
// a miss; the caller recomputes.
func (ec *EmbeddingCacheService) Get(ctx context.Context, text string) ([]float64, bool) {
	if ec.rdb == nil {
		return nil, false
	}
	raw, err := ec.rdb.Get(ctx, utils.CacheKey("embed", text)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Embedding cache read failed", "error", err)
		}
		return nil, false
	}
	var vec []float64
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

// Put stores a vector for text with the configured TTL. Failures are
// logged and ignored; the cache is best-effort.
func (ec *EmbeddingCacheService) Put(ctx context.Context, text string, vec []float64) {
	if ec.rdb == nil {
		return
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := ec.rdb.Set(ctx, utils.CacheKey("embed", text), raw, ec.ttl).Err(); err != nil {
		logger.Warn("Embedding cache write failed", "error", err)
	}
}
