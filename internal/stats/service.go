// internal/stats/service.go
package stats

import (
	"context"
	"encoding/json"
	"time"

	"loanstream/internal/common/logger"
	"loanstream/internal/store"

	"github.com/redis/go-redis/v9"
)

const cacheKey = "loanstream:stats:snapshot"

// Aggregator is the slice of the store the service reads.
type Aggregator interface {
	Stats(ctx context.Context) (store.Stats, error)
}

// Service serves stats snapshots with a short-TTL Redis cache in front of the
// table aggregate. Cache failures degrade to a direct query; a nil client
// disables caching entirely.
type Service struct {
	store  Aggregator
	cache  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewService(agg Aggregator, cache *redis.Client, ttl time.Duration, log logger.Logger) *Service {
	return &Service{
		store:  agg,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "stats"}),
	}
}

// Snapshot returns the current table aggregates, served from cache when a
// fresh entry exists.
func (s *Service) Snapshot(ctx context.Context) (store.Stats, error) {
	if s.cache != nil && s.ttl > 0 {
		raw, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var st store.Stats
			if json.Unmarshal([]byte(raw), &st) == nil {
				return st, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("stats cache read failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	st, err := s.store.Stats(ctx)
	if err != nil {
		return store.Stats{}, err
	}

	if s.cache != nil && s.ttl > 0 {
		if raw, err := json.Marshal(st); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("stats cache write failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}

	return st, nil
}
