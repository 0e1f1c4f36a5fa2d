package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studyquiz/chat-service/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// QueryCache memoizes by-date history reads. Archived days are
// immutable, so cached pages never go stale within their TTL.
type QueryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewQueryCache(client *redis.Client, ttl time.Duration) *QueryCache {
	return &QueryCache{
		client: client,
		ttl:    ttl,
	}
}

// BuildKey derives the cache key for one room-day.
func (c *QueryCache) BuildKey(roomID int64, day time.Time) string {
	return fmt.Sprintf("chat:history:%d:%s", roomID, day.Format("2006-01-02"))
}

func (c *QueryCache) Get(ctx context.Context, key string) ([]domain.MessageView, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var views []domain.MessageView
	if err := json.Unmarshal(data, &views); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached history: %w", err)
	}

	return views, nil
}

func (c *QueryCache) Set(ctx context.Context, key string, views []domain.MessageView) error {
	data, err := json.Marshal(views)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}
