package progress

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "upload_progress:"

// RedisTracker keeps progress in Redis so pollers can hit any
// instance behind a load balancer. The key TTL is the expiry window.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTracker(client *redis.Client, ttl time.Duration) *RedisTracker {
	return &RedisTracker{client: client, ttl: ttl}
}

func (t *RedisTracker) Set(ctx context.Context, token string, p Progress) {
	payload, err := json.Marshal(p)
	if err != nil {
		slog.Warn("progress marshal failed", "token", token, "err", err)
		return
	}
	if err := t.client.Set(ctx, redisKeyPrefix+token, payload, t.ttl).Err(); err != nil {
		slog.Warn("progress write failed", "token", token, "err", err)
	}
}

func (t *RedisTracker) Get(ctx context.Context, token string) Progress {
	raw, err := t.client.Get(ctx, redisKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return NotFound()
	}
	if err != nil {
		slog.Warn("progress read failed", "token", token, "err", err)
		return NotFound()
	}
	var p Progress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		slog.Warn("progress decode failed", "token", token, "err", err)
		return NotFound()
	}
	return p
}
