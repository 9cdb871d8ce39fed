// Package ratelimit throttles requests per client, either with a Redis
// sliding window or a fixed-window limiter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Sliding implements a sliding window limiter backed by Redis sorted sets.
// Every call is recorded, including rejected ones.
type Sliding struct {
	Client *redis.Client
	Prefix string
	Now    func() time.Time
}

func (l Sliding) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Allow registers an event for key and reports whether it is within max per window.
func (l Sliding) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	now := l.now()
	d := Decision{Allowed: true, Limit: max, Remaining: max, Reset: now.Add(window)}
	if l.Client == nil || max <= 0 || window <= 0 {
		return d, nil
	}

	redisKey := l.Prefix + key
	member := fmt.Sprintf("%d:%s", now.UnixNano(), uuid.NewString())
	cutoff := fmt.Sprintf("%d", now.Add(-window).UnixNano())

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Limit: max, Reset: d.Reset}, err
	}

	current := int(countCmd.Val())
	d.Remaining = max - current
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	d.Allowed = current <= max
	return d, nil
}
