package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores documents as JSON strings. Scopes map to distinct key prefixes.
type Redis struct {
	client     *redis.Client
	prefix     string
	durableTTL time.Duration
	sessionTTL time.Duration
}

// NewRedis constructs a Redis-backed store. A zero durableTTL keeps durable
// values forever; sessionTTL defaults to 12h.
func NewRedis(client *redis.Client, prefix string, durableTTL, sessionTTL time.Duration) *Redis {
	if prefix == "" {
		prefix = "lb"
	}
	if sessionTTL <= 0 {
		sessionTTL = 12 * time.Hour
	}
	return &Redis{client: client, prefix: prefix, durableTTL: durableTTL, sessionTTL: sessionTTL}
}

func (r *Redis) key(scope Scope, key string) string {
	return r.prefix + ":" + scope.String() + ":" + key
}

func (r *Redis) ttl(scope Scope) time.Duration {
	if scope == Session {
		return r.sessionTTL
	}
	return r.durableTTL
}

// GetJSON unmarshals a stored payload into dst. Session reads refresh the TTL.
func (r *Redis) GetJSON(ctx context.Context, scope Scope, key string, dst any) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	full := r.key(scope, key)
	data, err := r.client.Get(ctx, full).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	if scope == Session {
		if err := r.client.Expire(ctx, full, r.sessionTTL).Err(); err != nil {
			return true, err
		}
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the scope TTL.
func (r *Redis) SetJSON(ctx context.Context, scope Scope, key string, v any) error {
	if key == "" {
		return ErrEmptyKey
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(scope, key), data, r.ttl(scope)).Err()
}

// Delete removes keys from the scope. Missing keys are ignored.
func (r *Redis) Delete(ctx context.Context, scope Scope, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, r.key(scope, k))
	}
	return r.client.Del(ctx, full...).Err()
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
