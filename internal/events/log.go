package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultStreamMaxLen caps the event stream.
const DefaultStreamMaxLen = 10000

// RedisStream appends events to a capped Redis stream.
type RedisStream struct {
	R      *redis.Client
	Stream string
	MaxLen int64
}

// Append implements EventStore.
func (s RedisStream) Append(ctx context.Context, ev Event) error {
	if s.R == nil {
		return errors.New("events: redis client not configured")
	}
	stream := s.Stream
	if stream == "" {
		stream = "events"
	}
	maxLen := s.MaxLen
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	err := s.R.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxLen,
		Approx: true,
		Values: map[string]any{
			"id":          ev.ID.String(),
			"topic":       ev.Topic,
			"client_id":   ev.ClientID,
			"payload":     string(ev.Payload),
			"occurred_at": ev.OccurredAt.UnixMilli(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	return nil
}

// LogNotifier writes every event to the logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	n.Logger.Info().
		Str("event_id", ev.ID.String()).
		Str("topic", ev.Topic).
		Str("client_id", ev.ClientID).
		Msg("domain_event")
	return nil
}
