package queue

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// RedisOpt parses a redis:// URL for asynq.
func RedisOpt(url string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		return nil, fmt.Errorf("parse queue redis url: %w", err)
	}
	return opt, nil
}

// NewMux routes task types to their handlers.
func NewMux(receipts ReceiptHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(MetricsMiddleware)
	mux.Handle(TypeReceiptEmail, receipts)
	return mux
}

// NewServer builds an asynq server consuming queue and logging through zerolog.
func NewServer(opt asynq.RedisConnOpt, queue string, concurrency int, logger zerolog.Logger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 4
	}
	if queue == "" {
		queue = DefaultQueue
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      zerologAdapter{l: logger},
	})
}

type zerologAdapter struct {
	l zerolog.Logger
}

func (a zerologAdapter) Debug(args ...any) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Info(args ...any)  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Warn(args ...any)  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Error(args ...any) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Fatal(args ...any) { a.l.Fatal().Msg(fmt.Sprint(args...)) }
