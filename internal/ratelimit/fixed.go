package ratelimit

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewStore returns a Redis limiter store, or an in-memory one when client is nil.
func NewStore(client *redis.Client, prefix string) (limiter.Store, error) {
	if client == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: prefix}), nil
	}
	return limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
}

// Fixed enforces a fixed-window rate such as "5-M" (five per minute).
type Fixed struct {
	Limiter *limiter.Limiter
	Key     KeyFunc
	OnError func(error)
}

// NewFixed parses the formatted rate and binds it to store.
func NewFixed(store limiter.Store, formatted string, key KeyFunc) (Fixed, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return Fixed{}, err
	}
	return Fixed{Limiter: limiter.New(store, rate), Key: key}, nil
}

// Middleware fails open when the limiter store errors.
func (f Fixed) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.Limiter == nil || f.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		lctx, err := f.Limiter.Get(r.Context(), f.Key(r))
		if err != nil {
			if f.OnError != nil {
				f.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}
		reset := time.Unix(lctx.Reset, 0)
		writeHeaders(w, int(lctx.Limit), int(lctx.Remaining), reset)
		if lctx.Reached {
			reject(w, reset)
			return
		}
		next.ServeHTTP(w, r)
	})
}
