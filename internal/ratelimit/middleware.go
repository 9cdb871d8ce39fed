package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/lanches-api/internal/common"
)

// KeyFunc derives the throttling key for a request.
type KeyFunc func(*http.Request) string

// ByClient keys on the anonymous client id, falling back to the caller IP.
func ByClient(scope string) KeyFunc {
	return func(r *http.Request) string {
		if id, ok := common.ClientID(r.Context()); ok {
			return scope + ":client:" + id
		}
		return scope + ":ip:" + common.ClientIP(r)
	}
}

// ByIP keys on the caller IP.
func ByIP(scope string) KeyFunc {
	return func(r *http.Request) string {
		return scope + ":ip:" + common.ClientIP(r)
	}
}

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	Key    KeyFunc
	Window time.Duration
	Max    int
}

// Handler enforces sliding window limits before delegating to the next handler.
type Handler struct {
	Limiter Sliding
	Config  Config
	OnError func(error)
}

// Middleware fails open when the limiter store errors.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		d, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}
		writeHeaders(w, d.Limit, d.Remaining, d.Reset)
		if !d.Allowed {
			reject(w, d.Reset)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeHeaders(w http.ResponseWriter, limit, remaining int, reset time.Time) {
	if limit < 0 {
		limit = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}

func reject(w http.ResponseWriter, reset time.Time) {
	retryAfter := int(time.Until(reset).Seconds())
	if retryAfter < 0 {
		retryAfter = 0
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Muitas tentativas. Aguarde um momento.", nil)
}
