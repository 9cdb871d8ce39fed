package common

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClientIDHeader lets API clients pin their id without cookies.
const ClientIDHeader = "X-Client-ID"

// ClientCookie issues and reads the anonymous client id that scopes every
// persisted cart, checkout and session document.
type ClientCookie struct {
	Name     string
	Secure   bool
	Domain   string
	MaxAge   time.Duration
	SameSite http.SameSite
}

// Middleware ensures every request carries a client id in its context.
func (c ClientCookie) Middleware(next http.Handler) http.Handler {
	name := c.Name
	if name == "" {
		name = "lb_client"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(ClientIDHeader))
		if id == "" {
			if ck, err := r.Cookie(name); err == nil {
				id = strings.TrimSpace(ck.Value)
			}
		}
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     name,
				Value:    id,
				Path:     "/",
				Domain:   c.Domain,
				MaxAge:   int(c.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   c.Secure,
				SameSite: c.SameSite,
			})
		}
		w.Header().Set(ClientIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithClientID(r.Context(), id)))
	})
}

// ClientIP attempts to determine the real client IP address from the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if candidate := strings.TrimSpace(first); candidate != "" {
			return candidate
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

// QueryInt reads an integer query parameter falling back to def.
func QueryInt(r *http.Request, name string, def int) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
