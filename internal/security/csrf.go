package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/lanches-api/internal/common"
)

// CSRF protects cookie-identified browsers with the double-submit technique.
// Requests that identify themselves with a header (bearer token or client id)
// cannot be forged cross-site and pass through.
type CSRF struct {
	Header string
	Cookie string
	Secure bool
}

func (c CSRF) names() (string, string) {
	header := strings.TrimSpace(c.Header)
	if header == "" {
		header = "X-CSRF-Token"
	}
	cookie := strings.TrimSpace(c.Cookie)
	if cookie == "" {
		cookie = "lb_csrf"
	}
	return header, cookie
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// Middleware issues the token cookie on safe requests and enforces a matching
// header on the rest.
func (c CSRF) Middleware(next http.Handler) http.Handler {
	headerName, cookieName := c.names()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if safeMethod(r.Method) {
			if ck, err := r.Cookie(cookieName); err != nil || strings.TrimSpace(ck.Value) == "" {
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    uuid.NewString(),
					Path:     "/",
					Secure:   c.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r)
			return
		}

		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		if strings.HasPrefix(strings.ToLower(auth), "bearer ") || r.Header.Get(common.ClientIDHeader) != "" {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(r.Header.Get(headerName))
		if token == "" {
			common.JSONError(w, http.StatusForbidden, "CSRF", "missing csrf token", nil)
			return
		}
		cookie, err := r.Cookie(cookieName)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			common.JSONError(w, http.StatusForbidden, "CSRF", "missing csrf cookie", nil)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) != 1 {
			common.JSONError(w, http.StatusForbidden, "CSRF", "invalid csrf token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
