package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lanches-api/internal/common"
)

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(status) })
}

func TestCSRFIssuesCookieOnSafeRequest(t *testing.T) {
	handler := CSRF{}.Middleware(okHandler(http.StatusOK))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cart", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "lb_csrf", cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)
}

func TestCSRFMiddlewareBlocksMissingToken(t *testing.T) {
	handler := CSRF{}.Middleware(okHandler(http.StatusOK))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/cart/items", nil))
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCSRFMiddlewareAllowsValidToken(t *testing.T) {
	handler := CSRF{}.Middleware(okHandler(http.StatusOK))
	req := httptest.NewRequest(http.MethodPost, "/cart/items", nil)
	req.Header.Set("X-CSRF-Token", "secure-token")
	req.AddCookie(&http.Cookie{Name: "lb_csrf", Value: "secure-token"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	req.Header.Set("X-CSRF-Token", "other-token")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCSRFMiddlewareSkipsHeaderIdentifiedClients(t *testing.T) {
	handler := CSRF{}.Middleware(okHandler(http.StatusAccepted))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/cart/items", nil)
	req.Header.Set(common.ClientIDHeader, "6f1c2b4e-9a7d-4c1e-8d55-3f2a1b0c9e77")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code)
}
