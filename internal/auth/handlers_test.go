package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lanches-api/internal/common"
)

const testClient = "2b1f0c3e-7a4d-4e55-9c21-0d8e6f4a1b90"

type envelope struct {
	Data   json.RawMessage   `json:"data"`
	Notice *common.Notice    `json:"notice"`
	Error  *common.ErrorBody `json:"error"`
}

func newRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Use(common.ClientCookie{}.Middleware)
	h := &Handler{Service: svc, AccessCookieName: "lb_access"}
	r.Route("/auth", h.Routes)
	return r
}

func send(t *testing.T, h http.Handler, method, path, body string, mutate func(*http.Request)) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(common.ClientIDHeader, testClient)
	if mutate != nil {
		mutate(req)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var env envelope
	_ = json.Unmarshal(rr.Body.Bytes(), &env)
	return rr, env
}

func TestAuthHTTPFlow(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := newRouter(svc)

	rr, env := send(t, h, http.MethodPost, "/auth/register",
		`{"name":"Ana Souza","email":"ana@example.com","password":"Segredo1!","passwordConfirm":"Segredo1!"}`, nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "Conta criada! Bem-vindo, Ana!", env.Notice.Message)

	rr, env = send(t, h, http.MethodPost, "/auth/login",
		`{"email":"ana@example.com","password":"Segredo1!","remember":true}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Bem-vindo de volta, Ana!", env.Notice.Message)
	var session Session
	require.NoError(t, json.Unmarshal(env.Data, &session))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "lb_access", cookies[0].Name)
	require.False(t, cookies[0].Expires.IsZero())

	rr, env = send(t, h, http.MethodGet, "/auth/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+session.AccessToken)
	})
	require.Equal(t, http.StatusOK, rr.Code)
	var me User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	require.Equal(t, "ana@example.com", me.Email)

	rr, _ = send(t, h, http.MethodGet, "/auth/me", "", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "lb_access", Value: session.AccessToken})
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr, env = send(t, h, http.MethodPost, "/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Até logo!", env.Notice.Message)

	rr, env = send(t, h, http.MethodGet, "/auth/current", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "null", string(env.Data))
}

func TestAuthHTTPErrors(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := newRouter(svc)

	rr, env := send(t, h, http.MethodPost, "/auth/login", `{"email":"x@y.z","password":"nope"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "E-mail ou senha incorretos.", env.Error.Message)

	rr, _ = send(t, h, http.MethodGet, "/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, env = send(t, h, http.MethodPost, "/auth/register",
		`{"name":"Ana","email":"ana@example.com","password":"123456","passwordConfirm":"1234567"}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Equal(t, "As senhas não coincidem.", env.Error.Message)
}

func TestPasswordStrengthEndpoint(t *testing.T) {
	svc, _, _ := newTestService(t)
	rr, env := send(t, newRouter(svc), http.MethodPost, "/auth/password-strength", `{"password":"Abcd1!"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var s Strength
	require.NoError(t, json.Unmarshal(env.Data, &s))
	require.Equal(t, Strength{Score: 4, Label: "Forte"}, s)
}
