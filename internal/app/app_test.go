package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lanches-api/internal/address"
	"github.com/noah-isme/lanches-api/internal/config"
	"github.com/noah-isme/lanches-api/internal/pix"
	"github.com/noah-isme/lanches-api/internal/queue"
)

const clientID = "0d6f3a3e-5b8c-4f7e-9a41-2c1d7e9b8a60"

type capture struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (c *capture) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{ID: "1"}, nil
}

type stubCEP struct{}

func (stubCEP) Lookup(_ context.Context, cep string) (address.Result, error) {
	if cep == "96200000" {
		return address.Result{CEP: cep, Street: "Rua Marechal Floriano", District: "Centro", City: "Rio Grande", State: "RS"}, nil
	}
	return address.Result{}, address.ErrNotFound
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:           "test",
		RedisPrefix:      "lb",
		JWTSecret:        "test-secret",
		SessionTTL:       time.Hour,
		ClientCookieName: "lb_client",
		AccessCookieName: "lb_access",
		CookieSameSite:   http.SameSiteLaxMode,
		AccessTokenTTL:   time.Hour,
		RememberTokenTTL: 24 * time.Hour,
		PixKey:           "51994682268",
		PixMerchantName:  "LANCHES E BEBIDAS",
		PixMerchantCity:  "RIO GRANDE",
		PixCountdown:     time.Minute,
		CartLockTTL:      5 * time.Second,
		IdempotencyTTL:   time.Hour,
		CatalogCacheTTL:  time.Minute,
		RateLimitWindow:  time.Minute,
		RateLimitMax:     1000,
		LoginRateLimit:   "100-M",
		BodyLimitBytes:   64 << 10,
		CSRFEnabled:      true,
		SecurityHeaders:  true,
		EventStream:      "events",
		EventStreamMax:   100,
		QueueName:        "default",
		ReceiptEmails:    true,
	}
}

type harness struct {
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	tasks  *capture
	router http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tasks := &capture{}
	deps, err := New(testConfig(), rdb, zerolog.Nop(), Options{
		Tasks:       tasks,
		Registerer:  prometheus.NewRegistry(),
		CEPProvider: stubCEP{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })

	router, err := deps.Router(RouterOptions{})
	require.NoError(t, err)
	return &harness{mr: mr, rdb: rdb, tasks: tasks, router: router}
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Notice *struct {
		Message string `json:"message"`
	} `json:"notice"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (h *harness) call(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-ID", clientID)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	var env envelope
	_ = json.Unmarshal(rr.Body.Bytes(), &env)
	return rr.Code, env
}

func TestCheckoutWithPixEndToEnd(t *testing.T) {
	h := newHarness(t)

	code, _ := h.call(t, http.MethodPost, "/api/v1/auth/register",
		`{"name":"Ana Souza","email":"ana@example.com","password":"Segredo1!","passwordConfirm":"Segredo1!"}`)
	require.Equal(t, http.StatusCreated, code)

	for _, body := range []string{
		`{"name":"X-Burger","price":"18.50"}`,
		`{"name":"X-Burger","price":"18.50"}`,
		`{"name":"Suco","price":"5.00"}`,
	} {
		code, _ = h.call(t, http.MethodPost, "/api/v1/cart/items", body)
		require.Equal(t, http.StatusOK, code)
	}

	code, _ = h.call(t, http.MethodPost, "/api/v1/checkout/open", "")
	require.Equal(t, http.StatusOK, code)
	code, _ = h.call(t, http.MethodPost, "/api/v1/checkout/next", "")
	require.Equal(t, http.StatusOK, code)

	code, env := h.call(t, http.MethodGet, "/api/v1/address/cep/96200-000", "")
	require.Equal(t, http.StatusOK, code)
	var found address.Result
	require.NoError(t, json.Unmarshal(env.Data, &found))

	addr, err := json.Marshal(map[string]string{
		"cep": found.CEP, "street": found.Street, "number": "100",
		"district": found.District, "city": found.City, "state": found.State,
	})
	require.NoError(t, err)
	code, _ = h.call(t, http.MethodPut, "/api/v1/checkout/address", string(addr))
	require.Equal(t, http.StatusOK, code)

	code, env = h.call(t, http.MethodPost, "/api/v1/checkout/payment/pix", "")
	require.Equal(t, http.StatusOK, code)
	var sel struct {
		Selection struct {
			Pix struct {
				CopyPaste string `json:"copyPaste"`
			} `json:"pix"`
		} `json:"selection"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sel))
	parsed, err := pix.Parse(sel.Selection.Pix.CopyPaste)
	require.NoError(t, err)
	require.Equal(t, "47.00", parsed.Amount)
	require.Equal(t, "LANCHES E BEBIDAS", parsed.Name)

	code, _ = h.call(t, http.MethodPost, "/api/v1/checkout/pix/confirm", "")
	require.Equal(t, http.StatusOK, code)

	code, env = h.call(t, http.MethodPost, "/api/v1/checkout/finish", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Obrigado pela compra! Logo chegará até você.", env.Notice.Message)

	require.Len(t, h.tasks.tasks, 1)
	require.Equal(t, queue.TypeReceiptEmail, h.tasks.tasks[0].Type())
	payload, err := queue.DecodeReceipt(h.tasks.tasks[0])
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", payload.Email)
	require.Equal(t, "47.00", payload.Receipt.Total)

	n, err := h.rdb.XLen(context.Background(), "lb:events").Result()
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	code, env = h.call(t, http.MethodGet, "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(env.Data), `"items":[]`)
}

func TestEmptyCartCannotOpenCheckout(t *testing.T) {
	h := newHarness(t)
	code, env := h.call(t, http.MethodPost, "/api/v1/checkout/open", "")
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, "EMPTY_CART", env.Error.Code)
}

func TestHealthAndMenuRoutes(t *testing.T) {
	h := newHarness(t)

	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	code, env := h.call(t, http.MethodGet, "/api/v1/menu/search?q=pizza", "")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(env.Data), "Pizza Calabresa")
}

func TestCookieOnlyWritesNeedCSRFToken(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"name":"Suco","price":"5"}`))
	req.AddCookie(&http.Cookie{Name: "lb_client", Value: clientID})
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)
}
