package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/noah-isme/lanches-api/internal/address"
	"github.com/noah-isme/lanches-api/internal/auth"
	"github.com/noah-isme/lanches-api/internal/cart"
	"github.com/noah-isme/lanches-api/internal/catalog"
	"github.com/noah-isme/lanches-api/internal/checkout"
	"github.com/noah-isme/lanches-api/internal/common"
	"github.com/noah-isme/lanches-api/internal/health"
	"github.com/noah-isme/lanches-api/internal/obs"
	"github.com/noah-isme/lanches-api/internal/ratelimit"
	"github.com/noah-isme/lanches-api/internal/security"
)

// RouterOptions toggles the observability layers.
type RouterOptions struct {
	Metrics        *obs.HTTPMetrics
	MetricsHandler http.Handler
	Pprof          http.Handler
	Tracing        bool
}

// Router builds the HTTP surface.
func (d *Dependencies) Router(o RouterOptions) (http.Handler, error) {
	cfg := d.Config
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if o.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if o.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: o.Metrics}.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", common.ClientIDHeader, "Idempotency-Key"},
		ExposedHeaders:   []string{common.ClientIDHeader, "X-Total-Count", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.CookieSecure}.Middleware)

	if o.MetricsHandler != nil {
		r.Handle("/metrics", o.MetricsHandler)
	}
	if o.Pprof != nil {
		r.Mount("/debug/pprof", o.Pprof)
	}
	healthHandler := health.Handler{Probes: map[string]health.Probe{
		"store": health.PingProbe(d.Store),
	}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	loginGuard, err := ratelimit.NewFixed(d.LimiterStore, cfg.LoginRateLimit, ratelimit.ByIP("login"))
	if err != nil {
		return nil, err
	}
	loginGuard.OnError = func(err error) { d.Logger.Warn().Err(err).Msg("login limiter unavailable") }
	authHandler := &auth.Handler{
		Service:          d.Auth,
		AccessCookieName: cfg.AccessCookieName,
		CookieDomain:     cfg.CookieDomain,
		CookieSecure:     cfg.CookieSecure,
		CookieSameSite:   cfg.CookieSameSite,
		LoginGuard:       loginGuard.Middleware,
	}
	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL}
	throttle := ratelimit.Handler{
		Limiter: ratelimit.Sliding{Client: d.Redis, Prefix: cfg.RedisPrefix + ":rl:"},
		Config:  ratelimit.Config{Key: ratelimit.ByClient("api"), Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
		OnError: func(err error) { d.Logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(common.ClientCookie{
			Name:     cfg.ClientCookieName,
			Secure:   cfg.CookieSecure,
			Domain:   cfg.CookieDomain,
			MaxAge:   cfg.ClientCookieMaxAge,
			SameSite: cfg.CookieSameSite,
		}.Middleware)
		v.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
		v.Use(throttle.Middleware)
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		if cfg.CSRFEnabled {
			v.Use(security.CSRF{Secure: cfg.CookieSecure}.Middleware)
		}
		v.Use(auth.Middleware{Service: d.Auth, AccessCookie: cfg.AccessCookieName}.Authenticate)

		v.Route("/menu", catalog.NewHandler(d.Catalog).Routes)
		v.Get("/address/cep/{cep}", address.NewHandler(d.Address).Lookup)
		v.Route("/auth", authHandler.Routes)
		v.Group(func(g chi.Router) {
			g.Use(idem.Middleware)
			g.Route("/cart", cart.NewHandler(d.Carts).Routes)
			g.Route("/checkout", checkout.NewHandler(d.Checkout).Routes)
		})
	})
	return r, nil
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
