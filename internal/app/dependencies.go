// Package app assembles the storefront services from configuration.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/lanches-api/internal/address"
	"github.com/noah-isme/lanches-api/internal/auth"
	"github.com/noah-isme/lanches-api/internal/cart"
	"github.com/noah-isme/lanches-api/internal/catalog"
	"github.com/noah-isme/lanches-api/internal/checkout"
	"github.com/noah-isme/lanches-api/internal/config"
	"github.com/noah-isme/lanches-api/internal/events"
	"github.com/noah-isme/lanches-api/internal/lock"
	"github.com/noah-isme/lanches-api/internal/obs"
	"github.com/noah-isme/lanches-api/internal/pix"
	"github.com/noah-isme/lanches-api/internal/queue"
	"github.com/noah-isme/lanches-api/internal/ratelimit"
	"github.com/noah-isme/lanches-api/internal/resilience"
	"github.com/noah-isme/lanches-api/internal/store"
)

// Dependencies owns every long-lived object the HTTP server needs.
type Dependencies struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Redis        *redis.Client
	Store        store.Store
	Locker       lock.Locker
	LimiterStore limiter.Store
	Bus          *events.Bus
	Sessions     *checkout.PixSessions
	Carts        *cart.Service
	Checkout     *checkout.Service
	Auth         *auth.Service
	Catalog      *catalog.Service
	Address      *address.Service
}

// Options carries collaborators created outside the container.
type Options struct {
	// Tasks receives receipt e-mails; nil disables them.
	Tasks queue.Enqueuer
	// Registerer for queue and breaker collectors; nil uses the default.
	Registerer prometheus.Registerer
	// CEPProvider overrides the ViaCEP client.
	CEPProvider address.Provider
}

// New wires the services on top of a connected Redis client.
func New(cfg *config.Config, rdb *redis.Client, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if rdb == nil {
		return nil, errors.New("app: redis client is required")
	}
	queue.RegisterMetrics(opts.Registerer)
	if err := resilience.RegisterMetrics(opts.Registerer); err != nil {
		return nil, err
	}

	st := store.NewRedis(rdb, cfg.RedisPrefix, cfg.DurableTTL, cfg.SessionTTL)
	locker := lock.Redis{R: rdb}
	limiterStore, err := ratelimit.NewStore(rdb, cfg.RedisPrefix+":limiter")
	if err != nil {
		return nil, err
	}

	notifiers := []events.Notifier{events.LogNotifier{Logger: obs.Component(logger, "events")}}
	if opts.Tasks != nil && cfg.ReceiptEmails {
		notifiers = append(notifiers, queue.ReceiptNotifier{
			Client:  opts.Tasks,
			Options: queue.TaskOptions{Queue: cfg.QueueName},
			Logger:  obs.Component(logger, "queue"),
		})
	}
	bus := &events.Bus{
		Store:     events.RedisStream{R: rdb, Stream: cfg.RedisPrefix + ":" + cfg.EventStream, MaxLen: cfg.EventStreamMax},
		Notifiers: notifiers,
	}

	carts := cart.NewService(st, locker, nil, obs.Component(logger, "cart"))
	carts.LockTTL = cfg.CartLockTTL

	authSvc, err := auth.NewService(auth.Config{
		Store:       st,
		Locker:      locker,
		Bus:         bus,
		Secret:      cfg.JWTSecret,
		SessionTTL:  cfg.AccessTokenTTL,
		RememberTTL: cfg.RememberTokenTTL,
		Logger:      obs.Component(logger, "auth"),
	})
	if err != nil {
		return nil, err
	}

	sessions := checkout.NewPixSessions(cfg.PixCountdown)
	gen := pix.Generator{Merchant: pix.Merchant{Key: cfg.PixKey, Name: cfg.PixMerchantName, City: cfg.PixMerchantCity}}
	checkoutSvc := checkout.NewService(carts, st, gen, sessions, bus, obs.Component(logger, "checkout"))
	checkoutSvc.Recipient = authSvc.CurrentEmail

	provider := opts.CEPProvider
	if provider == nil {
		breaker := resilience.NewBreaker(cfg.BreakerMinReqs, cfg.BreakerFailRatio, cfg.BreakerOpenFor).
			WithTarget("viacep").
			WithLogger(logger)
		provider = address.ViaCEP{
			BaseURL: cfg.ViaCEPBaseURL,
			HTTP: resilience.HTTPClient{
				Client:      resilience.NewTracedClient(cfg.ViaCEPTimeout),
				Breaker:     breaker,
				Target:      "viacep",
				MaxAttempts: cfg.ViaCEPMaxAttempts,
				BaseBackoff: 200 * time.Millisecond,
				Jitter:      0.2,
				Timeout:     cfg.ViaCEPTimeout,
			},
		}
	}

	return &Dependencies{
		Config:       cfg,
		Logger:       logger,
		Redis:        rdb,
		Store:        st,
		Locker:       locker,
		LimiterStore: limiterStore,
		Bus:          bus,
		Sessions:     sessions,
		Carts:        carts,
		Checkout:     checkoutSvc,
		Auth:         authSvc,
		Catalog: catalog.NewService(catalog.Config{
			Cache:  catalog.NewCache(rdb, cfg.CatalogCacheTTL),
			Logger: obs.Component(logger, "catalog"),
		}),
		Address: address.NewService(provider, obs.Component(logger, "address")),
	}, nil
}

// Close stops PIX countdowns. The Redis client belongs to the caller.
func (d *Dependencies) Close(context.Context) error {
	d.Sessions.Close()
	return nil
}
