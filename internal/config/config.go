package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	RedisPrefix        string
	JWTSecret          string
	CORSAllowedOrigins []string

	// Store scopes. A zero DurableTTL keeps durable documents forever.
	DurableTTL time.Duration
	SessionTTL time.Duration

	ClientCookieName   string
	ClientCookieMaxAge time.Duration
	AccessCookieName   string
	CookieDomain       string
	CookieSecure       bool
	CookieSameSite     http.SameSite
	AccessTokenTTL     time.Duration
	RememberTokenTTL   time.Duration

	PixKey          string
	PixMerchantName string
	PixMerchantCity string
	PixCountdown    time.Duration

	ViaCEPBaseURL     string
	ViaCEPTimeout     time.Duration
	ViaCEPMaxAttempts int
	BreakerMinReqs    int
	BreakerFailRatio  float64
	BreakerOpenFor    time.Duration

	CartLockTTL      time.Duration
	IdempotencyTTL   time.Duration
	CatalogCacheTTL  time.Duration
	RateLimitWindow  time.Duration
	RateLimitMax     int
	LoginRateLimit   string
	BodyLimitBytes   int64
	CSRFEnabled      bool
	SecurityHeaders  bool
	EventStream      string
	EventStreamMax   int64
	QueueName        string
	QueueConcurrency int
	ReceiptEmails    bool
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		RedisPrefix:        valueOrDefault(k.String("REDIS_PREFIX"), "lb"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		DurableTTL:         parseDuration(k.String("STORE_DURABLE_TTL"), "0s"),
		SessionTTL:         parseDuration(k.String("STORE_SESSION_TTL"), "2h"),
		ClientCookieName:   valueOrDefault(k.String("CLIENT_COOKIE_NAME"), "lb_client"),
		ClientCookieMaxAge: parseDuration(k.String("CLIENT_COOKIE_MAX_AGE"), "8760h"),
		AccessCookieName:   valueOrDefault(k.String("ACCESS_COOKIE_NAME"), "lb_access"),
		CookieDomain:       strings.TrimSpace(k.String("COOKIE_DOMAIN")),
		CookieSecure:       parseBool(k.String("COOKIE_SECURE"), false),
		CookieSameSite:     parseSameSite(k.String("COOKIE_SAMESITE")),
		AccessTokenTTL:     parseDuration(k.String("ACCESS_TOKEN_TTL"), "2h"),
		RememberTokenTTL:   parseDuration(k.String("REMEMBER_TOKEN_TTL"), "720h"),
		PixKey:             valueOrDefault(k.String("PIX_KEY"), "51994682268"),
		PixMerchantName:    valueOrDefault(k.String("PIX_MERCHANT_NAME"), "LANCHES E BEBIDAS"),
		PixMerchantCity:    valueOrDefault(k.String("PIX_MERCHANT_CITY"), "RIO GRANDE"),
		PixCountdown:       parseDuration(k.String("PIX_COUNTDOWN"), "15m"),
		ViaCEPBaseURL:      valueOrDefault(k.String("VIACEP_BASE_URL"), "https://viacep.com.br/ws"),
		ViaCEPTimeout:      parseDuration(k.String("VIACEP_TIMEOUT"), "5s"),
		ViaCEPMaxAttempts:  parseInt(k.String("VIACEP_MAX_ATTEMPTS"), 1),
		BreakerMinReqs:     parseInt(k.String("BREAKER_MIN_REQUESTS"), 5),
		BreakerFailRatio:   parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:     parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),
		CartLockTTL:        parseDuration(k.String("CART_LOCK_TTL"), "10s"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CatalogCacheTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "10m"),
		RateLimitWindow:    parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:       parseInt(k.String("RATE_LIMIT_MAX"), 120),
		LoginRateLimit:     valueOrDefault(k.String("LOGIN_RATE_LIMIT"), "10-M"),
		BodyLimitBytes:     int64(parseInt(k.String("BODY_LIMIT_BYTES"), 64<<10)),
		CSRFEnabled:        parseBool(k.String("CSRF_ENABLED"), true),
		SecurityHeaders:    parseBool(k.String("SECURITY_HEADERS_ENABLED"), true),
		EventStream:        valueOrDefault(k.String("EVENT_STREAM"), "events"),
		EventStreamMax:     int64(parseInt(k.String("EVENT_STREAM_MAXLEN"), 10000)),
		QueueName:          valueOrDefault(k.String("QUEUE_NAME"), "default"),
		QueueConcurrency:   parseInt(k.String("QUEUE_CONCURRENCY"), 5),
		ReceiptEmails:      parseBool(k.String("RECEIPT_EMAILS_ENABLED"), true),
	}

	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.PixCountdown <= 0 {
		return nil, errors.New("PIX_COUNTDOWN must be positive")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
