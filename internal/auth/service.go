// Package auth manages storefront accounts and which account a client is
// signed in as.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lanches-api/internal/common"
	"github.com/noah-isme/lanches-api/internal/events"
	"github.com/noah-isme/lanches-api/internal/lock"
	"github.com/noah-isme/lanches-api/internal/obs"
	"github.com/noah-isme/lanches-api/internal/store"
)

const (
	defaultSessionTTL  = 2 * time.Hour
	defaultRememberTTL = 30 * 24 * time.Hour
)

var (
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordMismatch   = errors.New("auth: passwords do not match")
	ErrUnauthorized       = errors.New("auth: unauthorized")
)

// Account is the stored credential record.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Phone        string    `json:"phone,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// User is the public view of an account.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (a Account) user() User {
	return User{ID: a.ID, Name: a.Name, Email: a.Email, Phone: a.Phone, CreatedAt: a.CreatedAt}
}

// Session is the result of signing in.
type Session struct {
	User        User      `json:"user"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Remember    bool      `json:"remember"`
}

// Config configures the auth service.
type Config struct {
	Store       store.Store
	Locker      lock.Locker
	Bus         *events.Bus
	Secret      string
	SessionTTL  time.Duration
	RememberTTL time.Duration
	Issuer      string
	Audience    string
	ClockSkew   time.Duration
	Logger      zerolog.Logger
}

// Service coordinates registration, login and the per-client current user.
type Service struct {
	store       store.Store
	locker      lock.Locker
	bus         *events.Bus
	signer      Signer
	sessionTTL  time.Duration
	rememberTTL time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("auth: store is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	rememberTTL := cfg.RememberTTL
	if rememberTTL <= 0 {
		rememberTTL = defaultRememberTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "lanches-api"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "lanches-web"
	}
	skew := cfg.ClockSkew
	if skew < 0 {
		skew = 0
	}
	locker := cfg.Locker
	if locker == nil {
		locker = &lock.Local{}
	}
	return &Service{
		store:       cfg.Store,
		locker:      locker,
		bus:         cfg.Bus,
		signer:      Signer{Secret: []byte(secret), Issuer: issuer, Audience: audience, ClockSkew: skew},
		sessionTTL:  sessionTTL,
		rememberTTL: rememberTTL,
		now:         time.Now,
		logger:      cfg.Logger,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func accountLockKey(email string) string {
	return "lock:account:" + email
}

func invalidCredentials() error {
	return common.NewAppError("INVALID_CREDENTIALS", "E-mail ou senha incorretos.", http.StatusUnauthorized, ErrInvalidCredentials)
}

func unauthorized() error {
	return common.NewAppError("UNAUTHORIZED", "Faça login para continuar.", http.StatusUnauthorized, ErrUnauthorized)
}

func (s *Service) loadAccount(ctx context.Context, email string) (Account, bool, error) {
	var acc Account
	ok, err := s.store.GetJSON(ctx, store.Durable, store.AccountKey(email), &acc)
	if err != nil {
		return Account{}, false, fmt.Errorf("load account: %w", err)
	}
	return acc, ok, nil
}

// Register creates an account and signs the client in with remember on.
func (s *Service) Register(ctx context.Context, clientID string, in RegisterInput) (Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Password != in.PasswordConfirm {
		obs.IncAuthEvent("register", "mismatch")
		return Session{}, common.ValidationError("PASSWORD_MISMATCH", "As senhas não coincidem.", ErrPasswordMismatch)
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		return Session{}, common.ValidationError("PASSWORD_TOO_SHORT", fmt.Sprintf("A senha deve ter pelo menos %d caracteres.", MinPasswordLength), nil)
	}
	if err := common.Validate(in); err != nil {
		return Session{}, err
	}
	var acc Account
	err := s.locker.WithLock(ctx, accountLockKey(in.Email), 10*time.Second, func(ctx context.Context) error {
		_, exists, err := s.loadAccount(ctx, in.Email)
		if err != nil {
			return err
		}
		if exists {
			return common.NewAppError("EMAIL_ALREADY_USED", "Este e-mail já está cadastrado.", http.StatusConflict, ErrEmailTaken)
		}
		hash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		acc = Account{
			ID:           uuid.NewString(),
			Name:         in.Name,
			Email:        in.Email,
			PasswordHash: hash,
			Phone:        in.Phone,
			CreatedAt:    s.now().UTC(),
		}
		if err := s.store.SetJSON(ctx, store.Durable, store.AccountKey(acc.Email), acc); err != nil {
			return fmt.Errorf("save account: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			obs.IncAuthEvent("register", "duplicate")
		}
		return Session{}, err
	}
	obs.IncAuthEvent("register", "ok")
	if s.bus != nil {
		if _, err := s.bus.Emit(ctx, events.TopicAccountRegistered, clientID, map[string]string{"userId": acc.ID}); err != nil {
			s.logger.Warn().Err(err).Str("client_id", clientID).Msg("emit account registered")
		}
	}
	return s.signIn(ctx, clientID, acc, true)
}

// Login checks credentials. With remember the current user is kept in the
// durable scope; otherwise only for the session and any durable copy is
// removed.
func (s *Service) Login(ctx context.Context, clientID, email, password string, remember bool) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		obs.IncAuthEvent("login", "invalid")
		return Session{}, invalidCredentials()
	}
	acc, ok, err := s.loadAccount(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		obs.IncAuthEvent("login", "invalid")
		return Session{}, invalidCredentials()
	}
	match, err := argon2id.ComparePasswordAndHash(password, acc.PasswordHash)
	if err != nil || !match {
		obs.IncAuthEvent("login", "invalid")
		return Session{}, invalidCredentials()
	}
	obs.IncAuthEvent("login", "ok")
	return s.signIn(ctx, clientID, acc, remember)
}

func (s *Service) signIn(ctx context.Context, clientID string, acc Account, remember bool) (Session, error) {
	user := acc.user()
	key := store.ClientKey(clientID, store.KeyCurrentUser)
	ttl := s.sessionTTL
	if remember {
		ttl = s.rememberTTL
		if err := s.store.SetJSON(ctx, store.Durable, key, user); err != nil {
			return Session{}, fmt.Errorf("save current user: %w", err)
		}
	} else {
		if err := s.store.SetJSON(ctx, store.Session, key, user); err != nil {
			return Session{}, fmt.Errorf("save current user: %w", err)
		}
		if err := s.store.Delete(ctx, store.Durable, key); err != nil {
			return Session{}, fmt.Errorf("clear remembered user: %w", err)
		}
	}
	token, expiresAt, err := s.signer.Sign(user.ID, user.Email, remember, s.now(), ttl)
	if err != nil {
		return Session{}, fmt.Errorf("sign access token: %w", err)
	}
	return Session{User: user, AccessToken: token, ExpiresAt: expiresAt, Remember: remember}, nil
}

// Logout forgets the client's current user in both scopes.
func (s *Service) Logout(ctx context.Context, clientID string) error {
	key := store.ClientKey(clientID, store.KeyCurrentUser)
	if err := s.store.Delete(ctx, store.Durable, key); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, store.Session, key); err != nil {
		return err
	}
	obs.IncAuthEvent("logout", "ok")
	return nil
}

// Current returns the client's signed-in user, preferring the durable copy.
func (s *Service) Current(ctx context.Context, clientID string) (User, bool, error) {
	key := store.ClientKey(clientID, store.KeyCurrentUser)
	for _, scope := range []store.Scope{store.Durable, store.Session} {
		var u User
		ok, err := s.store.GetJSON(ctx, scope, key, &u)
		if err != nil {
			return User{}, false, fmt.Errorf("load current user: %w", err)
		}
		if ok && u.ID != "" {
			return u, true, nil
		}
	}
	return User{}, false, nil
}

// CurrentEmail is used to address receipts. Errors read as anonymous.
func (s *Service) CurrentEmail(ctx context.Context, clientID string) string {
	u, ok, err := s.Current(ctx, clientID)
	if err != nil || !ok {
		return ""
	}
	return u.Email
}

// Me resolves token claims to the stored account.
func (s *Service) Me(ctx context.Context, claims Claims) (User, error) {
	if claims.UserID == "" || claims.Email == "" {
		return User{}, unauthorized()
	}
	acc, ok, err := s.loadAccount(ctx, claims.Email)
	if err != nil {
		return User{}, err
	}
	if !ok || acc.ID != claims.UserID {
		return User{}, unauthorized()
	}
	return acc.user(), nil
}

// ParseAccessToken validates an access token and returns its claims.
func (s *Service) ParseAccessToken(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, unauthorized()
	}
	claims, err := s.signer.Parse(trimmed, s.now())
	if err != nil {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "Sessão inválida ou expirada.", http.StatusUnauthorized, err)
	}
	return claims, nil
}
