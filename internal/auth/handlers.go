package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/lanches-api/internal/common"
)

// Handler exposes HTTP handlers for authentication and account endpoints.
type Handler struct {
	Service          *Service
	AccessCookieName string
	CookieDomain     string
	CookieSecure     bool
	CookieSameSite   http.SameSite
	// LoginGuard wraps the login route, typically with a rate limiter.
	LoginGuard func(http.Handler) http.Handler
}

// Routes mounts the auth endpoints.
func (h *Handler) Routes(r chi.Router) {
	mw := Middleware{Service: h.Service, AccessCookie: h.AccessCookieName}
	r.Post("/register", h.Register)
	if h.LoginGuard != nil {
		r.With(h.LoginGuard).Post("/login", h.Login)
	} else {
		r.Post("/login", h.Login)
	}
	r.Post("/logout", h.Logout)
	r.Get("/current", h.Current)
	r.With(mw.RequireAuth).Get("/me", h.Me)
	r.Post("/password-strength", h.PasswordStrength)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

func clientID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := common.ClientID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "missing client id", nil)
	}
	return id, ok
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	var req RegisterInput
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	session, err := h.Service.Register(r.Context(), id, req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.setAuthCookie(w, session)
	common.Data(w, http.StatusCreated, session, common.NewNotice(common.NoticeSuccess, "Conta criada! Bem-vindo, "+FirstName(session.User.Name)+"!"))
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	var req loginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	session, err := h.Service.Login(r.Context(), id, req.Email, req.Password, req.Remember)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.setAuthCookie(w, session)
	common.Data(w, http.StatusOK, session, common.NewNotice(common.NoticeSuccess, "Bem-vindo de volta, "+FirstName(session.User.Name)+"!"))
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	if err := h.Service.Logout(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	h.clearAuthCookie(w)
	common.Data(w, http.StatusOK, nil, common.NewNotice(common.NoticeInfo, "Até logo!"))
}

// Current handles GET /auth/current and reports the client's signed-in
// user, or null.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	user, found, err := h.Service.Current(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if !found {
		common.Data(w, http.StatusOK, nil, nil)
		return
	}
	common.Data(w, http.StatusOK, user, nil)
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Faça login para continuar.", nil)
		return
	}
	user, err := h.Service.Me(r.Context(), claims)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, user, nil)
}

// PasswordStrength handles POST /auth/password-strength.
func (h *Handler) PasswordStrength(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, PasswordStrength(req.Password), nil)
}

func (h *Handler) setAuthCookie(w http.ResponseWriter, s Session) {
	if h.AccessCookieName == "" {
		return
	}
	cookie := &http.Cookie{
		Name:     h.AccessCookieName,
		Value:    s.AccessToken,
		Domain:   h.CookieDomain,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: h.CookieSameSite,
	}
	if s.Remember {
		cookie.Expires = s.ExpiresAt
	}
	http.SetCookie(w, cookie)
}

func (h *Handler) clearAuthCookie(w http.ResponseWriter) {
	if h.AccessCookieName == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.AccessCookieName,
		Value:    "",
		Domain:   h.CookieDomain,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: h.CookieSameSite,
	})
}
