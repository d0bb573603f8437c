package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"StoreFront/internal/kv"
	"StoreFront/pkg/kit"
)

const (
	DefaultTokenTTL = 15 * time.Minute

	defaultLoginLimit    = 5
	defaultRegisterLimit = 3
	limitWindow          = time.Minute
	minPasswordLen       = 8
)

type Server struct {
	Log   *zap.Logger
	Users UserStore
	JWT   *TokenMaker

	// Scope returns the key-value store private to a user.
	Scope func(userID string) kv.Store

	TokenTTL time.Duration
	// Per-IP requests per minute; zero means the defaults.
	LoginLimit    int
	RegisterLimit int
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	loginLimiter := kit.NewIPRateLimiter(orDefault(s.LoginLimit, defaultLoginLimit), limitWindow)
	registerLimiter := kit.NewIPRateLimiter(orDefault(s.RegisterLimit, defaultRegisterLimit), limitWindow)

	r.Route("/auth", func(rr chi.Router) {
		rr.With(loginLimiter.Middleware).Post("/login", s.handleLogin)
		rr.With(registerLimiter.Middleware).Post("/register", s.handleRegister)
		rr.With(s.Require).Post("/logout", s.handleLogout)
		rr.With(s.Require).Get("/whoami", s.handleWhoAmI)
	})

	return r
}

type ctxKey struct{}

// ClaimsFromContext returns the caller's claims stored by Require.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(Claims)
	return c, ok
}

// Require rejects requests without a valid bearer token or whose user has
// logged out since the token was issued.
func (s *Server) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := kit.BearerToken(r)
		if !ok {
			kit.WriteError(w, r, http.StatusUnauthorized, "missing token", nil)
			return
		}

		claims, err := s.JWT.Parse(tok)
		if err != nil {
			kit.WriteError(w, r, http.StatusUnauthorized, "invalid token", nil)
			return
		}

		if !s.sessions(claims.UserID).Status(r.Context()).LoggedIn {
			kit.WriteError(w, r, http.StatusUnauthorized, "logged out", nil)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) sessions(userID string) *SessionStore {
	return NewSessionStore(s.Scope(userID), s.Log)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) readCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var req credentials
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return req, false
	}

	req.Email = normalizeEmail(req.Email)
	req.Password = normalizePassword(req.Password)

	if req.Email == "" || req.Password == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "email/password required", nil)
		return req, false
	}
	return req, true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readCredentials(w, r)
	if !ok {
		return
	}
	if len(req.Password) < minPasswordLen {
		kit.WriteError(w, r, http.StatusBadRequest, "password too short", map[string]any{"min_len": minPasswordLen})
		return
	}

	id := "u_" + uuid.NewString()

	err := s.Users.Create(r.Context(), req.Email, req.Password, RoleUser, id)
	switch {
	case errors.Is(err, ErrEmailExists):
		kit.WriteError(w, r, http.StatusConflict, err.Error(), nil)
		return
	case err != nil:
		kit.OrNop(s.Log).Error("register", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusCreated, map[string]any{"user_id": id})
}

type loginResp struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readCredentials(w, r)
	if !ok {
		return
	}

	u, err := s.Users.Verify(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		kit.WriteError(w, r, http.StatusUnauthorized, "invalid credentials", nil)
		return
	case err != nil:
		kit.OrNop(s.Log).Error("verify", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	tok, err := s.JWT.New(u.ID, u.Email, u.Role, ttl)
	if err != nil {
		kit.OrNop(s.Log).Error("token issue", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	if err := s.sessions(u.ID).Login(r.Context(), u); err != nil {
		kit.OrNop(s.Log).Error("session save", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, loginResp{AccessToken: tok, ExpiresIn: int(ttl.Seconds())})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	if err := s.sessions(claims.UserID).Logout(r.Context()); err != nil {
		kit.OrNop(s.Log).Error("session save", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id": claims.UserID,
		"email":   claims.Email,
		"role":    claims.Role,
		"session": s.sessions(claims.UserID).Status(r.Context()),
	})
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
