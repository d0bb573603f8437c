// Package prefs holds per-user display preferences.
package prefs

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"StoreFront/internal/kv"
	"StoreFront/pkg/kit"
)

const KeyDarkMode = "darkMode"

type Store struct {
	kv  kv.Store
	log *zap.Logger
}

func New(store kv.Store, log *zap.Logger) *Store {
	return &Store{kv: store, log: kit.OrNop(log)}
}

// DarkMode reports the saved flag. Anything other than the literal "true"
// reads as false.
func (s *Store) DarkMode(ctx context.Context) bool {
	raw, ok, err := s.kv.Get(ctx, KeyDarkMode)
	if err != nil {
		s.log.Warn("dark mode read failed", zap.Error(err))
		return false
	}
	return ok && string(raw) == "true"
}

func (s *Store) SetDarkMode(ctx context.Context, on bool) error {
	v := "false"
	if on {
		v = "true"
	}
	if err := s.kv.Set(ctx, KeyDarkMode, []byte(v)); err != nil {
		return &kv.StorageError{Op: "set", Key: KeyDarkMode, Err: err}
	}
	return nil
}

type Server struct {
	Scope func(*http.Request) (kv.Store, bool)
	Log   *zap.Logger
}

type darkModeBody struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/prefs/dark-mode", s.get)
	r.Put("/prefs/dark-mode", s.put)
	return r
}

func (s *Server) store(w http.ResponseWriter, r *http.Request) (*Store, bool) {
	store, ok := s.Scope(r)
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no user", nil)
		return nil, false
	}
	return New(store, s.Log), true
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	ps, ok := s.store(w, r)
	if !ok {
		return
	}
	kit.WriteJSON(w, http.StatusOK, darkModeBody{Enabled: ps.DarkMode(r.Context())})
}

func (s *Server) put(w http.ResponseWriter, r *http.Request) {
	var req darkModeBody
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	ps, ok := s.store(w, r)
	if !ok {
		return
	}
	if err := ps.SetDarkMode(r.Context(), req.Enabled); err != nil {
		kit.OrNop(s.Log).Error("dark mode save failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, req)
}
