// Package gateway composes the storefront HTTP surface: public catalog
// routes, auth, and the per-user cart, learning and preference routes.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"StoreFront/internal/auth"
	"StoreFront/internal/cart"
	"StoreFront/internal/catalog"
	"StoreFront/internal/kv"
	"StoreFront/internal/learning"
	"StoreFront/internal/prefs"
	"StoreFront/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry
	// Metrics is shared with the storage and catalog layers; when nil
	// one is built from Registry.
	Metrics *kit.Metrics

	MetricsEnabled bool
	MetricsToken   string
}

type Deps struct {
	// Store is the root key-value store; every user gets a namespace in it.
	Store   kv.Store
	Catalog *catalog.Store
	Users   auth.UserStore
	JWT     *auth.TokenMaker

	TokenTTL      time.Duration
	LoginLimit    int
	RegisterLimit int
}

const (
	readyTimeout = 2 * time.Second

	usersPrefix = "users:"
	userPrefix  = "u:"
)

// UserStore returns the namespace holding everything persisted for userID.
func UserStore(root kv.Store, userID string) kv.Store {
	return kv.Namespace(root, userPrefix+userID+":")
}

// UsersStore returns the namespace holding registered accounts.
func UsersStore(root kv.Store) kv.Store {
	return kv.Namespace(root, usersPrefix)
}

func NewHandler(deps Deps, httpDeps HTTPDeps) (http.Handler, error) {
	if deps.Store == nil || deps.Catalog == nil || deps.Users == nil || deps.JWT == nil {
		return nil, errors.New("gateway: store, catalog, users and jwt are required")
	}

	scopeID := func(id string) kv.Store { return UserStore(deps.Store, id) }
	scope := func(r *http.Request) (kv.Store, bool) {
		c, ok := auth.ClaimsFromContext(r.Context())
		if !ok || c.UserID == "" {
			return nil, false
		}
		return scopeID(c.UserID), true
	}

	authSrv := &auth.Server{
		Log:           httpDeps.Log,
		Users:         deps.Users,
		JWT:           deps.JWT,
		Scope:         scopeID,
		TokenTTL:      deps.TokenTTL,
		LoginLimit:    deps.LoginLimit,
		RegisterLimit: deps.RegisterLimit,
	}
	learningSrv := &learning.Server{Catalog: deps.Catalog, Scope: scope, Log: httpDeps.Log}
	cartSrv := &cart.Server{
		Catalog:    deps.Catalog,
		Scope:      scope,
		Log:        httpDeps.Log,
		OnCheckout: enrollCourses(learningSrv),
	}
	prefsSrv := &prefs.Server{Scope: scope, Log: httpDeps.Log}
	catalogSrv := &catalog.Server{Store: deps.Catalog, Log: httpDeps.Log}

	r := chi.NewRouter()
	setupMiddleware(r, httpDeps)
	setupMetrics(r, httpDeps)

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(deps, httpDeps.Log))

	mount(r, catalogSrv.Routes(), "/items", "/categories", "/tags", "/featured", "/price-bounds")
	mount(r, authSrv.Routes(), "/auth")

	r.Group(func(pr chi.Router) {
		pr.Use(authSrv.Require)
		mount(pr, cartSrv.Routes(), "/cart", "/orders")
		mount(pr, learningSrv.Routes(), "/enrollments", "/progress")
		mount(pr, prefsSrv.Routes(), "/prefs")
		pr.Delete("/me/data", deleteUserData(scope, httpDeps.Log))
	})

	return r, nil
}

// mount routes each prefix and everything below it to h.
func mount(r chi.Router, h http.Handler, prefixes ...string) {
	for _, p := range prefixes {
		r.Handle(p, h)
		r.Handle(p+"/*", h)
	}
}

func enrollCourses(ls *learning.Server) func(context.Context, kv.Store, cart.Order) {
	return func(ctx context.Context, store kv.Store, o cart.Order) {
		ids := make([]catalog.ItemID, 0, len(o.Lines))
		for _, l := range o.Lines {
			ids = append(ids, l.ItemID)
		}
		ls.EnrollPurchased(ctx, store, ids)
	}
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = kit.NewMetrics(deps.Registry)
	}
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func readyz(deps Deps, log *zap.Logger) http.HandlerFunc {
	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"storage", deps.Store.Ping},
		{"users", deps.Users.Ping},
		{"catalog", deps.Catalog.Ping},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		for _, c := range checks {
			if err := c.ping(ctx); err != nil {
				kit.OrNop(log).Warn("readyz failed: "+c.name, zap.Error(err))
				kit.WriteError(w, r, http.StatusServiceUnavailable, c.name+" not ready", nil)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}

// deleteUserData wipes every key the caller owns, session included.
func deleteUserData(scope func(*http.Request) (kv.Store, bool), log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := scope(r)
		if !ok {
			kit.WriteError(w, r, http.StatusUnauthorized, "no user", nil)
			return
		}

		n, err := kv.Clear(r.Context(), store, "")
		if err != nil {
			kit.OrNop(log).Error("delete user data", zap.Error(err))
			kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
			return
		}
		kit.WriteJSON(w, http.StatusOK, map[string]any{"deleted_keys": n})
	}
}
