package cart

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"StoreFront/internal/catalog"
	"StoreFront/internal/kv"
	"StoreFront/pkg/kit"
)

// Catalog resolves item ids to catalog entries; prices always come from
// here, never from the client.
type Catalog interface {
	Get(id catalog.ItemID) (catalog.Item, bool)
}

// Server exposes a shopper's cart over HTTP. Scope yields the key-value
// store of the shopper behind the request.
type Server struct {
	Catalog    Catalog
	Scope      func(*http.Request) (kv.Store, bool)
	Log        *zap.Logger
	OnCheckout func(ctx context.Context, store kv.Store, o Order)

	// mu serializes read-modify-write cycles on persisted carts.
	mu sync.Mutex
}

type cartResp struct {
	Lines []Line          `json:"lines"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type addReq struct {
	ID       catalog.ItemID `json:"id"`
	Quantity int            `json:"quantity"`
	Variant  string         `json:"variant"`
}

type qtyReq struct {
	Quantity int    `json:"quantity"`
	Variant  string `json:"variant"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/cart", s.get)
	r.Delete("/cart", s.clear)
	r.Post("/cart/items", s.add)
	r.Put("/cart/items/{id}", s.setQuantity)
	r.Delete("/cart/items/{id}", s.remove)
	r.Post("/cart/checkout", s.checkout)
	r.Get("/orders", s.orders)

	return r
}

// with opens the shopper's cart under the server lock and runs fn on it.
func (s *Server) with(w http.ResponseWriter, r *http.Request, fn func(c *Cart, store kv.Store)) {
	store, ok := s.Scope(r)
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no user", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fn(Open(r.Context(), store, s.Log), store)
}

// mutate is with for handlers that write: a cart whose stored lines could
// not be read is refused with 503.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(c *Cart, store kv.Store)) {
	s.with(w, r, func(c *Cart, store kv.Store) {
		if err := c.Err(); err != nil {
			kit.OrNop(s.Log).Error("cart unavailable", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "storage unavailable", nil)
			return
		}
		fn(c, store)
	})
}

func writeCart(w http.ResponseWriter, status int, c *Cart) {
	lines := c.Lines()
	if lines == nil {
		lines = []Line{}
	}
	kit.WriteJSON(w, status, cartResp{Lines: lines, Count: countOf(lines), Total: totalOf(lines)})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	s.with(w, r, func(c *Cart, _ kv.Store) {
		writeCart(w, http.StatusOK, c)
	})
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(c *Cart, _ kv.Store) {
		c.Clear(r.Context())
		writeCart(w, http.StatusOK, c)
	})
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	var req addReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	req.ID = catalog.ItemID(strings.TrimSpace(string(req.ID)))
	if req.ID == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "id required", nil)
		return
	}

	it, ok := s.Catalog.Get(req.ID)
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid item id", map[string]any{"id": req.ID})
		return
	}

	s.mutate(w, r, func(c *Cart, _ kv.Store) {
		c.AddItem(r.Context(), it, req.Quantity, req.Variant)
		writeCart(w, http.StatusOK, c)
	})
}

func (s *Server) setQuantity(w http.ResponseWriter, r *http.Request) {
	var req qtyReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	id := catalog.ItemID(chi.URLParam(r, "id"))

	s.mutate(w, r, func(c *Cart, _ kv.Store) {
		c.SetQuantity(r.Context(), id, req.Variant, req.Quantity)
		writeCart(w, http.StatusOK, c)
	})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id := catalog.ItemID(chi.URLParam(r, "id"))
	variant := r.URL.Query().Get("variant")

	s.mutate(w, r, func(c *Cart, _ kv.Store) {
		c.RemoveItem(r.Context(), id, variant)
		writeCart(w, http.StatusOK, c)
	})
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(c *Cart, store kv.Store) {
		o, err := c.Checkout(r.Context())
		switch {
		case errors.Is(err, ErrEmptyCart):
			kit.WriteError(w, r, http.StatusConflict, "cart is empty", nil)
			return
		case err != nil:
			kit.OrNop(s.Log).Error("checkout failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
			return
		}

		if s.OnCheckout != nil {
			s.OnCheckout(r.Context(), store, o)
		}
		kit.WriteJSON(w, http.StatusCreated, o)
	})
}

func (s *Server) orders(w http.ResponseWriter, r *http.Request) {
	s.with(w, r, func(c *Cart, _ kv.Store) {
		kit.WriteJSON(w, http.StatusOK, c.Orders(r.Context()))
	})
}
