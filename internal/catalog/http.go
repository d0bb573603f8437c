package catalog

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"StoreFront/pkg/kit"
)

const defaultFeaturedLimit = 8

type Server struct {
	Store *Store
	Log   *zap.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/items", s.list)
	r.Get("/items/{id}", s.get)
	r.Get("/categories", s.categories)
	r.Get("/tags", s.tags)
	r.Get("/featured", s.featured)
	r.Get("/price-bounds", s.priceBounds)

	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	f, err := FilterFromQuery(r)
	if err != nil {
		kit.OrNop(s.Log).Debug("filter input coerced", zap.Error(err))
	}

	q := r.URL.Query()
	items := s.Store.Query(f, ParseSortKey(q.Get("sort")))

	page := kit.QueryInt(r, "page", 1)
	size := kit.QueryInt(r, "page_size", DefaultPageSize)
	if size <= 0 {
		size = DefaultPageSize
	}

	kit.WriteJSON(w, http.StatusOK, kit.Page[Item]{
		Items:    Paginate(items, page, size),
		Page:     page,
		PageSize: size,
		Total:    len(items),
		HasMore:  HasMore(len(items), page, size),
	})
}

// FilterFromQuery reads category, min, max, q, tags (comma separated or
// repeated), level and pricing. Malformed price bounds are coerced and
// reported through the returned error.
func FilterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()

	f := Filter{
		Category: q.Get("category"),
		Search:   q.Get("q"),
		Level:    q.Get("level"),
		Pricing:  q.Get("pricing"),
	}

	for _, raw := range q["tags"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				f.Tags = append(f.Tags, tag)
			}
		}
	}

	var err error
	if q.Has("min") || q.Has("max") {
		var pr PriceRange
		pr, err = ParsePriceRange(q.Get("min"), q.Get("max"))
		f.Price = &pr
	}
	return f, err
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	it, ok := s.Store.Get(ItemID(id))
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, it)
}

func (s *Server) categories(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Store.Categories())
}

func (s *Server) tags(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Store.Tags())
}

func (s *Server) featured(w http.ResponseWriter, r *http.Request) {
	limit := kit.QueryInt(r, "limit", defaultFeaturedLimit)
	if limit < 0 {
		limit = defaultFeaturedLimit
	}
	kit.WriteJSON(w, http.StatusOK, s.Store.Featured(limit))
}

func (s *Server) priceBounds(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Store.PriceBounds())
}
