package kit

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ChiRoutePatternOrPath labels metrics by route pattern so that
// /items/{id} does not explode into one series per item. When a router
// delegates to a nested router, the innermost pattern is used.
func ChiRoutePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if n := len(rc.RoutePatterns); n > 0 && rc.RoutePatterns[n-1] != "" {
			return rc.RoutePatterns[n-1]
		}
	}
	return r.URL.Path
}
