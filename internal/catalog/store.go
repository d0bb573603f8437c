// Package catalog holds the read-only item list of a storefront together
// with the shopper's filter, search and sort state, and derives the view
// that is shown from them.
package catalog

import (
	"context"
	"math"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"StoreFront/pkg/kit"
)

const DefaultPageSize = 12

// Change is sent to subscribers after the derived view was recomputed.
type Change struct {
	Reason  string
	Total   int
	Visible int
}

const (
	ReasonLoad   = "load"
	ReasonFilter = "filter"
	ReasonSort   = "sort"
	ReasonClear  = "clear"
)

type Option func(*Store)

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = kit.OrNop(log) }
}

func WithMetrics(m *kit.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

type Store struct {
	feed    Feed
	log     *zap.Logger
	metrics *kit.Metrics
	loads   singleflight.Group

	mu     sync.RWMutex
	loaded bool
	items  []Item
	byID   map[ItemID]int
	filter Filter
	sort   SortKey
	view   []Item

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

func NewStore(feed Feed, opts ...Option) *Store {
	s := &Store{
		feed: feed,
		log:  zap.NewNop(),
		sort: SortFeatured,
		byID: map[ItemID]int{},
		subs: map[int]func(Change){},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the catalog from the feed. Concurrent calls share one fetch.
// On failure the store is left empty and not ready, and a *LoadError is
// returned; the caller is expected to keep going with no items.
func (s *Store) Load(ctx context.Context) ([]Item, error) {
	items, err := s.fetch(ctx)
	if err != nil {
		s.log.Error("catalog load failed", zap.Error(err))
		s.replace(nil, false)
		return nil, err
	}

	s.replace(items, true)
	return s.Items(), nil
}

// Reload is Load for a catalog that is already being served: a failed
// fetch keeps the current items.
func (s *Store) Reload(ctx context.Context) error {
	items, err := s.fetch(ctx)
	if err != nil {
		s.log.Warn("catalog reload failed, keeping current items", zap.Error(err))
		return err
	}
	s.replace(items, true)
	return nil
}

func (s *Store) fetch(ctx context.Context) ([]Item, error) {
	v, err, _ := s.loads.Do("load", func() (any, error) {
		items, err := s.feed.Fetch(ctx)
		if err != nil {
			return nil, &LoadError{Source: s.feed.Source(), Err: err}
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Item), nil
}

func (s *Store) replace(items []Item, loaded bool) {
	s.mu.Lock()
	s.loaded = loaded
	s.items = make([]Item, 0, len(items))
	s.byID = make(map[ItemID]int, len(items))
	for _, it := range items {
		if _, dup := s.byID[it.ID]; dup {
			s.log.Warn("duplicate catalog item dropped", zap.String("id", string(it.ID)))
			continue
		}
		s.byID[it.ID] = len(s.items)
		s.items = append(s.items, it)
	}
	s.recomputeLocked()
	ch := s.changeLocked(ReasonLoad)
	s.mu.Unlock()

	s.metrics.SetCatalogSize(ch.Total)
	s.log.Info("catalog loaded", zap.Int("items", ch.Total))
	s.notify(ch)
}

// SetFilter merges p into the current filter and recomputes the view.
func (s *Store) SetFilter(p FilterPatch) {
	s.mu.Lock()
	s.filter = s.filter.Merge(p)
	s.recomputeLocked()
	ch := s.changeLocked(ReasonFilter)
	s.mu.Unlock()

	s.notify(ch)
}

// Search sets the search term. An empty term matches everything.
func (s *Store) Search(term string) {
	s.SetFilter(FilterPatch{Search: &term})
}

// SetSort changes the ordering. The view is rebuilt from the feed order so
// that ties always fall back to feed position.
func (s *Store) SetSort(key SortKey) {
	s.mu.Lock()
	s.sort = ParseSortKey(string(key))
	s.recomputeLocked()
	ch := s.changeLocked(ReasonSort)
	s.mu.Unlock()

	s.notify(ch)
}

// ClearFilters resets filter, search and sort to their defaults.
func (s *Store) ClearFilters() {
	s.mu.Lock()
	s.filter = Filter{}
	s.sort = SortFeatured
	s.recomputeLocked()
	ch := s.changeLocked(ReasonClear)
	s.mu.Unlock()

	s.notify(ch)
}

func (s *Store) recomputeLocked() {
	s.view = derive(s.items, s.filter, s.sort)
}

func (s *Store) changeLocked(reason string) Change {
	return Change{Reason: reason, Total: len(s.items), Visible: len(s.view)}
}

func derive(items []Item, f Filter, key SortKey) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	sortItems(out, key, f.Search)
	return out
}

// Query derives a view for f and key without touching the store's own
// filter state.
func (s *Store) Query(f Filter, key SortKey) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return derive(s.items, f, key)
}

func (s *Store) Filter() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.filter
	f.Tags = slices.Clone(f.Tags)
	return f
}

func (s *Store) Sort() SortKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sort
}

// View returns a copy of the current derived view.
func (s *Store) View() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.view)
}

// Len is the size of the derived view.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.view)
}

// Items returns the full unfiltered catalog in feed order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// CurrentPage returns page (1-based) of the derived view. A page outside
// the view is empty; a non-positive size means DefaultPageSize.
func (s *Store) CurrentPage(page, pageSize int) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Paginate(s.view, page, pageSize)
}

func (s *Store) HasMore(page, pageSize int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return HasMore(len(s.view), page, pageSize)
}

func Paginate(items []Item, page, pageSize int) []Item {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		return []Item{}
	}
	start := (page - 1) * pageSize
	if start >= len(items) || start < 0 {
		return []Item{}
	}
	end := min(start+pageSize, len(items))
	return slices.Clone(items[start:end])
}

func HasMore(total, page, pageSize int) bool {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return page >= 1 && page*pageSize < total
}

// Categories lists distinct categories of the full catalog in first-seen
// order.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	out := []string{}
	for _, it := range s.items {
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		out = append(out, it.Category)
	}
	return out
}

// Tags lists distinct tags of the full catalog in first-seen order.
func (s *Store) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	out := []string{}
	for _, it := range s.items {
		for _, tag := range it.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

// PriceBounds is the cheapest and dearest price in the full catalog; an
// empty catalog yields the zero range.
func (s *Store) PriceBounds() PriceRange {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.items) == 0 {
		return PriceRange{}
	}
	pr := PriceRange{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, it := range s.items {
		pr.Min = min(pr.Min, it.Price)
		pr.Max = max(pr.Max, it.Price)
	}
	return pr
}

// Featured returns up to limit items ranked by rating × review count.
// The derived view is not affected.
func (s *Store) Featured(limit int) []Item {
	s.mu.RLock()
	out := slices.Clone(s.items)
	s.mu.RUnlock()

	sortItems(out, SortFeatured, "")
	if limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (s *Store) Get(id ItemID) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return Item{}, false
	}
	return s.items[i], true
}

// Subscribe registers fn for change notifications. fn runs synchronously
// on the goroutine that made the change, after the store lock is released.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(ch Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
}

// Ping reports whether the last Load succeeded.
func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return ErrNotLoaded
	}
	return nil
}
