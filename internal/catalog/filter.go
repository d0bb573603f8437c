package catalog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultMaxPrice replaces a malformed upper price bound.
	DefaultMaxPrice = 500.0

	CategoryAll = "all"
	PricingFree = "free"
	PricingPaid = "paid"
)

var ErrValidation = errors.New("invalid filter input")

// ValidationError reports filter input that was coerced to a default.
// It is informational: the coerced value is always usable.
type ValidationError struct {
	Field string
	Value string
	Used  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %q is not valid, using %s", e.Field, e.Value, e.Used)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// PriceRange is inclusive on both ends.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (p PriceRange) Contains(price float64) bool {
	return price >= p.Min && price <= p.Max
}

// ParsePriceRange turns raw form input into a usable range. An empty,
// malformed or negative minimum becomes 0, an empty or malformed maximum
// becomes DefaultMaxPrice, and inverted bounds are swapped. The returned error lists every coercion
// and is meant to be logged, not shown.
func ParsePriceRange(minRaw, maxRaw string) (PriceRange, error) {
	var errs []error

	lo := 0.0
	if strings.TrimSpace(minRaw) != "" {
		v, ok := parseBound(minRaw)
		if ok && v >= 0 {
			lo = v
		} else {
			errs = append(errs, &ValidationError{Field: "min", Value: minRaw, Used: "0"})
		}
	}

	hi := DefaultMaxPrice
	if strings.TrimSpace(maxRaw) != "" {
		v, ok := parseBound(maxRaw)
		if ok && v >= 0 {
			hi = v
		} else {
			errs = append(errs, &ValidationError{Field: "max", Value: maxRaw, Used: strconv.FormatFloat(DefaultMaxPrice, 'f', -1, 64)})
		}
	}

	if lo > hi {
		lo, hi = hi, lo
	}
	return PriceRange{Min: lo, Max: hi}, errors.Join(errs...)
}

func parseBound(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Filter is the full filter state. Zero values disable a predicate.
type Filter struct {
	Category string      `json:"category,omitempty"`
	Price    *PriceRange `json:"price_range,omitempty"`
	Search   string      `json:"search,omitempty"`
	Tags     []string    `json:"tags,omitempty"`
	Level    string      `json:"level,omitempty"`
	Pricing  string      `json:"pricing,omitempty"`
}

// FilterPatch carries a partial update; nil fields leave the current value
// alone. ClearPrice drops the price predicate.
type FilterPatch struct {
	Category   *string
	Price      *PriceRange
	ClearPrice bool
	Search     *string
	Tags       []string
	ClearTags  bool
	Level      *string
	Pricing    *string
}

// Merge applies p on top of f.
func (f Filter) Merge(p FilterPatch) Filter {
	if p.Category != nil {
		f.Category = *p.Category
	}
	if p.ClearPrice {
		f.Price = nil
	}
	if p.Price != nil {
		pr := *p.Price
		f.Price = &pr
	}
	if p.Search != nil {
		f.Search = *p.Search
	}
	if p.ClearTags {
		f.Tags = nil
	}
	if p.Tags != nil {
		f.Tags = append([]string(nil), p.Tags...)
	}
	if p.Level != nil {
		f.Level = *p.Level
	}
	if p.Pricing != nil {
		f.Pricing = *p.Pricing
	}
	return f
}

// Match applies every active predicate; all must hold.
func (f Filter) Match(it Item) bool {
	return f.matchCategory(it) &&
		f.matchPrice(it) &&
		f.matchSearch(it) &&
		f.matchTags(it) &&
		f.matchLevel(it) &&
		f.matchPricing(it)
}

func (f Filter) matchCategory(it Item) bool {
	c := strings.TrimSpace(f.Category)
	if c == "" || strings.EqualFold(c, CategoryAll) {
		return true
	}
	return strings.EqualFold(it.Category, c)
}

func (f Filter) matchPrice(it Item) bool {
	return f.Price == nil || f.Price.Contains(it.Price)
}

func (f Filter) matchSearch(it Item) bool {
	term := normalize(f.Search)
	if term == "" {
		return true
	}
	if strings.Contains(normalize(it.Title), term) || strings.Contains(normalize(it.Category), term) {
		return true
	}
	for _, tag := range it.Tags {
		if strings.Contains(normalize(tag), term) {
			return true
		}
	}
	return false
}

// matchTags needs at least one filter tag to be a substring of some item tag.
func (f Filter) matchTags(it Item) bool {
	active := false
	for _, want := range f.Tags {
		want = normalize(want)
		if want == "" {
			continue
		}
		active = true
		for _, tag := range it.Tags {
			if strings.Contains(normalize(tag), want) {
				return true
			}
		}
	}
	return !active
}

func (f Filter) matchLevel(it Item) bool {
	l := strings.TrimSpace(f.Level)
	return l == "" || strings.EqualFold(it.Level, l)
}

func (f Filter) matchPricing(it Item) bool {
	switch normalize(f.Pricing) {
	case PricingFree:
		return it.Free()
	case PricingPaid:
		return !it.Free()
	default:
		return true
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
