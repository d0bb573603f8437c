package catalog

import (
	"cmp"
	"slices"
	"strings"
)

type SortKey string

const (
	SortFeatured   SortKey = "featured"
	SortRelevance  SortKey = "relevance"
	SortPriceLow   SortKey = "price-low"
	SortPriceHigh  SortKey = "price-high"
	SortRating     SortKey = "rating"
	SortNewest     SortKey = "newest"
	SortPopularity SortKey = "popularity"
)

// ParseSortKey maps user input onto a known key; anything unrecognised
// falls back to SortFeatured.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortPriceLow, SortPriceHigh, SortRating, SortNewest, SortPopularity:
		return k
	default:
		return SortFeatured
	}
}

// sortItems orders items in place. The sort is stable, so ties keep feed
// order. search only affects the featured ordering.
func sortItems(items []Item, key SortKey, search string) {
	slices.SortStableFunc(items, comparator(key, normalize(search)))
}

func comparator(key SortKey, term string) func(a, b Item) int {
	switch ParseSortKey(string(key)) {
	case SortPriceLow:
		return func(a, b Item) int { return cmp.Compare(a.Price, b.Price) }
	case SortPriceHigh:
		return func(a, b Item) int { return cmp.Compare(b.Price, a.Price) }
	case SortRating:
		return func(a, b Item) int { return cmp.Compare(b.Rating, a.Rating) }
	case SortPopularity:
		return func(a, b Item) int { return cmp.Compare(b.ReviewCount, a.ReviewCount) }
	case SortNewest:
		return compareNewest
	default:
		if term == "" {
			return func(a, b Item) int { return cmp.Compare(b.score(), a.score()) }
		}
		return func(a, b Item) int {
			if c := cmp.Compare(titleRank(a, term), titleRank(b, term)); c != 0 {
				return c
			}
			return cmp.Compare(b.Rating, a.Rating)
		}
	}
}

// titleRank is 0 for an exact title match, 1 when the title contains the
// term and 2 otherwise.
func titleRank(it Item, term string) int {
	title := normalize(it.Title)
	switch {
	case title == term:
		return 0
	case strings.Contains(title, term):
		return 1
	default:
		return 2
	}
}

// compareNewest puts dated items first, latest first, then falls back to
// numeric ids where a higher id is newer.
func compareNewest(a, b Item) int {
	ad, bd := !a.PublishedAt.IsZero(), !b.PublishedAt.IsZero()
	if ad != bd {
		if ad {
			return -1
		}
		return 1
	}
	if ad {
		if c := b.PublishedAt.Compare(a.PublishedAt); c != 0 {
			return c
		}
	}

	an, aok := a.ID.numeric()
	bn, bok := b.ID.numeric()
	if aok != bok {
		if aok {
			return -1
		}
		return 1
	}
	if aok {
		return cmp.Compare(bn, an)
	}
	return 0
}
