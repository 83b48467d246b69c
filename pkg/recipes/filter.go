package recipes

import (
	"net/url"
	"sort"
	"strings"
)

// PriceBand buckets recipes by price
type PriceBand string

const (
	PriceAny    PriceBand = ""
	PriceLow    PriceBand = "low"    // under 10
	PriceMedium PriceBand = "medium" // 10 to 25 inclusive
	PriceHigh   PriceBand = "high"   // over 25
)

// Price band boundaries
const (
	LowPriceCeiling = 10.0
	HighPriceFloor  = 25.0
)

// Contains reports whether price falls in the band
func (b PriceBand) Contains(price float64) bool {
	switch b {
	case PriceLow:
		return price < LowPriceCeiling
	case PriceMedium:
		return price >= LowPriceCeiling && price <= HighPriceFloor
	case PriceHigh:
		return price > HighPriceFloor
	}
	return true
}

// SortOrder orders a recipe listing
type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortOldest    SortOrder = "oldest"
	SortPriceLow  SortOrder = "price-low"
	SortPriceHigh SortOrder = "price-high"
)

// Filter narrows a recipe listing
type Filter struct {
	Search   string
	Category Category
	Price    PriceBand
	Sort     SortOrder
	OwnerID  string
}

// ParseFilter reads a filter from query parameters.
// Unknown values fall back to "all" rather than failing the request.
func ParseFilter(q url.Values) Filter {
	f := Filter{
		Search: strings.TrimSpace(q.Get("search")),
		Sort:   SortNewest,
	}

	if c := Category(q.Get("category")); c.Valid() {
		f.Category = c
	}

	switch p := PriceBand(q.Get("price")); p {
	case PriceLow, PriceMedium, PriceHigh:
		f.Price = p
	}

	switch s := SortOrder(q.Get("sort")); s {
	case SortNewest, SortOldest, SortPriceLow, SortPriceHigh:
		f.Sort = s
	}

	return f
}

// Matches reports whether r passes every clause of the filter
func (f Filter) Matches(r *Recipe) bool {
	if f.OwnerID != "" && r.OwnerID != f.OwnerID {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if !f.Price.Contains(r.Price) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.Title), needle) &&
			!strings.Contains(strings.ToLower(r.Description), needle) {
			return false
		}
	}
	return true
}

// Apply filters and sorts list in place, returning the kept recipes
func (f Filter) Apply(list []*Recipe) []*Recipe {
	kept := list[:0]
	for _, r := range list {
		if f.Matches(r) {
			kept = append(kept, r)
		}
	}
	SortRecipes(kept, f.Sort)
	return kept
}

// SortRecipes orders list by the given sort order; ties break on id
func SortRecipes(list []*Recipe, order SortOrder) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch order {
		case SortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case SortPriceLow:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case SortPriceHigh:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
}
