package core

import (
	"math"
	"strconv"
	"strings"
)

// PriceRange is a numeric interval over Transaction.Price. The upper bound is
// always inclusive; the lower bound is inclusive only when FloorInclusive is set.
type PriceRange struct {
	Floor          float64
	FloorInclusive bool
	Ceiling        float64
}

// Contains reports whether price lies in the range.
func (r PriceRange) Contains(price float64) bool {
	if r.FloorInclusive {
		if price < r.Floor {
			return false
		}
	} else if price <= r.Floor {
		return false
	}
	return price <= r.Ceiling
}

// Filter is the store-neutral predicate every backend translates into its
// own query language. The zero value matches every transaction.
type Filter struct {
	Month  MonthMatch
	Search string
	Sold   *bool
	Price  *PriceRange
}

// SearchFilter matches term case-insensitively against title and description,
// or numerically against price when term parses as a number.
func SearchFilter(term string) Filter {
	return Filter{Search: strings.TrimSpace(term)}
}

// MonthFilter restricts to a calendar month.
func MonthFilter(m MonthMatch) Filter {
	return Filter{Month: m}
}

// WithSold returns a copy of f restricted to the given sold flag.
func (f Filter) WithSold(sold bool) Filter {
	f.Sold = &sold
	return f
}

// WithPrice returns a copy of f restricted to a price range.
func (f Filter) WithPrice(r PriceRange) Filter {
	f.Price = &r
	return f
}

// MatchesNothing reports whether the filter is known to be empty without
// consulting the store.
func (f Filter) MatchesNothing() bool {
	return f.Month.Impossible()
}

// SearchPrice returns the numeric value of the search term, if it is one.
func (f Filter) SearchPrice() (float64, bool) {
	if f.Search == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(f.Search, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Matches evaluates the filter in memory.
func (f Filter) Matches(t Transaction) bool {
	if f.MatchesNothing() {
		return false
	}
	if !f.Month.Matches(t.DateOfSale) {
		return false
	}
	if f.Sold != nil && t.Sold != *f.Sold {
		return false
	}
	if f.Price != nil && !f.Price.Contains(t.Price) {
		return false
	}
	if f.Search != "" && !f.matchesSearch(t) {
		return false
	}
	return true
}

func (f Filter) matchesSearch(t Transaction) bool {
	term := strings.ToLower(f.Search)
	if strings.Contains(strings.ToLower(t.Title), term) || strings.Contains(strings.ToLower(t.Description), term) {
		return true
	}
	if v, ok := f.SearchPrice(); ok && t.Price == v {
		return true
	}
	return false
}
