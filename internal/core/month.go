package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthMatch selects transactions by the calendar month of their sale date,
// regardless of year and day. The zero value imposes no month constraint.
type MonthMatch struct {
	set   bool
	month time.Month
}

// AnyMonth returns a matcher that accepts every sale date.
func AnyMonth() MonthMatch {
	return MonthMatch{}
}

// MatchMonth builds a month predicate from a selector such as "7" or "07".
// An absent or malformed selector yields a predicate that matches nothing.
func MatchMonth(selector string) MonthMatch {
	m, err := ParseMonth(selector)
	if err != nil {
		return MonthMatch{set: true}
	}
	return MonthMatch{set: true, month: m}
}

// MatchMonthNumber is MatchMonth for an integer selector.
func MatchMonthNumber(n int) MonthMatch {
	if n < 1 || n > 12 {
		return MonthMatch{set: true}
	}
	return MonthMatch{set: true, month: time.Month(n)}
}

// ParseMonth accepts 1-12 with or without zero padding.
func ParseMonth(selector string) (time.Month, error) {
	s := strings.TrimSpace(selector)
	if s == "" {
		return 0, ErrMissingMonth
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 12 {
		return 0, fmt.Errorf("%w: %q must be a number between 1 and 12", ErrInvalidMonth, s)
	}
	return time.Month(n), nil
}

// Constrained reports whether the matcher filters on month at all.
func (m MonthMatch) Constrained() bool {
	return m.set
}

// Impossible reports whether the matcher can never match.
func (m MonthMatch) Impossible() bool {
	return m.set && m.month == 0
}

// Month returns the selected month, or 0 when unconstrained or impossible.
func (m MonthMatch) Month() time.Month {
	return m.month
}

// Matches reports whether t falls in the selected month. The zero time is
// an undated sale and falls in no month.
func (m MonthMatch) Matches(t time.Time) bool {
	if !m.set {
		return true
	}
	return m.month != 0 && !t.IsZero() && t.Month() == m.month
}

// String renders the matcher for cache keys and logs.
func (m MonthMatch) String() string {
	switch {
	case !m.set:
		return "any"
	case m.month == 0:
		return "none"
	default:
		return strconv.Itoa(int(m.month))
	}
}
