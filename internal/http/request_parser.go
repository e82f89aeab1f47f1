package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"txreport/internal/core"
	"txreport/internal/services"
)

// ParamError reports an invalid query parameter.
type ParamError struct {
	Field string
	Err   error
}

func (e *ParamError) Error() string {
	return e.Err.Error()
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// ParseMonthParam reads the month selector. An absent month is not an error:
// it selects nothing, so reports come back empty.
func ParseMonthParam(query url.Values) (core.MonthMatch, error) {
	raw := query.Get("month")
	if _, err := core.ParseMonth(raw); err != nil {
		if errors.Is(err, core.ErrMissingMonth) {
			return core.MatchMonth(""), nil
		}
		return core.MonthMatch{}, &ParamError{Field: "month", Err: err}
	}
	return core.MatchMonth(raw), nil
}

// ParseListQuery reads search, page, perPage and month for the listing.
func ParseListQuery(query url.Values, maxPerPage int) (services.ListQuery, error) {
	number, err := positiveInt(query, "page", core.ErrInvalidPage)
	if err != nil {
		return services.ListQuery{}, err
	}
	size, err := positiveInt(query, "perPage", core.ErrInvalidPerPage)
	if err != nil {
		return services.ListQuery{}, err
	}
	if maxPerPage > 0 && size > maxPerPage {
		return services.ListQuery{}, &ParamError{
			Field: "perPage",
			Err:   fmt.Errorf("%w: must not exceed %d", core.ErrInvalidPerPage, maxPerPage),
		}
	}
	page, err := core.NewPage(number, size)
	if err != nil {
		return services.ListQuery{}, &ParamError{Field: "page", Err: err}
	}

	month := core.AnyMonth()
	if strings.TrimSpace(query.Get("month")) != "" {
		if month, err = ParseMonthParam(query); err != nil {
			return services.ListQuery{}, err
		}
	}

	return services.ListQuery{
		Search: sanitizeInput(query.Get("search")),
		Month:  month,
		Page:   page,
	}, nil
}

// positiveInt parses an optional integer parameter. Absent means 0, which
// NewPage turns into the default.
func positiveInt(query url.Values, field string, sentinel error) (int, error) {
	v := strings.TrimSpace(query.Get(field))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, &ParamError{Field: field, Err: fmt.Errorf("%w: %q must be a positive integer", sentinel, v)}
	}
	return n, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, s)
}
