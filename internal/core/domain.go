package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 10
)

type (
	// Transaction is a single sale record as delivered by the seed source.
	// A zero DateOfSale marks an undated sale, which belongs to no month.
	Transaction struct {
		ID          int64     `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Price       float64   `json:"price"`
		Category    string    `json:"category"`
		Image       string    `json:"image,omitempty"`
		Sold        bool      `json:"sold"`
		DateOfSale  time.Time `json:"dateOfSale"`
	}

	// Page selects a window of a listing. Number is 1-based.
	Page struct {
		Number int
		Size   int
	}

	// SeedResult describes a completed dataset replacement.
	SeedResult struct {
		RunID    string        `json:"runId"`
		Source   string        `json:"source"`
		Count    int           `json:"count"`
		SeededAt time.Time     `json:"seededAt"`
		Duration time.Duration `json:"-"`
	}
)

var (
	ErrMissingMonth      = errors.New("missing month")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidPage       = errors.New("invalid page")
	ErrInvalidPerPage    = errors.New("invalid perPage")
	ErrEmptyDataset      = errors.New("seed source returned no transactions")
	ErrSourceUnavailable = errors.New("seed source unavailable")
)

// saleDateLayouts are the date formats seed payloads use, most precise first.
var saleDateLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

// ParseSaleDate parses a sale date in any of the accepted layouts. A blank
// value is an undated sale and yields the zero time.
func ParseSaleDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range saleDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid dateOfSale %q", s)
}

// Dated reports whether the sale carries a date.
func (t Transaction) Dated() bool {
	return !t.DateOfSale.IsZero()
}

// SaleMonth returns the calendar month of the sale in the offset it was
// recorded with, or 0 for an undated sale.
func (t Transaction) SaleMonth() time.Month {
	if !t.Dated() {
		return 0
	}
	return t.DateOfSale.Month()
}

type transactionFields Transaction

// UnmarshalJSON accepts dateOfSale in any layout ParseSaleDate does, and
// null or "" for an undated sale.
func (t *Transaction) UnmarshalJSON(b []byte) error {
	var raw struct {
		transactionFields
		DateOfSale *string `json:"dateOfSale"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*t = Transaction(raw.transactionFields)
	if raw.DateOfSale == nil {
		t.DateOfSale = time.Time{}
		return nil
	}
	date, err := ParseSaleDate(*raw.DateOfSale)
	if err != nil {
		return err
	}
	t.DateOfSale = date
	return nil
}

// MarshalJSON writes an undated sale as "dateOfSale": null.
func (t Transaction) MarshalJSON() ([]byte, error) {
	out := struct {
		transactionFields
		DateOfSale *time.Time `json:"dateOfSale"`
	}{transactionFields: transactionFields(t)}
	if t.Dated() {
		out.DateOfSale = &t.DateOfSale
	}
	return json.Marshal(out)
}

// NewPage validates page coordinates. Zero values fall back to the defaults.
func NewPage(number, size int) (Page, error) {
	if number == 0 {
		number = DefaultPage
	}
	if size == 0 {
		size = DefaultPerPage
	}
	if number < 1 {
		return Page{}, ErrInvalidPage
	}
	if size < 1 {
		return Page{}, ErrInvalidPerPage
	}
	return Page{Number: number, Size: size}, nil
}

// Offset is the number of records skipped before the page starts. It
// saturates at math.MaxInt, so a page far past the data stays past it.
func (p Page) Offset() int {
	if p.Number < 1 || p.Size < 1 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Size
}
