package http

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"txreport/internal/core"
)

func TestParseMonthParam(t *testing.T) {
	tests := []struct {
		name       string
		query      url.Values
		wantMonth  time.Month
		impossible bool
		wantErr    bool
	}{
		{name: "plain", query: url.Values{"month": {"3"}}, wantMonth: time.March},
		{name: "zero padded", query: url.Values{"month": {"03"}}, wantMonth: time.March},
		{name: "absent matches nothing", query: url.Values{}, impossible: true},
		{name: "blank matches nothing", query: url.Values{"month": {" "}}, impossible: true},
		{name: "word", query: url.Values{"month": {"march"}}, wantErr: true},
		{name: "out of range", query: url.Values{"month": {"13"}}, wantErr: true},
		{name: "zero", query: url.Values{"month": {"0"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthParam(tt.query)
			if tt.wantErr {
				var pe *ParamError
				if !errors.As(err, &pe) || pe.Field != "month" {
					t.Fatalf("error = %v, want month ParamError", err)
				}
				if !errors.Is(err, core.ErrInvalidMonth) {
					t.Errorf("error %v should wrap ErrInvalidMonth", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Impossible() != tt.impossible {
				t.Errorf("Impossible() = %v, want %v", got.Impossible(), tt.impossible)
			}
			if !tt.impossible && got.Month() != tt.wantMonth {
				t.Errorf("Month() = %v, want %v", got.Month(), tt.wantMonth)
			}
		})
	}
}

func TestParseListQuery(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		wantPage  core.Page
		wantField string
	}{
		{name: "defaults", query: url.Values{}, wantPage: core.Page{Number: 1, Size: 10}},
		{name: "explicit", query: url.Values{"page": {"2"}, "perPage": {"5"}}, wantPage: core.Page{Number: 2, Size: 5}},
		{name: "at the cap", query: url.Values{"perPage": {"50"}}, wantPage: core.Page{Number: 1, Size: 50}},
		{name: "above the cap", query: url.Values{"perPage": {"51"}}, wantField: "perPage"},
		{name: "zero page", query: url.Values{"page": {"0"}}, wantField: "page"},
		{name: "negative per page", query: url.Values{"perPage": {"-1"}}, wantField: "perPage"},
		{name: "non numeric page", query: url.Values{"page": {"two"}}, wantField: "page"},
		{name: "bad month", query: url.Values{"month": {"abc"}}, wantField: "month"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseListQuery(tt.query, 50)
			if tt.wantField != "" {
				var pe *ParamError
				if !errors.As(err, &pe) || pe.Field != tt.wantField {
					t.Fatalf("error = %v, want ParamError on %q", err, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Page != tt.wantPage {
				t.Errorf("Page = %+v, want %+v", got.Page, tt.wantPage)
			}
		})
	}
}

func TestParseListQuery_SearchAndMonth(t *testing.T) {
	got, err := ParseListQuery(url.Values{"search": {"  back\x00pack "}, "month": {"7"}}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if got.Search != "backpack" {
		t.Errorf("Search = %q", got.Search)
	}
	if got.Month.Month() != time.July {
		t.Errorf("Month = %v", got.Month)
	}

	got, err = ParseListQuery(url.Values{}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if got.Month.Constrained() {
		t.Error("listing without month must not be month constrained")
	}
}
