package google

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestParseRows(t *testing.T) {
	values := [][]interface{}{
		{"id", "title", "description", "price", "category", "image", "sold", "dateOfSale"},
		{"1", "Backpack", "everyday pack", "109.95", "men's clothing", "https://img/1.jpg", "TRUE", "2021-11-27T20:29:54+05:30"},
		{"", "", "", "", "", "", "", ""},
		{"2", "Ring", "", "1,250.50", "jewelery", "", "false", "2022-03-01"},
	}
	items, err := parseRows(values)
	if err != nil {
		t.Fatalf("parseRows: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2 (blank rows skipped)", len(items))
	}
	if !items[0].Sold || items[0].Price != 109.95 || items[0].SaleMonth() != time.November {
		t.Errorf("first = %+v", items[0])
	}
	if items[1].Price != 1250.50 || items[1].Sold || items[1].SaleMonth() != time.March {
		t.Errorf("second = %+v", items[1])
	}
}

func TestParseRows_ColumnOrderIndependent(t *testing.T) {
	values := [][]interface{}{
		{"dateOfSale", "sold", "category", "price", "title", "id"},
		{"2021-07-01", "true", "electronics", "10", "Cable", "7"},
	}
	items, err := parseRows(values)
	if err != nil {
		t.Fatal(err)
	}
	if items[0].ID != 7 || items[0].Title != "Cable" || items[0].Description != "" {
		t.Errorf("item = %+v", items[0])
	}
}

func TestParseRows_Errors(t *testing.T) {
	header := []interface{}{"id", "title", "price", "category", "sold", "dateOfSale"}
	tests := []struct {
		name    string
		values  [][]interface{}
		wantErr string
	}{
		{"missing header", [][]interface{}{{"id", "title"}}, "missing price"},
		{"bad id", [][]interface{}{header, {"x", "t", "1", "c", "true", "2021-01-01"}}, "row 2: invalid id"},
		{"bad price", [][]interface{}{header, {"1", "t", "abc", "c", "true", "2021-01-01"}}, "invalid price"},
		{"bad sold", [][]interface{}{header, {"1", "t", "1", "c", "maybe", "2021-01-01"}}, "invalid sold"},
		{"bad date", [][]interface{}{header, {"1", "t", "1", "c", "true", "yesterday"}}, "invalid dateOfSale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRows(tt.values)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseRows_Empty(t *testing.T) {
	items, err := parseRows(nil)
	if err != nil || len(items) != 0 {
		t.Errorf("parseRows(nil) = %v, %v", items, err)
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), " ", "Transactions"); err == nil || !strings.Contains(err.Error(), "GOOGLE_SPREADSHEET_ID") {
		t.Errorf("err = %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), "sheet-id", "")
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("err = %v", err)
	}
}
