package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"txreport/internal/core"
)

func tx(id int64, price float64, sold bool, category string, date string) core.Transaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{ID: id, Title: "item", Price: price, Sold: sold, Category: category, DateOfSale: d}
}

func TestStoreQueries(t *testing.T) {
	ctx := context.Background()
	s := New(
		tx(1, 50, true, "A", "2023-01-05"),
		tx(2, 150, false, "B", "2023-01-20"),
		tx(3, 999, true, "", "2022-01-01"),
		tx(4, 10, false, "A", "2023-02-01"),
	)
	jan := core.MonthFilter(core.MatchMonth("1"))

	n, err := s.Count(ctx, jan)
	if err != nil || n != 3 {
		t.Fatalf("Count(jan) = %d, %v", n, err)
	}
	sum, err := s.SumPrice(ctx, jan)
	if err != nil || sum != 1199 {
		t.Fatalf("SumPrice(jan) = %v, %v", sum, err)
	}
	sold, _ := s.Count(ctx, jan.WithSold(true))
	unsold, _ := s.Count(ctx, jan.WithSold(false))
	if sold != 2 || unsold != 1 {
		t.Fatalf("sold=%d unsold=%d", sold, unsold)
	}

	groups, err := s.CountByCategory(ctx, jan)
	if err != nil {
		t.Fatalf("CountByCategory: %v", err)
	}
	want := []core.CategoryCount{{Category: "", Count: 1}, {Category: "A", Count: 1}, {Category: "B", Count: 1}}
	if len(groups) != len(want) {
		t.Fatalf("groups = %+v", groups)
	}
	for i := range want {
		if groups[i] != want[i] {
			t.Errorf("group %d = %+v, want %+v", i, groups[i], want[i])
		}
	}
}

func TestStoreImpossibleFilter(t *testing.T) {
	ctx := context.Background()
	s := New(tx(1, 50, true, "A", "2023-01-05"))
	none := core.MonthFilter(core.MatchMonth(""))

	if n, _ := s.Count(ctx, none); n != 0 {
		t.Errorf("Count = %d", n)
	}
	if sum, _ := s.SumPrice(ctx, none); sum != 0 {
		t.Errorf("SumPrice = %v", sum)
	}
	groups, _ := s.CountByCategory(ctx, none)
	if groups == nil || len(groups) != 0 {
		t.Errorf("CountByCategory = %#v, want empty non-nil", groups)
	}
}

func TestStoreFindPagination(t *testing.T) {
	ctx := context.Background()
	var items []core.Transaction
	for i := int64(1); i <= 25; i++ {
		items = append(items, tx(i, float64(i), i%2 == 0, "A", "2023-03-01"))
	}
	s := New(items...)

	tests := []struct {
		page    int
		wantLen int
		firstID int64
	}{
		{1, 10, 1},
		{2, 10, 11},
		{3, 5, 21},
		{4, 0, 0},
	}
	for _, tt := range tests {
		got, err := s.Find(ctx, core.Filter{}, core.Page{Number: tt.page, Size: 10})
		if err != nil {
			t.Fatalf("page %d: %v", tt.page, err)
		}
		if len(got) != tt.wantLen {
			t.Fatalf("page %d: len = %d, want %d", tt.page, len(got), tt.wantLen)
		}
		if tt.wantLen > 0 && got[0].ID != tt.firstID {
			t.Errorf("page %d: first id = %d, want %d", tt.page, got[0].ID, tt.firstID)
		}
		if got == nil {
			t.Errorf("page %d: nil slice", tt.page)
		}
	}
}

func TestStoreFindPastTheEnd(t *testing.T) {
	s := New(tx(1, 1, true, "A", "2023-03-01"), tx(2, 2, true, "A", "2023-03-01"), tx(3, 3, true, "A", "2023-03-01"))
	page, err := core.NewPage(1_000_000_000_000_000_000, 10)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Find(context.Background(), core.Filter{}, page)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want an empty page", len(got))
	}
}

func TestStoreUndatedSalesBelongToNoMonth(t *testing.T) {
	ctx := context.Background()
	s := New(core.Transaction{ID: 1, Price: 10, Sold: true}, tx(2, 20, true, "A", "2023-01-05"))

	for m := 1; m <= 12; m++ {
		f := core.MonthFilter(core.MatchMonthNumber(m))
		n, _ := s.Count(ctx, f)
		sum, _ := s.SumPrice(ctx, f)
		want, wantSum := int64(0), 0.0
		if m == 1 {
			want, wantSum = 1, 20
		}
		if n != want || sum != wantSum {
			t.Errorf("month %d: count=%d sum=%v, want %d and %v", m, n, sum, want, wantSum)
		}
	}
	if n, _ := s.Count(ctx, core.Filter{}); n != 2 {
		t.Errorf("unfiltered count = %d, want 2", n)
	}
}

func TestStoreSearchFoldsUnicode(t *testing.T) {
	ctx := context.Background()
	s := New(
		core.Transaction{ID: 1, Title: "ÉCLAIR mould"},
		core.Transaction{ID: 2, Title: "plain", Description: "ΩMEGA strap"},
	)
	for term, want := range map[string]int64{"éclair": 1, "ωmega": 2} {
		got, _ := s.Find(ctx, core.SearchFilter(term), core.Page{Number: 1, Size: 10})
		if len(got) != 1 || got[0].ID != want {
			t.Errorf("search %q = %+v, want id %d", term, got, want)
		}
	}
}

func TestStoreReplaceAllIsAtomic(t *testing.T) {
	ctx := context.Background()
	old := make([]core.Transaction, 100)
	next := make([]core.Transaction, 200)
	for i := range old {
		old[i] = tx(int64(i), 1, true, "old", "2023-01-01")
	}
	for i := range next {
		next[i] = tx(int64(i), 1, true, "new", "2023-01-01")
	}
	s := New(old...)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				groups, _ := s.CountByCategory(ctx, core.Filter{})
				if len(groups) != 1 {
					t.Errorf("observed mixed dataset: %+v", groups)
					return
				}
				if c := groups[0]; !(c.Category == "old" && c.Count == 100) && !(c.Category == "new" && c.Count == 200) {
					t.Errorf("observed partial dataset: %+v", c)
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			_ = s.ReplaceAll(ctx, next)
		} else {
			_ = s.ReplaceAll(ctx, old)
		}
	}
	close(stop)
	wg.Wait()
}

func TestReplaceAllCopiesInput(t *testing.T) {
	ctx := context.Background()
	items := []core.Transaction{tx(1, 5, true, "A", "2023-01-01")}
	s := New()
	if err := s.ReplaceAll(ctx, items); err != nil {
		t.Fatal(err)
	}
	items[0].Category = "mutated"
	got, _ := s.Find(ctx, core.Filter{}, core.Page{Number: 1, Size: 10})
	if got[0].Category != "A" {
		t.Error("store must not alias caller slice")
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil || s.Len() != 0 {
		t.Fatalf("missing file: len=%d err=%v", s.Len(), err)
	}

	path := filepath.Join(dir, "transactions.json")
	content := `[{"id":1,"title":"a","price":50,"sold":true,"category":"A","dateOfSale":"2021-11-27T20:29:54+05:30"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err = NewFromFile(path)
	if err != nil || s.Len() != 1 {
		t.Fatalf("seed file: len=%d err=%v", s.Len(), err)
	}
	n, _ := s.Count(context.Background(), core.MonthFilter(core.MatchMonth("11")))
	if n != 1 {
		t.Errorf("November count = %d", n)
	}

	dateOnly := `[{"id":1,"title":"a","price":50,"sold":true,"category":"A","dateOfSale":"2023-01-05"},{"id":2,"title":"b","price":5,"dateOfSale":null}]`
	if err := os.WriteFile(path, []byte(dateOnly), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err = NewFromFile(path)
	if err != nil || s.Len() != 2 {
		t.Fatalf("date-only seed file: len=%d err=%v", s.Len(), err)
	}
	if n, _ := s.Count(context.Background(), core.MonthFilter(core.MatchMonth("1"))); n != 1 {
		t.Errorf("January count = %d, want 1", n)
	}

	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFile(path); err == nil {
		t.Error("expected decode error")
	}
}
