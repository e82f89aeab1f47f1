package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txreport/internal/core"
	"txreport/internal/storage/memory"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func scenarioStore() *memory.Store {
	return memory.New(
		core.Transaction{ID: 1, Title: "a", Price: 50, Sold: true, Category: "A", DateOfSale: day("2023-01-05")},
		core.Transaction{ID: 2, Title: "b", Price: 150, Sold: false, Category: "B", DateOfSale: day("2023-01-20")},
	)
}

func richStore() *memory.Store {
	var items []core.Transaction
	categories := []string{"electronics", "jewelery", "", "men's clothing"}
	for i := 0; i < 60; i++ {
		items = append(items, core.Transaction{
			ID:         int64(i + 1),
			Title:      "item",
			Price:      float64(i*23) + 0.5,
			Sold:       i%3 == 0,
			Category:   categories[i%len(categories)],
			DateOfSale: time.Date(2020+i%3, time.Month(i%12+1), 1+i%28, 0, 0, 0, 0, time.UTC),
		})
	}
	return memory.New(items...)
}

func TestStatistics_Scenario(t *testing.T) {
	svc := NewReportService(scenarioStore())

	stats, err := svc.Statistics(context.Background(), core.MatchMonth("1"))
	require.NoError(t, err)
	assert.Equal(t, core.Statistics{TotalSaleAmount: 200, TotalSoldItems: 1, TotalNotSoldItems: 1}, stats)

	bars, err := svc.BarChart(context.Background(), core.MatchMonth("1"))
	require.NoError(t, err)
	require.Len(t, bars, 10)
	assert.Equal(t, core.BucketCount{Range: "0-100", Count: 1}, bars[0])
	assert.Equal(t, core.BucketCount{Range: "101-200", Count: 1}, bars[1])
	for _, b := range bars[2:] {
		assert.Zero(t, b.Count, b.Range)
	}

	pie, err := svc.PieChart(context.Background(), core.MatchMonth("1"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.CategoryCount{{Category: "A", Count: 1}, {Category: "B", Count: 1}}, pie)
}

func TestStatistics_EmptyMonth(t *testing.T) {
	svc := NewReportService(scenarioStore())

	for _, month := range []core.MonthMatch{core.MatchMonth("2"), core.MatchMonth(""), core.MatchMonth("abc")} {
		stats, err := svc.Statistics(context.Background(), month)
		require.NoError(t, err)
		assert.Equal(t, core.Statistics{}, stats, month.String())

		bars, err := svc.BarChart(context.Background(), month)
		require.NoError(t, err)
		assert.Len(t, bars, 10)

		pie, err := svc.PieChart(context.Background(), month)
		require.NoError(t, err)
		assert.NotNil(t, pie)
		assert.Empty(t, pie)
	}
}

func TestReports_Properties(t *testing.T) {
	store := richStore()
	svc := NewReportService(store)
	ctx := context.Background()

	for m := 1; m <= 12; m++ {
		month := core.MatchMonthNumber(m)
		matching, err := store.Count(ctx, core.MonthFilter(month))
		require.NoError(t, err)

		stats, err := svc.Statistics(ctx, month)
		require.NoError(t, err)
		assert.Equal(t, matching, stats.TotalSoldItems+stats.TotalNotSoldItems, "month %d sold+unsold", m)

		bars, err := svc.BarChart(ctx, month)
		require.NoError(t, err)
		require.Len(t, bars, 10)
		var barTotal int64
		for i, b := range bars {
			assert.Equal(t, core.PriceBuckets()[i].Label, b.Range)
			barTotal += b.Count
		}
		assert.Equal(t, matching, barTotal, "month %d histogram covers every match", m)

		pie, err := svc.PieChart(ctx, month)
		require.NoError(t, err)
		var pieTotal int64
		for _, c := range pie {
			assert.Positive(t, c.Count)
			pieTotal += c.Count
		}
		assert.Equal(t, matching, pieTotal, "month %d category sum", m)
	}
}

func TestPieChart_EmptyCategoryIsOwnGroup(t *testing.T) {
	store := memory.New(
		core.Transaction{ID: 1, Category: "", DateOfSale: day("2023-05-01")},
		core.Transaction{ID: 2, Category: "", DateOfSale: day("2023-05-02")},
		core.Transaction{ID: 3, Category: "x", DateOfSale: day("2023-05-03")},
	)
	pie, err := NewReportService(store).PieChart(context.Background(), core.MatchMonth("5"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.CategoryCount{{Category: "", Count: 2}, {Category: "x", Count: 1}}, pie)
}

func TestCombined_EqualsIndividualReports(t *testing.T) {
	svc := NewReportService(richStore())
	ctx := context.Background()
	month := core.MatchMonth("07")

	combined, err := svc.Combined(ctx, month)
	require.NoError(t, err)

	stats, _ := svc.Statistics(ctx, month)
	bars, _ := svc.BarChart(ctx, month)
	pie, _ := svc.PieChart(ctx, month)

	assert.Equal(t, stats, combined.Statistics)
	assert.Equal(t, bars, combined.BarChart)
	assert.Equal(t, pie, combined.PieChart)
}

func TestListTransactions(t *testing.T) {
	svc := NewReportService(richStore())
	ctx := context.Background()

	tests := []struct {
		name    string
		query   ListQuery
		wantLen int
	}{
		{name: "defaults", query: ListQuery{}, wantLen: 10},
		{name: "last page partial", query: ListQuery{Page: core.Page{Number: 4, Size: 16}}, wantLen: 12},
		{name: "beyond data", query: ListQuery{Page: core.Page{Number: 100, Size: 10}}, wantLen: 0},
		{name: "month does not restrict listing", query: ListQuery{Month: core.MatchMonth("1"), Page: core.Page{Number: 1, Size: 100}}, wantLen: 60},
		{name: "no search match", query: ListQuery{Search: "zzz", Page: core.Page{Number: 1, Size: 10}}, wantLen: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := svc.ListTransactions(ctx, tt.query)
			require.NoError(t, err)
			assert.NotNil(t, items)
			assert.Len(t, items, tt.wantLen)
		})
	}
}

// failingStore wraps a store and fails selected operations.
type failingStore struct {
	*memory.Store
	failCount bool
	failSum   bool
	failGroup bool
	calls     atomic.Int32
}

var errBoom = errors.New("boom")

func (f *failingStore) Count(ctx context.Context, flt core.Filter) (int64, error) {
	f.calls.Add(1)
	if f.failCount {
		return 0, errBoom
	}
	return f.Store.Count(ctx, flt)
}

func (f *failingStore) SumPrice(ctx context.Context, flt core.Filter) (float64, error) {
	if f.failSum {
		return 0, errBoom
	}
	return f.Store.SumPrice(ctx, flt)
}

func (f *failingStore) CountByCategory(ctx context.Context, flt core.Filter) ([]core.CategoryCount, error) {
	if f.failGroup {
		return nil, errBoom
	}
	return f.Store.CountByCategory(ctx, flt)
}

func TestReports_FailurePropagates(t *testing.T) {
	ctx := context.Background()
	month := core.MatchMonth("1")

	tests := []struct {
		name  string
		store *failingStore
	}{
		{name: "sum fails", store: &failingStore{Store: scenarioStore(), failSum: true}},
		{name: "count fails", store: &failingStore{Store: scenarioStore(), failCount: true}},
		{name: "group fails", store: &failingStore{Store: scenarioStore(), failGroup: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewReportService(tt.store)
			_, err := svc.Combined(ctx, month)
			require.Error(t, err)
			assert.ErrorIs(t, err, errBoom)
		})
	}

	_, err := NewReportService(&failingStore{Store: scenarioStore(), failSum: true}).Statistics(ctx, month)
	assert.ErrorIs(t, err, errBoom)
	_, err = NewReportService(&failingStore{Store: scenarioStore(), failCount: true}).BarChart(ctx, month)
	assert.ErrorIs(t, err, errBoom)
}

func TestBarChart_RunsTenCounts(t *testing.T) {
	store := &failingStore{Store: scenarioStore()}
	_, err := NewReportService(store).BarChart(context.Background(), core.MatchMonth("1"))
	require.NoError(t, err)
	assert.EqualValues(t, 10, store.calls.Load())
}

func TestReports_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewReportService(scenarioStore()).Combined(ctx, core.MatchMonth("1"))
	assert.ErrorIs(t, err, context.Canceled)
}
