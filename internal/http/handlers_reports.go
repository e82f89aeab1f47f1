package http

import (
	"context"
	"net/http"
	"time"

	"txreport/internal/cache"
	"txreport/internal/core"
	applog "txreport/internal/log"
)

// cachedReport serves key from c or computes it. A value computed across a
// purge is returned but not stored.
func cachedReport[T any](ctx context.Context, c *cache.LRUCache[T], key string, compute func(context.Context) (T, error)) (T, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	gen := c.Generation()
	v, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	c.SetIfGeneration(key, v, gen)
	return v, false, nil
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	q, err := ParseListQuery(r.URL.Query(), s.maxPerPage)
	if err != nil {
		s.failure(r.Context(), applog.OpList, err, nil).Write(w)
		return
	}

	items, err := s.reports.ListTransactions(r.Context(), q)
	if err != nil {
		fields := applog.NewFields().WithListing(q.Search, q.Page.Number, q.Page.Size)
		s.failure(r.Context(), applog.OpList, err, fields).Write(w)
		return
	}
	OK(w, items)
}

// serveMonthReport is the shared flow of the four month reports.
func serveMonthReport[T any](s *Server, w http.ResponseWriter, r *http.Request, op string, c *cache.LRUCache[T], compute func(context.Context, core.MonthMatch) (T, error)) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	month, err := ParseMonthParam(r.URL.Query())
	if err != nil {
		s.failure(r.Context(), op, err, nil).Write(w)
		return
	}

	start := time.Now()
	report, hit, err := cachedReport(r.Context(), c, month.String(), func(ctx context.Context) (T, error) {
		return compute(ctx, month)
	})
	if err != nil {
		s.failure(r.Context(), op, err, applog.NewFields().WithMonth(month.String())).Write(w)
		return
	}
	s.logs.LogReportServed(r.Context(), op, month.String(), time.Since(start).Milliseconds(), hit)
	OK(w, report)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	serveMonthReport(s, w, r, applog.OpStatistics, s.statisticsCache, s.reports.Statistics)
}

func (s *Server) handleBarChart(w http.ResponseWriter, r *http.Request) {
	serveMonthReport(s, w, r, applog.OpBarChart, s.barChartCache, s.reports.BarChart)
}

func (s *Server) handlePieChart(w http.ResponseWriter, r *http.Request) {
	serveMonthReport(s, w, r, applog.OpPieChart, s.pieChartCache, s.reports.PieChart)
}

func (s *Server) handleCombined(w http.ResponseWriter, r *http.Request) {
	serveMonthReport(s, w, r, applog.OpCombined, s.combinedCache, s.reports.Combined)
}
