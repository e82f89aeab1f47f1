package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"txreport/internal/core"
	"txreport/internal/ports"
)

// ListQuery describes one page of the transaction listing. Month is carried
// for callers that send it but does not restrict the listing.
type ListQuery struct {
	Search string
	Month  core.MonthMatch
	Page   core.Page
}

// ReportService answers the read side: listing and the month reports.
type ReportService struct {
	store ports.ReportStore
}

func NewReportService(store ports.ReportStore) *ReportService {
	return &ReportService{store: store}
}

// ListTransactions returns one page of transactions matching the search term
// in store order. A page past the end is empty.
func (s *ReportService) ListTransactions(ctx context.Context, q ListQuery) ([]core.Transaction, error) {
	page := q.Page
	if page.Number == 0 && page.Size == 0 {
		page = core.Page{Number: core.DefaultPage, Size: core.DefaultPerPage}
	}
	items, err := s.store.Find(ctx, core.SearchFilter(q.Search), page)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if items == nil {
		items = []core.Transaction{}
	}
	return items, nil
}

// Statistics runs the revenue, sold and unsold queries concurrently.
func (s *ReportService) Statistics(ctx context.Context, month core.MonthMatch) (core.Statistics, error) {
	start := time.Now()
	base := core.MonthFilter(month)

	var stats core.Statistics
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.store.SumPrice(gctx, base)
		if err != nil {
			return fmt.Errorf("sum sale amount: %w", err)
		}
		stats.TotalSaleAmount = total
		return nil
	})
	g.Go(func() error {
		n, err := s.store.Count(gctx, base.WithSold(true))
		if err != nil {
			return fmt.Errorf("count sold items: %w", err)
		}
		stats.TotalSoldItems = n
		return nil
	})
	g.Go(func() error {
		n, err := s.store.Count(gctx, base.WithSold(false))
		if err != nil {
			return fmt.Errorf("count unsold items: %w", err)
		}
		stats.TotalNotSoldItems = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Statistics{}, err
	}

	slog.DebugContext(ctx, "Statistics computed",
		"month", month.String(),
		"duration_ms", time.Since(start).Milliseconds())
	return stats, nil
}

// BarChart counts the month's transactions per price bucket. The result
// always has one entry per bucket, in table order.
func (s *ReportService) BarChart(ctx context.Context, month core.MonthMatch) ([]core.BucketCount, error) {
	start := time.Now()
	base := core.MonthFilter(month)
	buckets := core.PriceBuckets()
	out := make([]core.BucketCount, len(buckets))

	g, gctx := errgroup.WithContext(ctx)
	for i, b := range buckets {
		out[i].Range = b.Label
		g.Go(func() error {
			n, err := s.store.Count(gctx, base.WithPrice(core.BucketRange(i)))
			if err != nil {
				return fmt.Errorf("count bucket %s: %w", b.Label, err)
			}
			out[i].Count = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Bar chart computed",
		"month", month.String(),
		"duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

// PieChart counts the month's transactions per category. Categories with no
// matches are absent.
func (s *ReportService) PieChart(ctx context.Context, month core.MonthMatch) ([]core.CategoryCount, error) {
	groups, err := s.store.CountByCategory(ctx, core.MonthFilter(month))
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	out := make([]core.CategoryCount, 0, len(groups))
	for _, g := range groups {
		if g.Count > 0 {
			out = append(out, g)
		}
	}
	return out, nil
}

// Combined runs the three month reports concurrently. Any failure fails the
// whole report.
func (s *ReportService) Combined(ctx context.Context, month core.MonthMatch) (core.Combined, error) {
	var c core.Combined
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		c.Statistics, err = s.Statistics(gctx, month)
		return err
	})
	g.Go(func() (err error) {
		c.BarChart, err = s.BarChart(gctx, month)
		return err
	})
	g.Go(func() (err error) {
		c.PieChart, err = s.PieChart(gctx, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Combined{}, fmt.Errorf("combined report: %w", err)
	}
	return c, nil
}
