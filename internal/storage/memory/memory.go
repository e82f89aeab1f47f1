package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"txreport/internal/core"
	"txreport/internal/ports"
)

// Ensure interface conformance
var (
	_ ports.ReportStore     = (*Store)(nil)
	_ ports.DatasetReplacer = (*Store)(nil)
	_ ports.Pinger          = (*Store)(nil)
)

// Store keeps the dataset as an immutable snapshot. Replacing the dataset
// swaps the snapshot pointer, so concurrent readers never see a partial seed.
type Store struct {
	current atomic.Pointer[snapshot]
}

type snapshot struct {
	items    []core.Transaction
	loadedAt time.Time
}

func New(items ...core.Transaction) *Store {
	s := &Store{}
	s.swap(items)
	return s
}

// NewFromFile seeds the store from a JSON array of transactions when the
// file exists. A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var items []core.Transaction
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", filepath.Base(path), err)
	}
	return New(items...), nil
}

func (s *Store) swap(items []core.Transaction) {
	cp := make([]core.Transaction, len(items))
	copy(cp, items)
	s.current.Store(&snapshot{items: cp, loadedAt: time.Now()})
}

func (s *Store) view() []core.Transaction {
	return s.current.Load().items
}

// ReplaceAll implements ports.DatasetReplacer.
func (s *Store) ReplaceAll(ctx context.Context, items []core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.swap(items)
	return nil
}

// Find implements ports.TransactionFinder. Order is insertion order.
func (s *Store) Find(ctx context.Context, f core.Filter, page core.Page) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, page.Size)
	if f.MatchesNothing() {
		return out, nil
	}
	items := s.view()
	skip := page.Offset()
	if skip >= len(items) {
		return out, nil
	}
	for _, t := range items {
		if !f.Matches(t) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		if len(out) == page.Size {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

// Count implements ports.TransactionCounter.
func (s *Store) Count(ctx context.Context, f core.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.MatchesNothing() {
		return 0, nil
	}
	var n int64
	for _, t := range s.view() {
		if f.Matches(t) {
			n++
		}
	}
	return n, nil
}

// SumPrice implements ports.PriceSummer.
func (s *Store) SumPrice(ctx context.Context, f core.Filter) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.MatchesNothing() {
		return 0, nil
	}
	total := decimal.Zero
	for _, t := range s.view() {
		if f.Matches(t) {
			total = total.Add(decimal.NewFromFloat(t.Price))
		}
	}
	return total.InexactFloat64(), nil
}

// CountByCategory implements ports.CategoryGrouper. Groups are returned in
// category order.
func (s *Store) CountByCategory(ctx context.Context, f core.Filter) ([]core.CategoryCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []core.CategoryCount{}
	if f.MatchesNothing() {
		return out, nil
	}
	counts := map[string]int64{}
	for _, t := range s.view() {
		if f.Matches(t) {
			counts[t.Category]++
		}
	}
	for category, n := range counts {
		out = append(out, core.CategoryCount{Category: category, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Len returns the size of the current snapshot.
func (s *Store) Len() int {
	return len(s.view())
}

// LoadedAt returns when the current snapshot was installed.
func (s *Store) LoadedAt() time.Time {
	return s.current.Load().loadedAt
}

func (s *Store) Close() error {
	return nil
}
