package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"txreport/internal/core"
	"txreport/internal/ports"
)

// SeedListener is called after every successful seed.
type SeedListener func(ctx context.Context, result core.SeedResult)

// SeedService replaces the dataset from the configured source. Concurrent
// callers share one run.
type SeedService struct {
	source    ports.TransactionSource
	store     ports.DatasetReplacer
	publisher ports.DatasetEventPublisher
	timeout   time.Duration

	group     singleflight.Group
	mu        sync.RWMutex
	listeners []SeedListener
	last      atomic.Pointer[core.SeedResult]
}

// NewSeedService wires a seeder. publisher may be nil when no broker is
// configured; timeout bounds one whole run.
func NewSeedService(source ports.TransactionSource, store ports.DatasetReplacer, publisher ports.DatasetEventPublisher, timeout time.Duration) *SeedService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SeedService{
		source:    source,
		store:     store,
		publisher: publisher,
		timeout:   timeout,
	}
}

// OnSeeded registers fn to run after each successful seed.
func (s *SeedService) OnSeeded(fn SeedListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// LastSeed returns the most recent successful run.
func (s *SeedService) LastSeed() (core.SeedResult, bool) {
	if r := s.last.Load(); r != nil {
		return *r, true
	}
	return core.SeedResult{}, false
}

// Seed fetches the dataset and replaces the store contents. The run is
// detached from ctx so a caller that gives up does not abort a seed other
// callers are waiting on; ctx only bounds how long this caller waits.
func (s *SeedService) Seed(ctx context.Context) (core.SeedResult, error) {
	ch := s.group.DoChan("seed", func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.run(runCtx)
	})

	select {
	case <-ctx.Done():
		return core.SeedResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return core.SeedResult{}, res.Err
		}
		result := res.Val.(core.SeedResult)
		if res.Shared {
			slog.DebugContext(ctx, "Joined in-flight seed", "run_id", result.RunID)
		}
		return result, nil
	}
}

func (s *SeedService) run(ctx context.Context) (core.SeedResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := slog.With("run_id", runID, "source", s.source.Name())
	logger.InfoContext(ctx, "Seed started")

	items, err := s.source.Fetch(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Seed fetch failed", "error", err)
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, core.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %v", core.ErrSourceUnavailable, err)
		}
		return core.SeedResult{}, fmt.Errorf("fetch dataset: %w", err)
	}
	if len(items) == 0 {
		logger.WarnContext(ctx, "Seed source returned an empty dataset, keeping current data")
		return core.SeedResult{}, core.ErrEmptyDataset
	}

	if err := s.store.ReplaceAll(ctx, items); err != nil {
		logger.ErrorContext(ctx, "Seed replace failed", "error", err)
		return core.SeedResult{}, fmt.Errorf("replace dataset: %w", err)
	}

	result := core.SeedResult{
		RunID:    runID,
		Source:   s.source.Name(),
		Count:    len(items),
		SeededAt: time.Now().UTC(),
		Duration: time.Since(start),
	}
	s.last.Store(&result)

	logger.DebugContext(ctx, "Seed completed",
		"count", result.Count,
		"duration_ms", result.Duration.Milliseconds())

	s.notify(ctx, result)
	return result, nil
}

func (s *SeedService) notify(ctx context.Context, result core.SeedResult) {
	s.mu.RLock()
	listeners := append([]SeedListener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(ctx, result)
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping dataset event")
		return
	}
	// The dataset is already replaced; a lost event is logged, not fatal.
	if err := s.publisher.PublishDatasetSeeded(ctx, result); err != nil {
		slog.ErrorContext(ctx, "Failed to publish dataset event", "run_id", result.RunID, "error", err)
	}
}
