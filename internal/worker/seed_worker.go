package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"txreport/internal/amqp"
	"txreport/internal/core"
	"txreport/internal/ports"
)

// Seeder replaces the dataset; satisfied by services.SeedService.
type Seeder interface {
	Seed(ctx context.Context) (core.SeedResult, error)
}

// SeedWorker turns seed requests and timer ticks into seeds.
type SeedWorker struct {
	seeder   Seeder
	counter  ports.TransactionCounter
	interval time.Duration
}

// NewSeedWorker builds a worker. counter is used for the startup check and
// may be nil; interval 0 disables periodic reseeding.
func NewSeedWorker(seeder Seeder, counter ports.TransactionCounter, interval time.Duration) *SeedWorker {
	return &SeedWorker{
		seeder:   seeder,
		counter:  counter,
		interval: interval,
	}
}

// HandleSeedRequest processes one seed request from AMQP. An empty dataset
// is acknowledged rather than retried.
func (w *SeedWorker) HandleSeedRequest(ctx context.Context, msg *amqp.SeedRequestMessage) error {
	slog.InfoContext(ctx, "Handling seed request",
		"request_id", msg.RequestID,
		"reason", msg.Reason,
		"queued_for", time.Since(msg.Timestamp).Round(time.Millisecond))

	result, err := w.seeder.Seed(ctx)
	if errors.Is(err, core.ErrEmptyDataset) {
		slog.WarnContext(ctx, "Seed request produced an empty dataset, dropping", "request_id", msg.RequestID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed for request %s: %w", msg.RequestID, err)
	}

	slog.InfoContext(ctx, "Seed request completed",
		"request_id", msg.RequestID,
		"run_id", result.RunID,
		"count", result.Count)
	return nil
}

// StartupSeedCheck seeds once when the store is empty, so a fresh deployment
// serves data without a manual /api/init.
func (w *SeedWorker) StartupSeedCheck(ctx context.Context) error {
	if w.counter == nil {
		return nil
	}
	n, err := w.counter.Count(ctx, core.Filter{})
	if err != nil {
		return fmt.Errorf("count stored transactions: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Dataset present on startup", "count", n)
		return nil
	}

	slog.InfoContext(ctx, "Store is empty on startup, seeding...")
	if _, err := w.seeder.Seed(ctx); err != nil {
		return fmt.Errorf("startup seed: %w", err)
	}
	return nil
}

// RunPeriodic reseeds every interval until ctx is done. Failures are logged
// and the next tick tries again.
func (w *SeedWorker) RunPeriodic(ctx context.Context) {
	if w.interval <= 0 {
		slog.InfoContext(ctx, "Periodic reseed disabled")
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.seeder.Seed(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic reseed failed", "error", err)
			}
		}
	}
}
