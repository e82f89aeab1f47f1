package ports

import (
	"context"

	"txreport/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionFinder returns a page of transactions in store-native order.
	TransactionFinder interface {
		Find(ctx context.Context, f core.Filter, page core.Page) ([]core.Transaction, error)
	}

	TransactionCounter interface {
		Count(ctx context.Context, f core.Filter) (int64, error)
	}

	// PriceSummer sums Transaction.Price over the filter; an empty match sums to 0.
	PriceSummer interface {
		SumPrice(ctx context.Context, f core.Filter) (float64, error)
	}

	// CategoryGrouper counts matching transactions per distinct category.
	// Transactions without a category form their own group under "".
	CategoryGrouper interface {
		CountByCategory(ctx context.Context, f core.Filter) ([]core.CategoryCount, error)
	}

	// DatasetReplacer swaps the whole collection. Readers observe either the
	// previous dataset or the new one, never a mix.
	DatasetReplacer interface {
		ReplaceAll(ctx context.Context, items []core.Transaction) error
	}

	// TransactionSource is the external system the dataset is seeded from.
	TransactionSource interface {
		Name() string
		Fetch(ctx context.Context) ([]core.Transaction, error)
	}

	DatasetEventPublisher interface {
		PublishDatasetSeeded(ctx context.Context, result core.SeedResult) error
	}

	SeedRequestPublisher interface {
		PublishSeedRequest(ctx context.Context, reason string) (requestID string, err error)
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// ReportStore is everything the report queries need.
type ReportStore interface {
	TransactionFinder
	TransactionCounter
	PriceSummer
	CategoryGrouper
}
