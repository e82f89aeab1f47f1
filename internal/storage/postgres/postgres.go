// Package postgres stores the dataset in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"txreport/internal/core"
	"txreport/internal/ports"
	"txreport/internal/storage/sqlfilter"
)

var (
	_ ports.ReportStore     = (*Store)(nil)
	_ ports.DatasetReplacer = (*Store)(nil)
	_ ports.Pinger          = (*Store)(nil)
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var columns = []string{"id", "title", "description", "price", "category", "image", "sold", "date_of_sale", "sale_month"}

type Store struct {
	pool *pgxpool.Pool
}

// Open connects, runs migrations and returns a ready store.
func Open(ctx context.Context, url string) (*Store, error) {
	if err := RunMigrations(url); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func RunMigrations(url string) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", d, migrateURL(url))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// migrateURL points golang-migrate at its pgx v5 driver.
func migrateURL(url string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(url, prefix) {
			return "pgx5://" + strings.TrimPrefix(url, prefix)
		}
	}
	return url
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ReplaceAll implements ports.DatasetReplacer with a single transaction so
// concurrent readers keep the previous snapshot until commit.
func (s *Store) ReplaceAll(ctx context.Context, items []core.Transaction) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM transactions"); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"transactions"}, columns, pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
		t := items[i]
		var date any
		if t.Dated() {
			date = t.DateOfSale
		}
		return []any{t.ID, t.Title, t.Description, t.Price, t.Category, t.Image, t.Sold, date, int16(t.SaleMonth())}, nil
	}))
	if err != nil {
		return fmt.Errorf("copy transactions: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Dataset replaced in Postgres", "count", n)
	return nil
}

// Find implements ports.TransactionFinder. Timestamps come back in UTC; the
// month was fixed at insert time from the recorded offset.
func (s *Store) Find(ctx context.Context, f core.Filter, page core.Page) ([]core.Transaction, error) {
	query, args := findQuery(f, page)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Transaction, error) {
		var (
			t    core.Transaction
			date *time.Time
		)
		err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Price, &t.Category, &t.Image, &t.Sold, &date)
		if date != nil {
			t.DateOfSale = *date
		}
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}
	if out == nil {
		out = []core.Transaction{}
	}
	return out, nil
}

func findQuery(f core.Filter, page core.Page) (string, []any) {
	where, args := sqlfilter.Where(sqlfilter.Postgres, f)
	n := len(args)
	query := fmt.Sprintf("SELECT %s FROM transactions WHERE %s ORDER BY seq LIMIT $%d OFFSET $%d",
		strings.Join(columns[:8], ", "), where, n+1, n+2)
	return query, append(args, page.Size, page.Offset())
}

func (s *Store) Count(ctx context.Context, f core.Filter) (int64, error) {
	where, args := sqlfilter.Where(sqlfilter.Postgres, f)
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions WHERE "+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// SumPrice casts to NUMERIC so the database sums exactly.
func (s *Store) SumPrice(ctx context.Context, f core.Filter) (float64, error) {
	where, args := sqlfilter.Where(sqlfilter.Postgres, f)
	var total string
	query := "SELECT COALESCE(SUM(price::numeric), 0)::text FROM transactions WHERE " + where
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum prices: %w", err)
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return 0, fmt.Errorf("parse sum %q: %w", total, err)
	}
	return d.InexactFloat64(), nil
}

func (s *Store) CountByCategory(ctx context.Context, f core.Filter) ([]core.CategoryCount, error) {
	where, args := sqlfilter.Where(sqlfilter.Postgres, f)
	rows, err := s.pool.Query(ctx, "SELECT category, COUNT(*) FROM transactions WHERE "+where+" GROUP BY category ORDER BY category", args...)
	if err != nil {
		return nil, fmt.Errorf("group by category: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.CategoryCount, error) {
		var c core.CategoryCount
		err := row.Scan(&c.Category, &c.Count)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan category counts: %w", err)
	}
	if out == nil {
		out = []core.CategoryCount{}
	}
	return out, nil
}
