package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"txreport/internal/core"
	"txreport/internal/ports"
	"txreport/internal/storage/sqlfilter"

	_ "modernc.org/sqlite"
)

var (
	_ ports.ReportStore     = (*SQLiteRepository)(nil)
	_ ports.DatasetReplacer = (*SQLiteRepository)(nil)
	_ ports.Pinger          = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ReplaceAll implements ports.DatasetReplacer. Delete and inserts share one
// transaction, so readers keep seeing the old rows until commit.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, items []core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteAllTransactions(ctx); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	for _, t := range items {
		if err := q.InsertTransaction(ctx, paramsFromTransaction(t)); err != nil {
			return fmt.Errorf("insert transaction %d: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Dataset replaced in SQLite", "count", len(items))
	return nil
}

// Find implements ports.TransactionFinder.
func (r *SQLiteRepository) Find(ctx context.Context, f core.Filter, page core.Page) ([]core.Transaction, error) {
	where, args := sqlfilter.Where(sqlfilter.SQLite, f)
	query := "SELECT " + selectColumns + " FROM transactions WHERE " + where + " ORDER BY seq LIMIT ? OFFSET ?"
	args = append(args, page.Size, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0, page.Size)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Count implements ports.TransactionCounter.
func (r *SQLiteRepository) Count(ctx context.Context, f core.Filter) (int64, error) {
	where, args := sqlfilter.Where(sqlfilter.SQLite, f)
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions WHERE "+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// SumPrice implements ports.PriceSummer. Prices are summed in decimal to keep
// the total independent of row order.
func (r *SQLiteRepository) SumPrice(ctx context.Context, f core.Filter) (float64, error) {
	where, args := sqlfilter.Where(sqlfilter.SQLite, f)
	rows, err := r.db.QueryContext(ctx, "SELECT price FROM transactions WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("sum prices: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return 0, fmt.Errorf("scan price: %w", err)
		}
		total = total.Add(decimal.NewFromFloat(p))
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return total.InexactFloat64(), nil
}

// CountByCategory implements ports.CategoryGrouper.
func (r *SQLiteRepository) CountByCategory(ctx context.Context, f core.Filter) ([]core.CategoryCount, error) {
	where, args := sqlfilter.Where(sqlfilter.SQLite, f)
	query := "SELECT category, COUNT(*) FROM transactions WHERE " + where + " GROUP BY category ORDER BY category"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("group by category: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryCount{}
	for rows.Next() {
		var c core.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
