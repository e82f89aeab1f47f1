package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"txreport/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const deleteAllTransactions = `DELETE FROM transactions`

func (q *Queries) DeleteAllTransactions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllTransactions)
	return err
}

const insertTransaction = `INSERT INTO transactions (
    id, title, description, price, category, image, sold, date_of_sale, sale_month
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

type InsertTransactionParams struct {
	ID          int64
	Title       string
	Description string
	Price       float64
	Category    string
	Image       string
	Sold        int64
	DateOfSale  string
	SaleMonth   int64
}

func paramsFromTransaction(t core.Transaction) InsertTransactionParams {
	var sold int64
	if t.Sold {
		sold = 1
	}
	var date string
	if t.Dated() {
		date = t.DateOfSale.Format(time.RFC3339Nano)
	}
	return InsertTransactionParams{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Price:       t.Price,
		Category:    t.Category,
		Image:       t.Image,
		Sold:        sold,
		DateOfSale:  date,
		SaleMonth:   int64(t.SaleMonth()),
	}
}

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		arg.ID,
		arg.Title,
		arg.Description,
		arg.Price,
		arg.Category,
		arg.Image,
		arg.Sold,
		arg.DateOfSale,
		arg.SaleMonth,
	)
	return err
}

const selectColumns = `id, title, description, price, category, image, sold, date_of_sale`

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var (
		t    core.Transaction
		sold int64
		date string
	)
	if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Price, &t.Category, &t.Image, &sold, &date); err != nil {
		return t, err
	}
	t.Sold = sold != 0
	if date != "" {
		parsed, err := time.Parse(time.RFC3339Nano, date)
		if err != nil {
			return t, fmt.Errorf("parse date_of_sale %q: %w", date, err)
		}
		t.DateOfSale = parsed
	}
	return t, nil
}
