package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Transaction is a row of the transactions table.
type Transaction struct {
	ID          int64
	Kind        string
	Date        string
	AmountCents int64
	Category    string
	SubCategory string
	Account     string
	Description string
	Status      string
	Attempts    int64
	ProcessedAt sql.NullTime
	CreatedAt   time.Time
}

const transactionColumns = `id, kind, date, amount_cents, category, sub_category, account, description, status, attempts, processed_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Kind, &t.Date, &t.AmountCents, &t.Category, &t.SubCategory,
		&t.Account, &t.Description, &t.Status, &t.Attempts, &t.ProcessedAt, &t.CreatedAt)
	return t, err
}

type CreateTransactionParams struct {
	Kind        string
	Date        string
	AmountCents int64
	Category    string
	SubCategory string
	Account     string
	Description string
}

const createTransaction = `
INSERT INTO transactions (kind, date, amount_cents, category, sub_category, account, description)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	res, err := q.db.ExecContext(ctx, createTransaction,
		arg.Kind, arg.Date, arg.AmountCents, arg.Category, arg.SubCategory, arg.Account, arg.Description)
	if err != nil {
		return Transaction{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Transaction{}, err
	}
	return q.GetTransaction(ctx, id)
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const listTransactionsByKind = `SELECT ` + transactionColumns + ` FROM transactions WHERE kind = ? ORDER BY date, id`

func (q *Queries) ListTransactionsByKind(ctx context.Context, kind string) ([]Transaction, error) {
	return q.list(ctx, listTransactionsByKind, kind)
}

const getPendingTransactions = `
SELECT ` + transactionColumns + ` FROM transactions
WHERE status = 'pending'
ORDER BY created_at, id
LIMIT ?`

func (q *Queries) GetPendingTransactions(ctx context.Context, limit int64) ([]Transaction, error) {
	return q.list(ctx, getPendingTransactions, limit)
}

const markTransactionProcessed = `
UPDATE transactions
SET status = 'processed', attempts = attempts + 1, processed_at = CURRENT_TIMESTAMP
WHERE id = ?`

func (q *Queries) MarkTransactionProcessed(ctx context.Context, id int64) (int64, error) {
	return q.exec(ctx, markTransactionProcessed, id)
}

const markTransactionFailed = `
UPDATE transactions
SET status = 'failed', attempts = attempts + 1
WHERE id = ?`

func (q *Queries) MarkTransactionFailed(ctx context.Context, id int64) (int64, error) {
	return q.exec(ctx, markTransactionFailed, id)
}

func (q *Queries) list(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
