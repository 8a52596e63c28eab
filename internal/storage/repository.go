package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"monthly/internal/core"
	applog "monthly/internal/log"
	ports "monthly/internal/sheets"

	_ "modernc.org/sqlite"
)

var ErrTransactionNotFound = errors.New("transaction not found")

const dateLayout = "2006-01-02"

// SQLiteRepository is the transaction ledger. It also tracks which
// transactions have been applied to the spreadsheets.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	log     *applog.Logger
}

var _ ports.Ledger = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		log:     logger.WithComponent(applog.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Record validates and stores tx as pending and returns it with its ID.
func (r *SQLiteRepository) Record(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validation failed: %w", err)
	}
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		Kind:        string(tx.Kind),
		Date:        tx.Date.Format(dateLayout),
		AmountCents: tx.Amount.Cents,
		Category:    tx.Category,
		SubCategory: tx.SubCategory,
		Account:     tx.Account,
		Description: tx.Description,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	r.log.InfoContext(ctx, "Transaction recorded",
		applog.NewFields().
			WithOperation(applog.OpRecord).
			WithTransaction(row.ID, row.Kind, row.AmountCents, row.Category, row.SubCategory, row.Account).
			ToSlice()...)

	return toCore(row)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("%w: %d", ErrTransactionNotFound, id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return toCore(row)
}

func (r *SQLiteRepository) AllSpends(ctx context.Context) ([]core.Transaction, error) {
	return r.byKind(ctx, core.Spend)
}

func (r *SQLiteRepository) AllReimbursements(ctx context.Context) ([]core.Transaction, error) {
	return r.byKind(ctx, core.Reimbursement)
}

func (r *SQLiteRepository) byKind(ctx context.Context, kind core.Kind) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByKind(ctx, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s transactions: %w", kind, err)
	}
	return toCoreAll(rows)
}

// PendingTransactions returns up to limit transactions not yet applied,
// oldest first.
func (r *SQLiteRepository) PendingTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.queries.GetPendingTransactions(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending transactions: %w", err)
	}
	return toCoreAll(rows)
}

func (r *SQLiteRepository) MarkProcessed(ctx context.Context, id int64) error {
	n, err := r.queries.MarkTransactionProcessed(ctx, id)
	if err != nil {
		return fmt.Errorf("mark transaction processed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrTransactionNotFound, id)
	}
	r.log.DebugContext(ctx, "Transaction marked as processed", applog.FieldTxID, id)
	return nil
}

// MarkFailed takes the transaction out of the pending sweep.
func (r *SQLiteRepository) MarkFailed(ctx context.Context, id int64) error {
	n, err := r.queries.MarkTransactionFailed(ctx, id)
	if err != nil {
		return fmt.Errorf("mark transaction failed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrTransactionNotFound, id)
	}
	r.log.WarnContext(ctx, "Transaction marked as failed", applog.FieldTxID, id)
	return nil
}

// Status returns the processing status of a transaction.
func (r *SQLiteRepository) Status(ctx context.Context, id int64) (string, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %d", ErrTransactionNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("get transaction %d: %w", id, err)
	}
	return row.Status, nil
}

func toCore(t Transaction) (core.Transaction, error) {
	d, err := time.Parse(dateLayout, t.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: bad date %q: %w", t.ID, t.Date, err)
	}
	return core.Transaction{
		ID:          t.ID,
		Kind:        core.Kind(t.Kind),
		Date:        core.Date{Time: d},
		Amount:      core.Money{Cents: t.AmountCents},
		Category:    t.Category,
		SubCategory: t.SubCategory,
		Account:     t.Account,
		Description: t.Description,
	}, nil
}

func toCoreAll(rows []Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := toCore(row)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}
