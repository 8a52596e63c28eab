// Package worker applies recorded transactions to the monthly spreadsheets.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"monthly/internal/amqp"
	"monthly/internal/core"
	applog "monthly/internal/log"
	"monthly/internal/storage"
	"monthly/internal/trace"
)

const statusPending = "pending"

// Source is the transaction ledger seen by the worker.
type Source interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	Status(ctx context.Context, id int64) (string, error)
	PendingTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
}

// Dispatcher applies a transaction to every spreadsheet.
type Dispatcher interface {
	ProcessSpend(ctx context.Context, tx core.Transaction) error
}

// TransactionWorker applies transactions one at a time. Messages from the
// feed and the pending sweep share one lock, so two transactions never
// read-modify-write the same row concurrently.
type TransactionWorker struct {
	source     Source
	dispatcher Dispatcher
	batchSize  int
	log        *applog.Logger
	counters   trace.Counters

	mu sync.Mutex
}

func NewTransactionWorker(source Source, dispatcher Dispatcher, batchSize int, logger *applog.Logger) *TransactionWorker {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &TransactionWorker{
		source:     source,
		dispatcher: dispatcher,
		batchSize:  batchSize,
		log:        logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleMessage applies the announced transaction. Transient ledger
// errors are returned so the message is redelivered. Messages naming an
// unknown transaction are dropped. Dispatch errors mark the transaction
// failed and are not retried.
func (w *TransactionWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	status, err := w.source.Status(ctx, msg.ID)
	if errors.Is(err, storage.ErrTransactionNotFound) {
		w.log.WarnContext(ctx, "Dropping message for unknown transaction",
			applog.FieldTxID, msg.ID,
			applog.FieldError, err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("status of transaction %d: %w", msg.ID, err)
	}
	if status != statusPending {
		w.log.DebugContext(ctx, "Skipping transaction already handled",
			applog.FieldTxID, msg.ID,
			"status", status)
		return nil
	}

	tx, err := w.source.GetTransaction(ctx, msg.ID)
	if errors.Is(err, storage.ErrTransactionNotFound) {
		w.log.WarnContext(ctx, "Dropping message for unknown transaction",
			applog.FieldTxID, msg.ID,
			applog.FieldError, err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", msg.ID, err)
	}
	// A dispatch error is recorded on the transaction; redelivery would
	// only add the amount twice to the sheets that did succeed.
	w.apply(ctx, tx)
	return nil
}

// ProcessPending applies up to one batch of pending transactions and
// returns how many were applied successfully. It covers messages lost while
// the worker or the broker was down.
func (w *TransactionWorker) ProcessPending(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	pending, err := w.source.PendingTransactions(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	w.log.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	applied := 0
	for _, tx := range pending {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		if w.apply(ctx, tx) == nil {
			applied++
		}
	}
	return applied, nil
}

// Run sweeps pending transactions every interval until ctx is done.
func (w *TransactionWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *TransactionWorker) sweep(ctx context.Context) {
	if _, err := w.ProcessPending(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.log.ErrorContext(ctx, "Pending sweep failed", applog.FieldError, err)
	}
}

// Metrics returns the application counters.
func (w *TransactionWorker) Metrics() trace.Metrics {
	return w.counters.Snapshot()
}

// apply dispatches tx and records the outcome. Caller holds w.mu.
func (w *TransactionWorker) apply(ctx context.Context, tx core.Transaction) (err error) {
	ctx = trace.WithID(ctx, trace.GenerateID())
	fields := applog.NewFields().
		WithOperation(applog.OpProcess).
		WithTransaction(tx.ID, string(tx.Kind), tx.Amount.Cents, tx.Category, tx.SubCategory, tx.Account)

	start := time.Now()
	defer func() { w.counters.Observe(time.Since(start), err) }()

	if err := w.dispatcher.ProcessSpend(ctx, tx); err != nil {
		w.log.ErrorContext(ctx, "Failed to apply transaction", fields.WithError(err).ToSlice()...)
		if markErr := w.source.MarkFailed(ctx, tx.ID); markErr != nil {
			w.log.ErrorContext(ctx, "Failed to mark transaction failed",
				applog.FieldTxID, tx.ID,
				applog.FieldError, markErr)
		}
		return err
	}
	if err := w.source.MarkProcessed(ctx, tx.ID); err != nil {
		// The sheets already hold tx. Leaving it pending would let the next
		// sweep add it again.
		w.log.ErrorContext(ctx, "Failed to mark transaction processed",
			applog.FieldTxID, tx.ID,
			applog.FieldError, err)
		if markErr := w.source.MarkFailed(ctx, tx.ID); markErr != nil {
			w.log.ErrorContext(ctx, "Transaction left pending after being applied, it will be applied again",
				applog.FieldTxID, tx.ID,
				applog.FieldError, markErr)
		}
		return err
	}
	fields["duration"] = time.Since(start)
	w.log.InfoContext(ctx, "Transaction applied", fields.ToSlice()...)
	return nil
}
