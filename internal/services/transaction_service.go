package services

import (
	"context"
	"errors"
	"fmt"

	"monthly/internal/core"
	applog "monthly/internal/log"
)

// Recorder persists transactions.
type Recorder interface {
	Record(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	Close() error
}

// Publisher announces recorded transactions to the worker.
type Publisher interface {
	PublishTransaction(ctx context.Context, id int64) error
	Close() error
}

// TransactionService records transactions locally and announces them.
type TransactionService struct {
	store     Recorder
	publisher Publisher
	log       *applog.Logger
}

// NewTransactionService wires the ledger and the feed. A nil publisher
// leaves recorded transactions to the worker's pending sweep.
func NewTransactionService(store Recorder, publisher Publisher, logger *applog.Logger) *TransactionService {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &TransactionService{
		store:     store,
		publisher: publisher,
		log:       logger.WithComponent(applog.ComponentApp),
	}
}

// Record saves tx and publishes its id. A failed publish is logged, not
// returned: the transaction is saved and the sweep will pick it up.
func (s *TransactionService) Record(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	saved, err := s.store.Record(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if s.publisher == nil {
		s.log.WarnContext(ctx, "AMQP client not available, skipping transaction message", applog.FieldTxID, saved.ID)
		return saved, nil
	}
	if err := s.publisher.PublishTransaction(ctx, saved.ID); err != nil {
		s.log.ErrorContext(ctx, "Failed to publish transaction message",
			applog.FieldTxID, saved.ID,
			applog.FieldError, err)
	}
	return saved, nil
}

// Close closes the ledger and the feed.
func (s *TransactionService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
