package monthly

import (
	"context"
	"errors"
	"fmt"

	"monthly/internal/config"
	"monthly/internal/core"
	applog "monthly/internal/log"
)

// ClassMonthly is the spreadsheet class handled by Spreadsheet.
const ClassMonthly = "Monthly"

// Spreadsheet dispatches transactions and validation to the sheet handlers
// of one Monthly spreadsheet.
type Spreadsheet struct {
	cfg      config.SpreadSheetConfig
	handlers []SheetHandler
	log      *applog.Logger
}

// NewSpreadsheet builds one handler per configured sheet, in configuration
// order.
func NewSpreadsheet(cfg config.SpreadSheetConfig, deps Deps) (*Spreadsheet, error) {
	if err := deps.check(); err != nil {
		return nil, err
	}
	handlers := make([]SheetHandler, 0, len(cfg.Sheets))
	for _, sc := range cfg.Sheets {
		h, err := NewSheetHandler(cfg, sc, deps)
		if err != nil {
			return nil, fmt.Errorf("spreadsheet %q: %w", cfg.Name, err)
		}
		handlers = append(handlers, h)
	}
	return &Spreadsheet{
		cfg:      cfg,
		handlers: handlers,
		log:      deps.logger().WithComponent(applog.ComponentSheets).With(applog.FieldSpreadsheet, cfg.Name),
	}, nil
}

func (s *Spreadsheet) ID() string   { return s.cfg.ID }
func (s *Spreadsheet) Name() string { return s.cfg.Name }

// Handlers returns the sheet handlers in configuration order.
func (s *Spreadsheet) Handlers() []SheetHandler {
	out := make([]SheetHandler, len(s.handlers))
	copy(out, s.handlers)
	return out
}

// Check resolves tx against every sheet without writing. It returns the
// first sheet that cannot take tx.
func (s *Spreadsheet) Check(tx core.Transaction) error {
	for _, h := range s.handlers {
		if err := h.Check(tx); err != nil {
			return fmt.Errorf("sheet %q: %w", h.Name(), err)
		}
	}
	return nil
}

// ProcessSpend forwards tx to every sheet. Nothing is written unless every
// sheet resolves its columns. A store failure stops the dispatch; earlier
// sheets keep their writes.
func (s *Spreadsheet) ProcessSpend(ctx context.Context, tx core.Transaction) error {
	if err := s.Check(tx); err != nil {
		s.logFailure(ctx, tx, err)
		return err
	}
	return s.process(ctx, tx)
}

// process writes tx to every sheet, assuming Check passed.
func (s *Spreadsheet) process(ctx context.Context, tx core.Transaction) error {
	for _, h := range s.handlers {
		if err := h.ProcessSpend(ctx, tx); err != nil {
			err = fmt.Errorf("sheet %q: %w", h.Name(), err)
			s.logFailure(ctx, tx, err)
			return err
		}
	}
	return nil
}

func (s *Spreadsheet) logFailure(ctx context.Context, tx core.Transaction, err error) {
	s.log.ErrorContext(ctx, "Failed to process transaction",
		applog.NewFields().
			WithOperation(applog.OpProcess).
			WithError(err).
			WithTransaction(tx.ID, string(tx.Kind), tx.Amount.Cents, tx.Category, tx.SubCategory, tx.Account).
			ToSlice()...)
}

// ValidateAll validates every sheet. A failing sheet does not stop the
// others; its error is joined into the returned error.
func (s *Spreadsheet) ValidateAll(ctx context.Context) ([]*Report, error) {
	reports := make([]*Report, 0, len(s.handlers))
	var errs []error
	for _, h := range s.handlers {
		r, err := h.Validate(ctx)
		if err != nil {
			s.log.ErrorContext(ctx, "Failed to validate sheet",
				applog.FieldSheet, h.Name(),
				applog.FieldError, err)
			errs = append(errs, fmt.Errorf("sheet %q: %w", h.Name(), err))
			continue
		}
		reports = append(reports, r)
	}
	return reports, errors.Join(errs...)
}
