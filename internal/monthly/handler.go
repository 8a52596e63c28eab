// Package monthly keeps monthly aggregate sheets up to date.
//
// A Spreadsheet owns one SheetHandler per configured sheet. Every handler
// accumulates transactions into one row per month and can validate the
// stored rows against the transaction ledger.
package monthly

import (
	"context"
	"errors"
	"fmt"
	"time"

	"monthly/internal/config"
	"monthly/internal/core"
	applog "monthly/internal/log"
	"monthly/internal/sheets"
)

// Sheet classes.
const (
	ClassAllCategories = "AllCategories"
	ClassCategory      = "Category"
	ClassAccount       = "Account"
)

var (
	ErrUnknownSheetClass = errors.New("unknown sheet class")
	ErrUnknownColumn     = errors.New("unknown column")
)

// SheetHandler keeps one sheet up to date.
type SheetHandler interface {
	// Name returns the sheet name.
	Name() string
	// Check resolves the columns tx would be written to without touching
	// the sheet. Misconfiguration errors wrap ErrUnknownColumn.
	Check(tx core.Transaction) error
	// ProcessSpend adds tx to the row of its month when the sheet tracks
	// it. It fails with the same error as Check before writing anything.
	ProcessSpend(ctx context.Context, tx core.Transaction) error
	// Validate compares the stored rows with the ledger. Mismatches are
	// reported, never returned as errors.
	Validate(ctx context.Context) (*Report, error)
}

// Deps are the collaborators shared by all handlers of a spreadsheet.
type Deps struct {
	Store  sheets.SheetStore
	Ledger sheets.Ledger
	Logger *applog.Logger
}

func (d Deps) check() error {
	if d.Store == nil {
		return errors.New("sheet store is required")
	}
	if d.Ledger == nil {
		return errors.New("ledger is required")
	}
	return nil
}

func (d Deps) logger() *applog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return applog.FromContext(context.Background())
}

// sheet holds the row logic shared by every variant.
type sheet struct {
	spreadsheet config.SpreadSheetConfig
	cfg         config.SheetConfig
	store       sheets.SheetStore
	ledger      sheets.Ledger
	log         *applog.Logger
}

func newSheet(ss config.SpreadSheetConfig, cfg config.SheetConfig, deps Deps) sheet {
	return sheet{
		spreadsheet: ss,
		cfg:         cfg,
		store:       deps.Store,
		ledger:      deps.Ledger,
		log: deps.logger().WithComponent(applog.ComponentSheets).With(
			applog.FieldSpreadsheet, ss.Name,
			applog.FieldSheet, cfg.Name,
			applog.FieldSheetClass, cfg.Class,
		),
	}
}

func (s *sheet) Name() string { return s.cfg.Name }

func (s *sheet) policy() config.Policy { return s.spreadsheet.Policy }

// contribution returns the amount tx adds to the sheet. Reimbursements
// subtract when offsetting is on and are ignored otherwise.
func (s *sheet) contribution(tx core.Transaction) (core.Money, bool) {
	if tx.Kind == core.Reimbursement && !s.policy().OffsetReimbursements {
		return core.Money{}, false
	}
	return tx.Signed(), true
}

// target is where a transaction lands in a sheet.
type target struct {
	label  string
	amount core.Money
	col    int
	total  int
}

// resolve returns the cells tx adds to when it is written under label.
// ok is false when the sheet ignores tx.
func (s *sheet) resolve(tx core.Transaction, label string) (t target, ok bool, err error) {
	amount, ok := s.contribution(tx)
	if !ok {
		return target{}, false, nil
	}
	col, total, err := s.columns(label)
	if err != nil {
		return target{}, false, err
	}
	return target{label: label, amount: amount, col: col, total: total}, true, nil
}

// accumulate adds tx into the column labelled label and into the total
// column of the row for tx's month, creating the row when missing.
func (s *sheet) accumulate(ctx context.Context, tx core.Transaction, label string) error {
	t, ok, err := s.resolve(tx, label)
	if err != nil || !ok {
		return err
	}
	return s.apply(ctx, tx, t)
}

func (s *sheet) apply(ctx context.Context, tx core.Transaction, t target) error {
	amount, col, total, label := t.amount, t.col, t.total, t.label
	id, name := s.spreadsheet.ID, s.cfg.Name
	rowNum, err := s.rowForMonth(ctx, tx.Date.Time)
	if err != nil {
		return err
	}

	if rowNum == 0 {
		width, err := s.store.NumberOfColumns(ctx, id, name)
		if err != nil {
			return fmt.Errorf("number of columns of %q: %w", name, err)
		}
		width = max(width, col, total)
		row := make([]any, width)
		for i := range row {
			row[i] = 0.0
		}
		row[0] = core.FormatCellDate(tx.Date.Time)
		row[col-1] = amount.Euros()
		row[total-1] = amount.Euros()
		if err := s.store.AddRow(ctx, id, name, row); err != nil {
			return fmt.Errorf("add row to %q: %w", name, err)
		}
		s.log.DebugContext(ctx, "Month row created",
			applog.FieldMonth, core.MonthKey(tx.Date.Time, s.policy().Granularity),
			applog.FieldColumn, label,
			applog.FieldAmountCents, amount.Cents)
		return nil
	}

	if s.policy().StampLastUpdated {
		if err := s.store.SetValue(ctx, id, name, rowNum, 1, core.FormatCellDate(tx.Date.Time)); err != nil {
			return fmt.Errorf("stamp row %d of %q: %w", rowNum, name, err)
		}
	}
	if err := s.addToCell(ctx, rowNum, col, amount); err != nil {
		return err
	}
	if err := s.addToCell(ctx, rowNum, total, amount); err != nil {
		return err
	}
	s.log.DebugContext(ctx, "Month row updated",
		applog.FieldRow, rowNum,
		applog.FieldColumn, label,
		applog.FieldAmountCents, amount.Cents)
	return nil
}

// columns resolves label and the total column. The total column cannot be
// targeted directly.
func (s *sheet) columns(label string) (col, total int, err error) {
	total = s.cfg.Total()
	if total < 1 {
		return 0, 0, fmt.Errorf("%w: sheet %q of %q has no total column", ErrUnknownColumn, s.cfg.Name, s.spreadsheet.Name)
	}
	col, ok := s.cfg.Column(label)
	if !ok || col == 1 || col == total {
		return 0, 0, fmt.Errorf("%w %q in sheet %q of %q", ErrUnknownColumn, label, s.cfg.Name, s.spreadsheet.Name)
	}
	return col, total, nil
}

func (s *sheet) addToCell(ctx context.Context, row, col int, amount core.Money) error {
	id, name := s.spreadsheet.ID, s.cfg.Name
	v, err := s.store.GetValue(ctx, id, name, row, col)
	if err != nil {
		return fmt.Errorf("read R%dC%d of %q: %w", row, col, name, err)
	}
	current, err := core.ParseCellAmount(v)
	if err != nil {
		return fmt.Errorf("read R%dC%d of %q: %w", row, col, name, err)
	}
	if err := s.store.SetValue(ctx, id, name, row, col, current.Add(amount).Euros()); err != nil {
		return fmt.Errorf("write R%dC%d of %q: %w", row, col, name, err)
	}
	return nil
}

// rowForMonth returns the 1-based row holding date's month, or 0 when the
// sheet has none yet. Rows whose date cell cannot be read are skipped.
func (s *sheet) rowForMonth(ctx context.Context, date time.Time) (int, error) {
	rows, err := s.store.ReadAllRows(ctx, s.spreadsheet.ID, s.cfg.Name)
	if err != nil {
		return 0, fmt.Errorf("read rows of %q: %w", s.cfg.Name, err)
	}
	g := s.policy().Granularity
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) == 0 {
			continue
		}
		d, err := core.ParseCellDate(rows[i][0])
		if err != nil {
			continue
		}
		if core.SameMonth(d, date, g) {
			return i + 1, nil
		}
	}
	return 0, nil
}
