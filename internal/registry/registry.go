// Package registry binds configured spreadsheet ids to their handlers.
package registry

import (
	"context"
	"errors"
	"fmt"

	"monthly/internal/config"
	"monthly/internal/core"
	applog "monthly/internal/log"
	"monthly/internal/monthly"
)

// ClassMain spreadsheets hold raw transactions and have no aggregate
// handler.
const ClassMain = "Main"

var (
	ErrDuplicateSpreadsheet        = errors.New("duplicate spreadsheet id")
	ErrUnsupportedSpreadsheetClass = errors.New("unsupported spreadsheet class")
	ErrSpreadsheetNotFound         = errors.New("spreadsheet not registered")
)

// Registry is built once from the layout and only read afterwards.
type Registry struct {
	order        []string
	spreadsheets map[string]*monthly.Spreadsheet
	log          *applog.Logger
}

// New builds a handler for every Monthly spreadsheet of layout. Main
// spreadsheets are skipped; any other class is an error.
func New(ctx context.Context, layout config.SpreadSheets, deps monthly.Deps) (*Registry, error) {
	logger := deps.Logger
	if logger == nil {
		logger = applog.FromContext(ctx)
	}
	logger = logger.WithComponent(applog.ComponentRegistry)

	r := &Registry{
		spreadsheets: make(map[string]*monthly.Spreadsheet, len(layout)),
		log:          logger,
	}
	for _, ss := range layout {
		switch ss.Class {
		case monthly.ClassMonthly:
			if _, exists := r.spreadsheets[ss.ID]; exists {
				return nil, fmt.Errorf("%w %q (%s)", ErrDuplicateSpreadsheet, ss.ID, ss.Key)
			}
			h, err := monthly.NewSpreadsheet(ss, deps)
			if err != nil {
				return nil, err
			}
			r.spreadsheets[ss.ID] = h
			r.order = append(r.order, ss.ID)
			logger.DebugContext(ctx, "Spreadsheet registered",
				applog.FieldSpreadsheet, ss.Name,
				"id", ss.ID,
				"sheets", len(ss.Sheets))
		case ClassMain:
			logger.DebugContext(ctx, "Skipping main spreadsheet", applog.FieldSpreadsheet, ss.Name)
		default:
			return nil, fmt.Errorf("%w %q for spreadsheet %q", ErrUnsupportedSpreadsheetClass, ss.Class, ss.Key)
		}
	}
	logger.InfoContext(ctx, "Registry initialized", "spreadsheets", len(r.order))
	return r, nil
}

// Spreadsheet returns the handler bound to id.
func (r *Registry) Spreadsheet(id string) (*monthly.Spreadsheet, error) {
	h, ok := r.spreadsheets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSpreadsheetNotFound, id)
	}
	return h, nil
}

// IDs returns the bound ids in layout order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// ProcessSpend dispatches tx to every bound spreadsheet in layout order.
// Every spreadsheet is checked first, so a transaction one sheet cannot
// take is written nowhere.
func (r *Registry) ProcessSpend(ctx context.Context, tx core.Transaction) error {
	for _, id := range r.order {
		if err := r.spreadsheets[id].Check(tx); err != nil {
			r.log.ErrorContext(ctx, "Transaction rejected",
				applog.FieldTxID, tx.ID,
				applog.FieldSpreadsheet, r.spreadsheets[id].Name(),
				applog.FieldError, err)
			return fmt.Errorf("spreadsheet %q: %w", r.spreadsheets[id].Name(), err)
		}
	}
	for _, id := range r.order {
		if err := r.spreadsheets[id].ProcessSpend(ctx, tx); err != nil {
			return fmt.Errorf("spreadsheet %q: %w", r.spreadsheets[id].Name(), err)
		}
	}
	return nil
}

// ValidateAll validates every bound spreadsheet. Failures are joined and do
// not stop the remaining spreadsheets.
func (r *Registry) ValidateAll(ctx context.Context) ([]*monthly.Report, error) {
	var (
		reports []*monthly.Report
		errs    []error
	)
	for _, id := range r.order {
		got, err := r.spreadsheets[id].ValidateAll(ctx)
		reports = append(reports, got...)
		if err != nil {
			errs = append(errs, fmt.Errorf("spreadsheet %q: %w", r.spreadsheets[id].Name(), err))
		}
	}
	return reports, errors.Join(errs...)
}
