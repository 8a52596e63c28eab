package sheets

import (
	"context"

	"monthly/internal/core"
)

// Ports for outbound adapters.
//
// Rows and columns are 1-based as in spreadsheet A1 notation: row 1 is the
// header row and column 1 holds the month date.
type (
	// SheetStore reads and writes the cells of the sheets of a spreadsheet.
	SheetStore interface {
		// ReadAllRows returns every row of the sheet, header first.
		ReadAllRows(ctx context.Context, spreadsheetID, sheet string) ([][]any, error)
		// AddRow appends row after the last non-empty row.
		AddRow(ctx context.Context, spreadsheetID, sheet string, row []any) error
		// GetValue returns the raw cell value, nil for an empty cell.
		GetValue(ctx context.Context, spreadsheetID, sheet string, row, col int) (any, error)
		SetValue(ctx context.Context, spreadsheetID, sheet string, row, col int, value any) error
		// NumberOfColumns returns the width of the sheet's header row.
		NumberOfColumns(ctx context.Context, spreadsheetID, sheet string) (int, error)
	}

	// Ledger returns the recorded transactions.
	Ledger interface {
		AllSpends(ctx context.Context) ([]core.Transaction, error)
		AllReimbursements(ctx context.Context) ([]core.Transaction, error)
	}
)
