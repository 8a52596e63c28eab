package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"monthly/internal/core"
	ports "monthly/internal/sheets"
)

var ErrSheetNotFound = errors.New("sheet not found")

var (
	_ ports.SheetStore = (*Store)(nil)
	_ ports.Ledger     = (*Ledger)(nil)
)

type sheetKey struct {
	spreadsheetID string
	sheet         string
}

// Store keeps sheets in memory. Cells hold whatever was written.
type Store struct {
	mu     sync.Mutex
	sheets map[sheetKey][][]any
	writes int
}

func New() *Store {
	return &Store{sheets: map[sheetKey][][]any{}}
}

// CreateSheet creates (or resets) a sheet whose only row is header.
func (s *Store) CreateSheet(spreadsheetID, sheet string, header ...string) {
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[sheetKey{spreadsheetID, sheet}] = [][]any{row}
}

// Writes returns the number of AddRow and SetValue calls served.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Store) ReadAllRows(_ context.Context, spreadsheetID, sheet string) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.lookup(spreadsheetID, sheet)
	if err != nil {
		return nil, err
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = append([]any(nil), r...)
	}
	return out, nil
}

func (s *Store) AddRow(_ context.Context, spreadsheetID, sheet string, row []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.lookup(spreadsheetID, sheet)
	if err != nil {
		return err
	}
	s.sheets[sheetKey{spreadsheetID, sheet}] = append(rows, append([]any(nil), row...))
	s.writes++
	return nil
}

func (s *Store) GetValue(_ context.Context, spreadsheetID, sheet string, row, col int) (any, error) {
	if row < 1 || col < 1 {
		return nil, fmt.Errorf("invalid cell R%dC%d", row, col)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.lookup(spreadsheetID, sheet)
	if err != nil {
		return nil, err
	}
	if row > len(rows) || col > len(rows[row-1]) {
		return nil, nil
	}
	return rows[row-1][col-1], nil
}

// SetValue writes a cell, growing the sheet like a spreadsheet would.
func (s *Store) SetValue(_ context.Context, spreadsheetID, sheet string, row, col int, value any) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("invalid cell R%dC%d", row, col)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.lookup(spreadsheetID, sheet)
	if err != nil {
		return err
	}
	for len(rows) < row {
		rows = append(rows, nil)
	}
	r := rows[row-1]
	for len(r) < col {
		r = append(r, nil)
	}
	r[col-1] = value
	rows[row-1] = r
	s.sheets[sheetKey{spreadsheetID, sheet}] = rows
	s.writes++
	return nil
}

func (s *Store) NumberOfColumns(_ context.Context, spreadsheetID, sheet string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.lookup(spreadsheetID, sheet)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return len(rows[0]), nil
}

func (s *Store) lookup(spreadsheetID, sheet string) ([][]any, error) {
	rows, ok := s.sheets[sheetKey{spreadsheetID, sheet}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrSheetNotFound, spreadsheetID, sheet)
	}
	return rows, nil
}

// Ledger is an in-memory transaction ledger.
type Ledger struct {
	mu    sync.Mutex
	items []core.Transaction
}

func NewLedger(txs ...core.Transaction) *Ledger {
	return &Ledger{items: append([]core.Transaction(nil), txs...)}
}

// Record validates and stores tx, assigning it the next ID.
func (l *Ledger) Record(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	tx.ID = int64(len(l.items) + 1)
	l.items = append(l.items, tx)
	return tx, nil
}

func (l *Ledger) AllSpends(_ context.Context) ([]core.Transaction, error) {
	return l.byKind(core.Spend), nil
}

func (l *Ledger) AllReimbursements(_ context.Context) ([]core.Transaction, error) {
	return l.byKind(core.Reimbursement), nil
}

func (l *Ledger) byKind(kind core.Kind) []core.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []core.Transaction
	for _, tx := range l.items {
		if tx.Kind == kind {
			out = append(out, tx)
		}
	}
	return out
}
