package monthly

import (
	"context"
	"fmt"
	"strings"
	"time"

	"monthly/internal/config"
	"monthly/internal/core"
	"monthly/internal/grouping"
	applog "monthly/internal/log"
)

// RowMismatch describes a stored row that disagrees with the ledger.
type RowMismatch struct {
	Row      int    // 1-based sheet row
	Month    string // empty when the date cell is unreadable
	Columns  []string
	Expected []any
	Actual   []any
}

// Report is the outcome of validating one sheet.
type Report struct {
	Spreadsheet string
	Sheet       string
	RowsChecked int
	Mismatches  []RowMismatch
	Tips        []string
}

// OK reports whether every row matched.
func (r *Report) OK() bool {
	return len(r.Mismatches) == 0
}

// groupFunc groups txs by month and by the sheet's grouping elements.
type groupFunc func(txs []core.Transaction, months []string, elements []string) grouping.GroupedAmounts

func (s *sheet) validate(ctx context.Context, group groupFunc) (*Report, error) {
	rows, err := s.store.ReadAllRows(ctx, s.spreadsheet.ID, s.cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("read rows of %q: %w", s.cfg.Name, err)
	}
	report := &Report{Spreadsheet: s.spreadsheet.Name, Sheet: s.cfg.Name}
	if len(rows) == 0 {
		return report, nil
	}
	header, data := rows[0], rows[1:]
	elements := headerElements(header)

	columns := make(map[string]int, len(elements))
	for _, e := range elements {
		col, ok := s.cfg.Column(e)
		if !ok {
			return nil, fmt.Errorf("%w %q in header of sheet %q of %q", ErrUnknownColumn, e, s.cfg.Name, s.spreadsheet.Name)
		}
		columns[e] = col
	}
	total := s.cfg.Total()
	if total < 1 {
		return nil, fmt.Errorf("%w: sheet %q of %q has no total column", ErrUnknownColumn, s.cfg.Name, s.spreadsheet.Name)
	}

	g := s.policy().Granularity
	dates := make([]time.Time, len(data))
	readable := make([]bool, len(data))
	var known []time.Time
	for i, row := range data {
		if len(row) == 0 {
			continue
		}
		d, err := core.ParseCellDate(row[0])
		if err != nil {
			continue
		}
		dates[i], readable[i] = d, true
		known = append(known, d)
	}
	months := grouping.Months(known, g)

	expected, err := s.expectedAmounts(ctx, group, months, elements)
	if err != nil {
		return nil, err
	}

	width := max(len(header), total)
	for _, col := range columns {
		width = max(width, col)
	}

	for i, row := range data {
		if len(row) == 0 {
			continue
		}
		report.RowsChecked++
		rowNum := i + 2
		if !readable[i] {
			report.Mismatches = append(report.Mismatches, RowMismatch{
				Row:     rowNum,
				Columns: []string{"date"},
				Actual:  row,
			})
			continue
		}
		if m, ok := compareRow(row, rowNum, core.MonthKey(dates[i], g), width, elements, columns, total, expected); !ok {
			report.Mismatches = append(report.Mismatches, m)
		}
	}

	s.logReport(ctx, report)
	return report, nil
}

// expectedAmounts groups the ledger, net of reimbursements when the policy
// offsets them.
func (s *sheet) expectedAmounts(ctx context.Context, group groupFunc, months, elements []string) (grouping.GroupedAmounts, error) {
	spends, err := s.ledger.AllSpends(ctx)
	if err != nil {
		return nil, fmt.Errorf("load spends: %w", err)
	}
	expected := group(spends, months, elements)
	if !s.policy().OffsetReimbursements {
		return expected, nil
	}
	reimbursements, err := s.ledger.AllReimbursements(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reimbursements: %w", err)
	}
	return expected.Subtract(group(reimbursements, months, elements)), nil
}

func compareRow(row []any, rowNum int, month string, width int, elements []string, columns map[string]int, total int, expected grouping.GroupedAmounts) (RowMismatch, bool) {
	want := make([]any, width)
	for i := range want {
		want[i] = 0.0
	}
	want[0] = row[0]

	var differing []string
	var expectedTotal core.Money
	for _, e := range elements {
		col := columns[e]
		amount := expected.Amount(month, e)
		expectedTotal = expectedTotal.Add(amount)
		want[col-1] = amount.Euros()
		if !cellEquals(row, col, amount) {
			differing = append(differing, e)
		}
	}
	want[total-1] = expectedTotal.Euros()
	if !cellEquals(row, total, expectedTotal) {
		differing = append(differing, config.TotalLabel)
	}

	if len(differing) == 0 {
		return RowMismatch{}, true
	}
	return RowMismatch{
		Row:      rowNum,
		Month:    month,
		Columns:  differing,
		Expected: want,
		Actual:   row,
	}, false
}

func cellEquals(row []any, col int, want core.Money) bool {
	var v any
	if col-1 < len(row) {
		v = row[col-1]
	}
	got, err := core.ParseCellAmount(v)
	return err == nil && got == want
}

// headerElements returns the labels between the date column and the
// trailing total column.
func headerElements(header []any) []string {
	if len(header) < 3 {
		return nil
	}
	out := make([]string, 0, len(header)-2)
	for _, v := range header[1 : len(header)-1] {
		label := strings.TrimSpace(fmt.Sprint(v))
		if label == "" {
			continue
		}
		out = append(out, label)
	}
	return out
}

func (s *sheet) tips() []string {
	return []string{
		"Check amounts for each category",
		"Check category/subcategory names are correct for all spends.",
		fmt.Sprintf("Check if the first row in sheet '%s' within spreadsheet '%s' contains valid category/subcategory names", s.cfg.Name, s.spreadsheet.Name),
	}
}

func (s *sheet) logReport(ctx context.Context, report *Report) {
	logger := s.log.WithComponent(applog.ComponentValidate)
	if report.OK() {
		logger.InfoContext(ctx, "Sheet validated", "rows", report.RowsChecked)
		return
	}
	g := s.policy().Granularity
	for _, m := range report.Mismatches {
		if m.Expected == nil {
			logger.WarnContext(ctx, "Row with unreadable date",
				applog.FieldRow, m.Row,
				applog.FieldActual, core.FormatRow(m.Actual, g))
			continue
		}
		logger.WarnContext(ctx, "Row mismatch",
			applog.FieldRow, m.Row,
			applog.FieldMonth, m.Month,
			applog.FieldColumn, strings.Join(m.Columns, ","),
			applog.FieldExpected, core.FormatRow(m.Expected, g),
			applog.FieldActual, core.FormatRow(m.Actual, g))
	}
	report.Tips = s.tips()
	logger.WarnContext(ctx, "Sheet has mismatches",
		applog.FieldMismatches, len(report.Mismatches),
		"tips", strings.Join(report.Tips, "\n"))
}
