package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Granularity controls how a date maps to a sheet row.
type Granularity string

const (
	// YearMonth keeps one row per calendar month of each year.
	YearMonth Granularity = "year_month"
	// MonthOnly keeps one row per month name; years share rows.
	MonthOnly Granularity = "month"
)

// CellDateLayout is the layout used when writing date cells.
const CellDateLayout = "2006-01-02"

var ErrInvalidCell = errors.New("invalid cell value")

func (g Granularity) Valid() bool {
	return g == YearMonth || g == MonthOnly
}

// MonthKey formats t as the grouping key for g: "2006-01" or "01".
func MonthKey(t time.Time, g Granularity) string {
	if g == MonthOnly {
		return t.Format("01")
	}
	return t.Format("2006-01")
}

// SameMonth reports whether a and b fall in the same row under g.
func SameMonth(a, b time.Time, g Granularity) bool {
	return MonthKey(a, g) == MonthKey(b, g)
}

// FormatCellDate renders a date the way it is written into column 1.
func FormatCellDate(t time.Time) string {
	return t.Format(CellDateLayout)
}

var cellDateLayouts = []string{
	CellDateLayout,
	time.DateTime,
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"2006-01",
}

// sheetsEpoch is day zero of spreadsheet serial dates.
var sheetsEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseCellDate reads a date cell as returned by a spreadsheet: a time
// value, a formatted string or a serial day number.
func ParseCellDate(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case Date:
		return x.Time, nil
	case float64:
		return serialDate(x), nil
	case int:
		return serialDate(float64(x)), nil
	case int64:
		return serialDate(float64(x)), nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range cellDateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidCell, s)
	default:
		return time.Time{}, fmt.Errorf("%w: date %v (%T)", ErrInvalidCell, v, v)
	}
}

func serialDate(days float64) time.Time {
	whole := int(days)
	frac := days - float64(whole)
	return sheetsEpoch.AddDate(0, 0, whole).Add(time.Duration(frac * float64(24*time.Hour)))
}

// ParseCellAmount reads an amount cell in euros. Empty cells are zero.
func ParseCellAmount(v any) (Money, error) {
	var d decimal.Decimal
	switch x := v.(type) {
	case nil:
		return Money{}, nil
	case Money:
		return x, nil
	case decimal.Decimal:
		d = x
	case float64:
		d = decimal.NewFromFloat(x)
	case float32:
		d = decimal.NewFromFloat32(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return Money{}, nil
		}
		s = strings.TrimSpace(strings.Trim(s, "€"))
		s = strings.ReplaceAll(s, ",", ".")
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return Money{}, fmt.Errorf("%w: amount %q", ErrInvalidCell, x)
		}
		d = parsed
	default:
		return Money{}, fmt.Errorf("%w: amount %v (%T)", ErrInvalidCell, v, v)
	}
	return Money{Cents: d.Shift(2).Round(0).IntPart()}, nil
}

// FormatRow renders a sheet row for humans: the date cell as a month key
// and every other cell as an amount with two decimals.
func FormatRow(row []any, g Granularity) string {
	parts := make([]string, len(row))
	for i, v := range row {
		if i == 0 {
			if t, err := ParseCellDate(v); err == nil {
				parts[i] = MonthKey(t, g)
				continue
			}
			parts[i] = fmt.Sprint(v)
			continue
		}
		if m, err := ParseCellAmount(v); err == nil {
			parts[i] = m.String()
			continue
		}
		parts[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
