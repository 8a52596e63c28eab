package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Spend         Kind = "spend"
	Reimbursement Kind = "reimbursement"
)

type (
	Kind string

	Date struct {
		time.Time
	}

	// Money is a signed amount in cents.
	Money struct {
		Cents int64
	}

	// Transaction is a recorded spend or reimbursement. It is never mutated
	// once recorded.
	Transaction struct {
		ID          int64 // Ledger ID, zero when not persisted
		Kind        Kind
		Date        Date
		Amount      Money
		Category    string
		SubCategory string // Optional
		Account     string
		Description string
	}
)

var (
	ErrInvalidKind    = errors.New("invalid transaction kind")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyCategory  = errors.New("empty category")
	ErrEmptyAccount   = errors.New("empty account")
	ErrZeroDate       = errors.New("date cannot be zero")
	ErrDescriptionLen = errors.New("description too long (max 200 characters)")
)

func (k Kind) Valid() bool {
	switch k {
	case Spend, Reimbursement:
		return true
	default:
		return false
	}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// Month returns the month as 1-12.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(t.Account) == "" {
		return ErrEmptyAccount
	}
	if len(t.Description) > 200 {
		return ErrDescriptionLen
	}
	return nil
}

// Signed returns the amount a transaction contributes to an aggregate:
// spends add, reimbursements subtract.
func (t Transaction) Signed() Money {
	if t.Kind == Reimbursement {
		return t.Amount.Neg()
	}
	return t.Amount
}

// SplitByKind separates a mixed ledger into spends and reimbursements,
// preserving order.
func SplitByKind(txs []Transaction) (spends, reimbursements []Transaction) {
	for _, tx := range txs {
		switch tx.Kind {
		case Spend:
			spends = append(spends, tx)
		case Reimbursement:
			reimbursements = append(reimbursements, tx)
		}
	}
	return spends, reimbursements
}
