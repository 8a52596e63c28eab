package monthly

import (
	"context"
	"fmt"

	"monthly/internal/config"
	"monthly/internal/core"
	"monthly/internal/grouping"
)

// AllCategories aggregates every transaction by category.
type AllCategories struct {
	sheet
}

func (h *AllCategories) Check(tx core.Transaction) error {
	_, _, err := h.resolve(tx, tx.Category)
	return err
}

func (h *AllCategories) ProcessSpend(ctx context.Context, tx core.Transaction) error {
	return h.accumulate(ctx, tx, tx.Category)
}

func (h *AllCategories) Validate(ctx context.Context) (*Report, error) {
	return h.validate(ctx, func(txs []core.Transaction, months []string, categories []string) grouping.GroupedAmounts {
		return grouping.ByMonthAndCategory(txs, months, h.policy().Granularity, "", categories)
	})
}

// Category aggregates the transactions of one category by subcategory.
type Category struct {
	sheet
	category string
}

func (h *Category) Check(tx core.Transaction) error {
	if tx.Category != h.category {
		return nil
	}
	_, _, err := h.resolve(tx, tx.SubCategory)
	return err
}

func (h *Category) ProcessSpend(ctx context.Context, tx core.Transaction) error {
	if tx.Category != h.category {
		return nil
	}
	return h.accumulate(ctx, tx, tx.SubCategory)
}

func (h *Category) Validate(ctx context.Context) (*Report, error) {
	return h.validate(ctx, func(txs []core.Transaction, months []string, subCategories []string) grouping.GroupedAmounts {
		return grouping.ByMonthAndSubCategory(txs, months, h.policy().Granularity, h.category, subCategories)
	})
}

// Account aggregates the transactions of one account by category.
type Account struct {
	sheet
	account string
}

func (h *Account) Check(tx core.Transaction) error {
	if tx.Account != h.account {
		return nil
	}
	_, _, err := h.resolve(tx, tx.Category)
	return err
}

func (h *Account) ProcessSpend(ctx context.Context, tx core.Transaction) error {
	if tx.Account != h.account {
		return nil
	}
	return h.accumulate(ctx, tx, tx.Category)
}

func (h *Account) Validate(ctx context.Context) (*Report, error) {
	return h.validate(ctx, func(txs []core.Transaction, months []string, categories []string) grouping.GroupedAmounts {
		return grouping.ByMonthAndCategory(txs, months, h.policy().Granularity, h.account, categories)
	})
}

var (
	_ SheetHandler = (*AllCategories)(nil)
	_ SheetHandler = (*Category)(nil)
	_ SheetHandler = (*Account)(nil)
)

// NewSheetHandler builds the handler matching the sheet's class.
func NewSheetHandler(ss config.SpreadSheetConfig, cfg config.SheetConfig, deps Deps) (SheetHandler, error) {
	if err := deps.check(); err != nil {
		return nil, err
	}
	base := newSheet(ss, cfg, deps)
	switch cfg.Class {
	case ClassAllCategories:
		return &AllCategories{sheet: base}, nil
	case ClassCategory:
		return &Category{sheet: base, category: cfg.BoundCategory()}, nil
	case ClassAccount:
		return &Account{sheet: base, account: cfg.BoundAccount()}, nil
	default:
		return nil, fmt.Errorf("%w %q for sheet %q", ErrUnknownSheetClass, cfg.Class, cfg.Name)
	}
}
