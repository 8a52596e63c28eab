package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monthly/internal/config"
	"monthly/internal/core"
	applog "monthly/internal/log"
	"monthly/internal/monthly"
	"monthly/internal/sheets/memory"
)

const layoutYAML = `
spreadsheets:
  main:
    id: main-id
    class: Main
  budget-2024:
    id: b2024
    name: Budget 2024
    class: Monthly
    sheets:
      all:
        name: All
        class: AllCategories
        columns: {Food: 2, Rent: 3, Total: 4}
  budget-2025:
    id: b2025
    class: Monthly
    sheets:
      food:
        name: Food
        class: Category
        columns: {Groceries: 2, Total: 3}
`

func setup(t *testing.T, yaml string) (*memory.Store, *memory.Ledger, monthly.Deps, config.SpreadSheets) {
	t.Helper()
	layout, err := config.ParseSpreadsheets([]byte(yaml))
	require.NoError(t, err)
	store := memory.New()
	ledger := memory.NewLedger()
	return store, ledger, monthly.Deps{Store: store, Ledger: ledger, Logger: applog.Discard()}, layout
}

func TestNewBindsMonthlySpreadsheets(t *testing.T) {
	_, _, deps, layout := setup(t, layoutYAML)

	r, err := New(context.Background(), layout, deps)
	require.NoError(t, err)

	assert.Equal(t, []string{"b2024", "b2025"}, r.IDs())

	ss, err := r.Spreadsheet("b2024")
	require.NoError(t, err)
	assert.Equal(t, "Budget 2024", ss.Name())
	require.Len(t, ss.Handlers(), 1)
	assert.Equal(t, "All", ss.Handlers()[0].Name())

	_, err = r.Spreadsheet("main-id")
	assert.ErrorIs(t, err, ErrSpreadsheetNotFound, "main spreadsheets are not bound")
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	_, _, deps, layout := setup(t, layoutYAML)
	layout[2].ID = "b2024"

	_, err := New(context.Background(), layout, deps)
	assert.ErrorIs(t, err, ErrDuplicateSpreadsheet)
}

func TestNewRejectsUnsupportedClass(t *testing.T) {
	_, _, deps, layout := setup(t, layoutYAML)
	layout[1].Class = "Weekly"

	_, err := New(context.Background(), layout, deps)
	assert.ErrorIs(t, err, ErrUnsupportedSpreadsheetClass)
}

func TestNewPropagatesSheetClassErrors(t *testing.T) {
	_, _, deps, layout := setup(t, layoutYAML)
	layout[1].Sheets[0].Class = "Yearly"

	_, err := New(context.Background(), layout, deps)
	assert.ErrorIs(t, err, monthly.ErrUnknownSheetClass)
}

func TestRegistriesAreIndependent(t *testing.T) {
	_, _, deps, layout := setup(t, layoutYAML)
	a, err := New(context.Background(), layout, deps)
	require.NoError(t, err)
	b, err := New(context.Background(), layout[:2], deps)
	require.NoError(t, err)

	assert.Len(t, a.IDs(), 2)
	assert.Len(t, b.IDs(), 1)
}

func TestProcessSpendAndValidateAll(t *testing.T) {
	store, ledger, deps, layout := setup(t, layoutYAML)
	store.CreateSheet("b2024", "All", "Date", "Food", "Rent", "Total")
	store.CreateSheet("b2025", "Food", "Date", "Groceries", "Total")
	ctx := context.Background()

	r, err := New(ctx, layout, deps)
	require.NoError(t, err)

	tx, err := ledger.Record(ctx, core.Transaction{
		Kind: core.Spend, Date: core.NewDate(2024, 1, 15), Amount: core.Money{Cents: 2000},
		Category: "Food", SubCategory: "Groceries", Account: "Visa",
	})
	require.NoError(t, err)
	require.NoError(t, r.ProcessSpend(ctx, tx))

	all, err := store.ReadAllRows(ctx, "b2024", "All")
	require.NoError(t, err)
	require.Len(t, all, 2)
	food, err := store.ReadAllRows(ctx, "b2025", "Food")
	require.NoError(t, err)
	require.Len(t, food, 2)

	reports, err := r.ValidateAll(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, rep := range reports {
		assert.True(t, rep.OK())
	}
}

func TestValidateAllCollectsFailures(t *testing.T) {
	store, _, deps, layout := setup(t, layoutYAML)
	store.CreateSheet("b2025", "Food", "Date", "Groceries", "Total")

	r, err := New(context.Background(), layout, deps)
	require.NoError(t, err)

	reports, err := r.ValidateAll(context.Background())
	assert.ErrorIs(t, err, memory.ErrSheetNotFound)
	assert.Len(t, reports, 1)
}

func TestProcessSpendChecksEverySpreadsheetFirst(t *testing.T) {
	store, _, deps, layout := setup(t, layoutYAML)
	store.CreateSheet("b2024", "All", "Date", "Food", "Rent", "Total")
	store.CreateSheet("b2025", "Food", "Date", "Groceries", "Total")
	ctx := context.Background()

	r, err := New(ctx, layout, deps)
	require.NoError(t, err)
	before := store.Writes()

	// b2024 accepts it, b2025 has no Restaurants column.
	err = r.ProcessSpend(ctx, core.Transaction{
		ID: 1, Kind: core.Spend, Date: core.NewDate(2024, 1, 15), Amount: core.Money{Cents: 2000},
		Category: "Food", SubCategory: "Restaurants", Account: "Visa",
	})
	assert.ErrorIs(t, err, monthly.ErrUnknownColumn)
	assert.Equal(t, before, store.Writes())

	all, err := store.ReadAllRows(ctx, "b2024", "All")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
