package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monthly/internal/core"
)

const layoutYAML = `
spreadsheets:
  budget:
    id: sheet-123
    name: Budget 2024
    class: Monthly
    policy:
      granularity: month
      stamp_last_updated: true
    sheets:
      all:
        name: All
        class: AllCategories
        columns: {Food: 2, Rent: 3, Total: 4}
      food:
        name: Food
        class: Category
        columns: {Groceries: 2, Restaurants: 3}
        total_column: 4
      visa:
        class: Account
        account: Visa Gold
        columns: {Food: 2, Total: 3}
  main:
    class: Main
`

func TestParseSpreadsheets(t *testing.T) {
	got, err := ParseSpreadsheets([]byte(layoutYAML))
	require.NoError(t, err)
	require.Len(t, got, 2)

	budget := got[0]
	assert.Equal(t, "budget", budget.Key)
	assert.Equal(t, "sheet-123", budget.ID)
	assert.Equal(t, "Budget 2024", budget.Name)
	assert.Equal(t, "Monthly", budget.Class)
	assert.Equal(t, core.MonthOnly, budget.Policy.Granularity)
	assert.True(t, budget.Policy.StampLastUpdated)
	assert.True(t, budget.Policy.OffsetReimbursements, "unset policy fields keep defaults")

	require.Len(t, budget.Sheets, 3)
	assert.Equal(t, []string{"all", "food", "visa"}, []string{budget.Sheets[0].Key, budget.Sheets[1].Key, budget.Sheets[2].Key})
	assert.Equal(t, 4, budget.Sheets[0].Total())
	assert.Equal(t, 4, budget.Sheets[1].Total())
	assert.Equal(t, "Food", budget.Sheets[1].BoundCategory())
	assert.Equal(t, "visa", budget.Sheets[2].Name, "name defaults to the key")
	assert.Equal(t, "Visa Gold", budget.Sheets[2].BoundAccount())

	col, ok := budget.Sheets[0].Column("Rent")
	assert.True(t, ok)
	assert.Equal(t, 3, col)
	_, ok = budget.Sheets[0].Column("Travel")
	assert.False(t, ok)

	main := got[1]
	assert.Equal(t, "main", main.ID, "id defaults to the key")
	assert.Equal(t, DefaultPolicy(), main.Policy)
	assert.Empty(t, main.Sheets)
}

func TestParseSpreadsheets_Invalid(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing total",
			doc: `
spreadsheets:
  s:
    class: Monthly
    sheets:
      all: {class: AllCategories, columns: {Food: 2}}
`,
			want: "missing total column",
		},
		{
			name: "date column reused",
			doc: `
spreadsheets:
  s:
    class: Monthly
    sheets:
      all: {class: AllCategories, columns: {Food: 1, Total: 2}}
`,
			want: `column "Food" has index 1`,
		},
		{
			name: "bad granularity",
			doc: `
spreadsheets:
  s:
    class: Monthly
    policy: {granularity: weekly}
`,
			want: "invalid granularity",
		},
		{
			name: "missing class",
			doc: `
spreadsheets:
  s:
    name: nothing
`,
			want: "class is required",
		},
		{
			name: "sheets not a mapping",
			doc: `
spreadsheets:
  s:
    class: Monthly
    sheets: [a, b]
`,
			want: "sheets must be a mapping",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSpreadsheets([]byte(tc.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadSpreadsheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(layoutYAML), 0644))

	got, err := LoadSpreadsheets(path)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = LoadSpreadsheets(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
