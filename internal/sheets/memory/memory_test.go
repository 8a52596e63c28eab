package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monthly/internal/core"
)

func TestStoreRowsAndCells(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.CreateSheet("ss", "All", "Date", "Food", "Total")

	n, err := s.NumberOfColumns(ctx, "ss", "All")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, s.AddRow(ctx, "ss", "All", []any{"2024-01-05", 20.0, 20.0}))
	v, err := s.GetValue(ctx, "ss", "All", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 20.0, v)

	require.NoError(t, s.SetValue(ctx, "ss", "All", 2, 2, 25.0))
	rows, err := s.ReadAllRows(ctx, "ss", "All")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 25.0, rows[1][1])
	assert.Equal(t, 2, s.Writes())

	// Reads are copies.
	rows[1][1] = 0.0
	v, _ = s.GetValue(ctx, "ss", "All", 2, 2)
	assert.Equal(t, 25.0, v, "read aliasing changed the store")

	// Out of range reads are empty cells.
	v, err = s.GetValue(ctx, "ss", "All", 9, 9)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestStoreSetValueGrows(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.CreateSheet("ss", "All", "Date")
	require.NoError(t, s.SetValue(ctx, "ss", "All", 3, 4, 1.0))

	rows, _ := s.ReadAllRows(ctx, "ss", "All")
	require.Len(t, rows, 3)
	require.Len(t, rows[2], 4)
	assert.Equal(t, 1.0, rows[2][3])
}

func TestStoreUnknownSheet(t *testing.T) {
	s := New()
	_, err := s.ReadAllRows(context.Background(), "ss", "nope")
	assert.ErrorIs(t, err, ErrSheetNotFound)
	assert.ErrorIs(t, s.AddRow(context.Background(), "ss", "nope", nil), ErrSheetNotFound)
}

func TestLedgerRecordAndSplit(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()

	spend, err := l.Record(ctx, core.Transaction{
		Kind: core.Spend, Date: core.NewDate(2024, 1, 5), Amount: core.Money{Cents: 2000},
		Category: "Food", Account: "Visa",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), spend.ID)

	_, err = l.Record(ctx, core.Transaction{
		Kind: core.Reimbursement, Date: core.NewDate(2024, 1, 6), Amount: core.Money{Cents: 500},
		Category: "Food", Account: "Visa",
	})
	require.NoError(t, err)

	_, err = l.Record(ctx, core.Transaction{Kind: core.Spend})
	assert.Error(t, err, "invalid transactions are rejected")

	spends, _ := l.AllSpends(ctx)
	reimbs, _ := l.AllReimbursements(ctx)
	assert.Len(t, spends, 1)
	require.Len(t, reimbs, 1)
	assert.Equal(t, int64(2), reimbs[0].ID)
}
