package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValidate(t *testing.T) {
	assert.NoError(t, NewDate(2025, 1, 1).Validate())
	assert.NoError(t, NewDate(2025, 12, 31).Validate())
	assert.ErrorIs(t, Date{Time: time.Time{}}.Validate(), ErrZeroDate)
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Kind:     Spend,
		Date:     NewDate(2025, 1, 1),
		Amount:   Money{Cents: 100},
		Category: "Food",
		Account:  "Visa",
	}
	require.NoError(t, good.Validate())

	bads := []struct {
		name string
		tx   Transaction
		want error
	}{
		{"unknown kind", Transaction{Kind: "gift", Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}, Category: "c", Account: "a"}, ErrInvalidKind},
		{"zero date", Transaction{Kind: Spend, Amount: Money{Cents: 1}, Category: "c", Account: "a"}, ErrZeroDate},
		{"zero amount", Transaction{Kind: Spend, Date: NewDate(2025, 1, 1), Category: "c", Account: "a"}, ErrInvalidAmount},
		{"blank category", Transaction{Kind: Spend, Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}, Category: " ", Account: "a"}, ErrEmptyCategory},
		{"missing account", Transaction{Kind: Reimbursement, Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}, Category: "c"}, ErrEmptyAccount},
	}
	for _, tc := range bads {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.tx.Validate(), tc.want)
		})
	}
}

func TestTransactionSigned(t *testing.T) {
	spend := Transaction{Kind: Spend, Amount: Money{Cents: 250}}
	assert.Equal(t, int64(250), spend.Signed().Cents)

	reimb := Transaction{Kind: Reimbursement, Amount: Money{Cents: 250}}
	assert.Equal(t, int64(-250), reimb.Signed().Cents)
}

func TestSplitByKind(t *testing.T) {
	txs := []Transaction{
		{ID: 1, Kind: Spend},
		{ID: 2, Kind: Reimbursement},
		{ID: 3, Kind: Spend},
	}
	spends, reimbs := SplitByKind(txs)

	require.Len(t, spends, 2)
	assert.Equal(t, int64(1), spends[0].ID)
	assert.Equal(t, int64(3), spends[1].ID)
	require.Len(t, reimbs, 1)
	assert.Equal(t, int64(2), reimbs[0].ID)
}
