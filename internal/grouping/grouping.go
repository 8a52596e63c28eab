// Package grouping buckets transactions by month and by a grouping element
// (category, subcategory or account).
package grouping

import (
	"time"

	"monthly/internal/core"
)

// GroupedAmounts maps a month key to the accumulated amount of every
// grouping element seen in that month.
type GroupedAmounts map[string]map[string]core.Money

// Amount returns the amount for element in month, zero when absent.
func (g GroupedAmounts) Amount(month, element string) core.Money {
	return g[month][element]
}

func (g GroupedAmounts) add(month, element string, m core.Money) {
	byElement, ok := g[month]
	if !ok {
		byElement = map[string]core.Money{}
		g[month] = byElement
	}
	byElement[element] = byElement[element].Add(m)
}

// Subtract returns g minus other, cell by cell.
func (g GroupedAmounts) Subtract(other GroupedAmounts) GroupedAmounts {
	out := GroupedAmounts{}
	for month, byElement := range g {
		for element, m := range byElement {
			out.add(month, element, m)
		}
	}
	for month, byElement := range other {
		for element, m := range byElement {
			out.add(month, element, m.Neg())
		}
	}
	return out
}

// KeyFunc extracts the grouping element of a transaction.
type KeyFunc func(core.Transaction) string

// Filter selects the transactions that take part in a grouping. A nil
// Filter keeps everything.
type Filter func(core.Transaction) bool

func Category(tx core.Transaction) string    { return tx.Category }
func SubCategory(tx core.Transaction) string { return tx.SubCategory }
func Account(tx core.Transaction) string     { return tx.Account }

// ByMonth sums transaction amounts per month key and element. Only the
// given months and elements are kept; a nil elements slice keeps all.
func ByMonth(txs []core.Transaction, months []string, g core.Granularity, filter Filter, key KeyFunc, elements []string) GroupedAmounts {
	wantMonth := toSet(months)
	wantElement := toSet(elements)
	out := GroupedAmounts{}
	for _, tx := range txs {
		if filter != nil && !filter(tx) {
			continue
		}
		month := core.MonthKey(tx.Date.Time, g)
		if _, ok := wantMonth[month]; !ok {
			continue
		}
		element := key(tx)
		if elements != nil {
			if _, ok := wantElement[element]; !ok {
				continue
			}
		}
		out.add(month, element, tx.Amount)
	}
	return out
}

// ByMonthAndCategory groups by category. A non-empty account restricts
// the grouping to that account.
func ByMonthAndCategory(txs []core.Transaction, months []string, g core.Granularity, account string, categories []string) GroupedAmounts {
	var filter Filter
	if account != "" {
		filter = func(tx core.Transaction) bool { return tx.Account == account }
	}
	return ByMonth(txs, months, g, filter, Category, categories)
}

// ByMonthAndSubCategory groups the transactions of category by subcategory.
func ByMonthAndSubCategory(txs []core.Transaction, months []string, g core.Granularity, category string, subCategories []string) GroupedAmounts {
	filter := func(tx core.Transaction) bool { return tx.Category == category }
	return ByMonth(txs, months, g, filter, SubCategory, subCategories)
}

// ByMonthAndAccount groups by account.
func ByMonthAndAccount(txs []core.Transaction, months []string, g core.Granularity, accounts []string) GroupedAmounts {
	return ByMonth(txs, months, g, nil, Account, accounts)
}

// Months returns the distinct month keys of dates in first-seen order.
func Months(dates []time.Time, g core.Granularity) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		k := core.MonthKey(d, g)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func toSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, v := range in {
		out[v] = struct{}{}
	}
	return out
}
