package core

import "github.com/shopspring/decimal"

// Balance is the income/outcome summary over a set of transactions.
type Balance struct {
	Income  decimal.Decimal `json:"income"`
	Outcome decimal.Decimal `json:"outcome"`
	Total   decimal.Decimal `json:"total"`
}

// ComputeBalance folds the transactions into a Balance in one pass.
func ComputeBalance(transactions []Transaction) Balance {
	b := Balance{Income: decimal.Zero, Outcome: decimal.Zero, Total: decimal.Zero}
	for _, t := range transactions {
		b = b.Apply(t)
	}
	return b
}

// Apply returns the balance after accounting for t. Anything that is not
// income counts as outcome.
func (b Balance) Apply(t Transaction) Balance {
	if t.Type == Income {
		b.Income = b.Income.Add(t.Value)
	} else {
		b.Outcome = b.Outcome.Add(t.Value)
	}
	b.Total = b.Income.Sub(b.Outcome)
	return b
}

// Covers reports whether an outcome of value v fits within the total.
func (b Balance) Covers(v decimal.Decimal) bool {
	return !v.GreaterThan(b.Total)
}
