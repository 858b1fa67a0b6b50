package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func tx(typ TransactionType, v int64) Transaction {
	return Transaction{Type: typ, Value: decimal.NewFromInt(v)}
}

func TestComputeBalanceEmpty(t *testing.T) {
	b := ComputeBalance(nil)
	assert.True(t, b.Income.IsZero())
	assert.True(t, b.Outcome.IsZero())
	assert.True(t, b.Total.IsZero())
}

func TestComputeBalance(t *testing.T) {
	cases := []struct {
		name                   string
		in                     []Transaction
		income, outcome, total int64
	}{
		{"income only", []Transaction{tx(Income, 1000), tx(Income, 50)}, 1050, 0, 1050},
		{"outcome only", []Transaction{tx(Outcome, 30)}, 0, 30, -30},
		{"mixed", []Transaction{tx(Income, 1000), tx(Outcome, 500), tx(Outcome, 100)}, 1000, 600, 400},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := ComputeBalance(tc.in)
			assert.True(t, b.Income.Equal(decimal.NewFromInt(tc.income)), "income=%s", b.Income)
			assert.True(t, b.Outcome.Equal(decimal.NewFromInt(tc.outcome)), "outcome=%s", b.Outcome)
			assert.True(t, b.Total.Equal(decimal.NewFromInt(tc.total)), "total=%s", b.Total)
			assert.True(t, b.Total.Equal(b.Income.Sub(b.Outcome)))
			assert.False(t, b.Income.IsNegative())
			assert.False(t, b.Outcome.IsNegative())
		})
	}
}

func TestComputeBalanceDecimalPrecision(t *testing.T) {
	in := []Transaction{
		{Type: Income, Value: decimal.RequireFromString("0.1")},
		{Type: Income, Value: decimal.RequireFromString("0.2")},
	}
	assert.Equal(t, "0.3", ComputeBalance(in).Total.String())
}

func TestBalanceCovers(t *testing.T) {
	b := ComputeBalance([]Transaction{tx(Income, 1000)})
	assert.True(t, b.Covers(decimal.NewFromInt(500)))
	assert.True(t, b.Covers(decimal.NewFromInt(1000)))
	assert.False(t, b.Covers(decimal.NewFromInt(1001)))

	b = b.Apply(tx(Outcome, 500))
	assert.Equal(t, "500", b.Total.String())
	assert.False(t, b.Covers(decimal.NewFromInt(600)))
}
