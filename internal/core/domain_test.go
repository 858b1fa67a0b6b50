package core

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"income", Income, true},
		{" Outcome ", Outcome, true},
		{"INCOME", Income, true},
		{"expense", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got)
		} else {
			assert.ErrorIs(t, err, ErrInvalidType, tc.in)
		}
	}
}

func TestNewTransactionValidate(t *testing.T) {
	good := NewTransaction{Title: "Salary", Type: Income, Value: decimal.NewFromInt(1000), Category: "Job"}
	require.NoError(t, good.Validate())

	zero := good
	zero.Value = decimal.Zero
	assert.NoError(t, zero.Validate(), "zero value is allowed")

	bads := []struct {
		mutate func(*NewTransaction)
		err    error
	}{
		{func(n *NewTransaction) { n.Title = "  " }, ErrEmptyTitle},
		{func(n *NewTransaction) { n.Type = "transfer" }, ErrInvalidType},
		{func(n *NewTransaction) { n.Value = decimal.NewFromInt(-1) }, ErrInvalidValue},
		{func(n *NewTransaction) { n.Category = "" }, ErrEmptyCategory},
	}
	for i, b := range bads {
		n := good
		b.mutate(&n)
		assert.ErrorIs(t, n.Validate(), b.err, "case %d", i)
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(" 12.50 ")
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("12.5")))

	v, err = ParseValue("1e3")
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.NewFromInt(1000)))

	for _, in := range []string{"", "abc", "12,50", "-3"} {
		_, err := ParseValue(in)
		assert.ErrorIs(t, err, ErrInvalidValue, in)
	}
}

func TestTransactionJSONValueIsNumber(t *testing.T) {
	tx := Transaction{ID: "1", Title: "Rent", Type: Outcome, Value: decimal.RequireFromString("450.5")}
	raw, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"value":450.5`)
	assert.NotContains(t, string(raw), `"category":`)

	var in NewTransaction
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","type":"income","value":12.25,"category":"c"}`), &in))
	assert.True(t, in.Value.Equal(decimal.RequireFromString("12.25")))
}

func TestNewTransactionValidateTitleLengthCountsCharacters(t *testing.T) {
	tx := NewTransaction{Type: Outcome, Value: decimal.NewFromInt(3), Category: "Café"}

	tx.Title = strings.Repeat("é", 200)
	assert.NoError(t, tx.Validate(), "200 two-byte characters fit")

	tx.Title = strings.Repeat("é", 201)
	assert.ErrorIs(t, tx.Validate(), ErrTitleTooLong)

	tx.Title = strings.Repeat("a", 201)
	assert.ErrorIs(t, tx.Validate(), ErrTitleTooLong)
}
