package ledger

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSumPayments(t *testing.T) {
	tests := []struct {
		name     string
		rows     []PayRow
		assessed int64
		tax      int64
		pay      int64
	}{
		{
			name:     "empty_slip",
			rows:     nil,
			assessed: 0, tax: 0, pay: 0,
		},
		{
			name: "explicit_tax",
			rows: []PayRow{
				{AssessedAmount: "10,000", TaxAmount: "1,000"},
				{AssessedAmount: "5,000", TaxAmount: "500"},
			},
			assessed: 15000, tax: 1500, pay: 16500,
		},
		{
			name: "defaulted_tax_rate",
			rows: []PayRow{
				{AssessedAmount: "10,001"},
			},
			assessed: 10001, tax: 1000, pay: 11001,
		},
		{
			name: "blank_rows_skipped",
			rows: []PayRow{
				{AssessedAmount: ""},
				{AssessedAmount: "3,000", TaxAmount: "300"},
			},
			assessed: 3000, tax: 300, pay: 3300,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SumPayments(tt.rows)
			assert.True(t, got.Assessed.Equal(decimal.NewFromInt(tt.assessed)), "assessed = %s", got.Assessed)
			assert.True(t, got.Tax.Equal(decimal.NewFromInt(tt.tax)), "tax = %s", got.Tax)
			assert.True(t, got.Pay.Equal(decimal.NewFromInt(tt.pay)), "pay = %s", got.Pay)
		})
	}
}

func TestNewPaymentHeader(t *testing.T) {
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	h := NewPaymentHeader(now)

	assert.True(t, strings.HasPrefix(h.SlipNo, "202603"))
	assert.Len(t, h.SlipNo, 10)
	assert.Equal(t, "2026-03-31", h.SlipDate)
	assert.Equal(t, "2026/04/20 現金 100%", h.PayTerms)
	assert.Equal(t, "定時", h.PaymentType)
}

func TestNewPaymentHeader_SlipNoAdvances(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	a := NewPaymentHeader(now)
	b := NewPaymentHeader(now)
	assert.NotEqual(t, a.SlipNo, b.SlipNo)
}
