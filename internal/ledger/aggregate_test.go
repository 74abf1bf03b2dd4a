package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate_ZeroSources(t *testing.T) {
	got := Aggregate(nil, "", "")

	assert.Empty(t, got.Rows)
	assert.Zero(t, got.TotalBudget)
	assert.Zero(t, got.TotalOrdered)
	assert.Zero(t, got.Remaining)
	assert.Zero(t, got.PlannedProfit)
}

func TestAggregate_PreservesOrder(t *testing.T) {
	sources := []OrderSource{
		{
			Header: OrderHeader{OrderNo: "A-1", Vendor: "電設工業"},
			Rows: []OrderRow{
				{WorkType: "配線", ExecBudget: "100", ContractAmount: "80"},
				{WorkType: "分電盤", ExecBudget: "200", ContractAmount: "150"},
			},
		},
		{
			Header: OrderHeader{OrderNo: "B-1", Vendor: "空調設備"},
			Rows: []OrderRow{
				{WorkType: "ダクト", ExecBudget: "300", ContractAmount: "250"},
			},
		},
	}

	got := Aggregate(sources, "", "")

	assert.Len(t, got.Rows, 3)
	assert.Equal(t, "配線", got.Rows[0].WorkType)
	assert.Equal(t, "分電盤", got.Rows[1].WorkType)
	assert.Equal(t, "ダクト", got.Rows[2].WorkType)
	assert.Equal(t, "A-1", got.Rows[0].ApprovalNo)
	assert.Equal(t, "空調設備", got.Rows[2].OrderVendor)
}

func TestAggregate_FiltersBlankRows(t *testing.T) {
	sources := []OrderSource{
		{
			Rows: []OrderRow{
				{WorkType: "配線", ExecBudget: "100"},
				{}, // every significant column empty
				{No: "003"}, // row number alone is not significant
				{ContractAmount: "50"},
			},
		},
	}

	got := Aggregate(sources, "", "")

	assert.Len(t, got.Rows, 2)
	assert.Equal(t, "配線", got.Rows[0].WorkType)
	assert.Equal(t, "50", got.Rows[1].OrderAmount)
}

func TestAggregate_Totals(t *testing.T) {
	sources := []OrderSource{
		{Rows: []OrderRow{{WorkType: "a", ExecBudget: "1000", ContractAmount: "600"}}},
		{Rows: []OrderRow{{WorkType: "b", ExecBudget: "500", ContractAmount: "500"}}},
		{},
	}

	got := Aggregate(sources, "200", "2000")

	assert.Equal(t, float64(1500), got.TotalBudget)
	assert.Equal(t, float64(1100), got.TotalOrdered)
	assert.Equal(t, float64(200), got.Remaining)
	assert.Equal(t, float64(700), got.PlannedProfit)
}

func TestAggregate_NegativeBalancePreserved(t *testing.T) {
	sources := []OrderSource{
		{Rows: []OrderRow{{WorkType: "a", ExecBudget: "100", ContractAmount: "400"}}},
	}

	got := Aggregate(sources, "50", "0")

	assert.Equal(t, float64(-350), got.Remaining)
	assert.Equal(t, float64(-450), got.PlannedProfit)
}

func TestAggregate_DefaultApprovalNo(t *testing.T) {
	sources := []OrderSource{
		{Rows: []OrderRow{{WorkType: "a", ExecBudget: "1"}}},
		{Rows: []OrderRow{{WorkType: "b", ExecBudget: "2"}}},
	}

	got := Aggregate(sources, "", "")

	assert.Equal(t, "発注1", got.Rows[0].ApprovalNo)
	assert.Equal(t, "発注2", got.Rows[1].ApprovalNo)
}

func TestRowBalance(t *testing.T) {
	tests := []struct {
		name     string
		row      LedgerRow
		expected float64
		ok       bool
	}{
		{
			name:     "both_parseable",
			row:      LedgerRow{BudgetAmount: "1,000", OrderAmount: "600"},
			expected: 400,
			ok:       true,
		},
		{
			name: "budget_blank",
			row:  LedgerRow{BudgetAmount: "", OrderAmount: "600"},
			ok:   false,
		},
		{
			name: "order_unparseable",
			row:  LedgerRow{BudgetAmount: "1000", OrderAmount: "未定"},
			ok:   false,
		},
		{
			name:     "negative_balance",
			row:      LedgerRow{BudgetAmount: "100", OrderAmount: "400"},
			expected: -300,
			ok:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RowBalance(tt.row)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}
