// Package ledger flattens subcontract order collections into the budget
// ledger and computes its derived totals. Aggregation is pure; callers may
// run it from any number of goroutines.
package ledger

import (
	"fmt"

	"github.com/syawaryo/kawasetu-copy-sub000/internal/jptext"
)

// isBlank reports whether a row carries no significant data. Rows where
// every significant column is empty never reach the field-mapping stage.
func isBlank(r OrderRow) bool {
	return r.WorkTypeCode == "" && r.WorkType == "" && r.ExecBudget == "" && r.ContractAmount == ""
}

// Aggregate flattens the given order sources into one ledger row sequence,
// preserving source order and row order within each source, and computes the
// four ledger totals. plannedOrder and contractAmount are the externally
// supplied header scalars; blank or unparseable amounts count as zero.
// Zero sources yields an empty sequence and zero totals.
func Aggregate(sources []OrderSource, plannedOrder, contractAmount string) Summary {
	var rows []LedgerRow
	var totalBudget, totalOrdered float64

	for i, src := range sources {
		approvalNo := src.Header.OrderNo
		if approvalNo == "" {
			approvalNo = fmt.Sprintf("発注%d", i+1)
		}
		for _, r := range src.Rows {
			if isBlank(r) {
				continue
			}
			rows = append(rows, LedgerRow{
				WorkTypeCode: r.WorkTypeCode,
				WorkType:     r.WorkType,
				BudgetAmount: r.ExecBudget,
				ApprovalNo:   approvalNo,
				ApprovalDate: src.Header.OrderDate,
				OrderVendor:  src.Header.Vendor,
				OrderAmount:  r.ContractAmount,
			})
			totalBudget += jptext.ParseAmount(r.ExecBudget)
			totalOrdered += jptext.ParseAmount(r.ContractAmount)
		}
	}

	planned := jptext.ParseAmount(plannedOrder)
	contract := jptext.ParseAmount(contractAmount)

	return Summary{
		Rows:          rows,
		TotalBudget:   totalBudget,
		TotalOrdered:  totalOrdered,
		Remaining:     totalBudget - totalOrdered - planned,
		PlannedProfit: contract - totalOrdered - planned,
	}
}

// RowBalance computes budget minus ordered for a single ledger row. It
// returns ok=false when either side is absent or unparseable, so callers can
// leave the balance cell empty instead of implying a false zero.
func RowBalance(r LedgerRow) (float64, bool) {
	budget, ok := jptext.ParseAmountStrict(r.BudgetAmount)
	if !ok {
		return 0, false
	}
	ordered, ok := jptext.ParseAmountStrict(r.OrderAmount)
	if !ok {
		return 0, false
	}
	return budget - ordered, true
}
