package ledger

// OrderHeader identifies one subcontract order source.
type OrderHeader struct {
	OrderNo   string `json:"orderNo"`
	OrderDate string `json:"orderDate"`
	Vendor    string `json:"vendor"`
}

// OrderRow is one line item of a subcontract order. All amounts are kept as
// the user entered them; parsing happens at aggregation time.
type OrderRow struct {
	No             string `json:"no"`
	WorkTypeCode   string `json:"workTypeCode"`
	WorkType       string `json:"workType"`
	ExecBudget     string `json:"execBudget"`
	ContractAmount string `json:"contractAmount"`
}

// OrderSource is one order collection feeding the budget ledger.
type OrderSource struct {
	Header OrderHeader `json:"header"`
	Rows   []OrderRow  `json:"rows"`
}

// LedgerRow is one flattened budget-ledger line, carrying its originating
// order identity for the approval columns.
type LedgerRow struct {
	WorkTypeCode string `json:"workTypeCode"`
	WorkType     string `json:"workType"`
	BudgetAmount string `json:"budgetAmount"`
	ApprovalNo   string `json:"approvalNo"`
	ApprovalDate string `json:"approvalDate"`
	OrderVendor  string `json:"orderVendor"`
	OrderAmount  string `json:"orderAmount"`
}

// Summary is the aggregated ledger: the flattened row sequence plus the four
// derived totals. Negative balances are preserved as-is.
type Summary struct {
	Rows          []LedgerRow `json:"rows"`
	TotalBudget   float64     `json:"totalBudget"`
	TotalOrdered  float64     `json:"totalOrdered"`
	Remaining     float64     `json:"remaining"`
	PlannedProfit float64     `json:"plannedProfit"`
}
