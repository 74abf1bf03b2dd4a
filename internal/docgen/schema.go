package docgen

import "fmt"

// Column keys used by ledger-style row templates. These are the de-facto
// wire format between the generator and each template file's field names and
// must stay in sync with the templates.
const (
	ColCodeItem     = "codeItem"
	ColBudgetAmount = "budgetAmount"
	ColOrderAmount  = "orderAmount"
	ColBalance      = "balance"
)

// Schema describes one template: its backing file, the fixed font size its
// convention uses, and the repeating-row layout if it has one.
type Schema struct {
	// TemplateFile is the file name under the configured template directory.
	TemplateFile string
	// FontSize is fixed per template convention: 9pt for dense ledger
	// tables, 11pt for single-record forms.
	FontSize float64
	// RowPrefix + MaxRows + Columns describe the repeating-row region.
	// A schema with no Columns is a header-only form.
	RowPrefix string
	MaxRows   int
	Columns   []string
}

// RowFieldName resolves the template field name for a row cell. The naming
// convention (1-based row index joined with the column key) lives here and
// nowhere else.
func (s Schema) RowFieldName(rowIndex int, column string) string {
	return fmt.Sprintf("%s%d_%s", s.RowPrefix, rowIndex, column)
}

// Registry maps template IDs to their schemas.
type Registry map[string]Schema

// DefaultRegistry returns the schemas for the document set the application
// generates.
func DefaultRegistry() Registry {
	return Registry{
		"budget-ledger": {
			TemplateFile: "工事実行予算台帳入力欄あり.pdf",
			FontSize:     9,
			RowPrefix:    "row",
			MaxRows:      20,
			Columns:      []string{ColCodeItem, ColBudgetAmount, ColOrderAmount, ColBalance},
		},
		"budget-form": {
			TemplateFile: "実行予算書.pdf",
			FontSize:     11,
		},
		"order-contract": {
			TemplateFile: "注文請書.pdf",
			FontSize:     11,
			RowPrefix:    "row",
			MaxRows:      10,
			Columns:      []string{ColCodeItem, ColBudgetAmount, ColOrderAmount, ColBalance},
		},
		"payment-slip": {
			TemplateFile: "支払伝票.pdf",
			FontSize:     11,
		},
	}
}
