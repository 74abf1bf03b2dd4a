// Package excel fills the budget-sheet workbook template with project
// metadata and aggregated ledger rows.
package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/syawaryo/kawasetu-copy-sub000/internal/jptext"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/ledger"
)

// BudgetSheetHeader is the project block of the budget sheet. Cell
// addresses follow the fixed workbook layout.
type BudgetSheetHeader struct {
	ProjectNo         string `json:"projectNo"`
	ProjectName       string `json:"projectName"`
	StartDate         string `json:"startDate"`
	EndDate           string `json:"endDate"`
	Term              string `json:"term"`
	OrderForm         string `json:"orderForm"`
	Client            string `json:"client"`
	Owner             string `json:"owner"`
	DesignOffice      string `json:"designOffice"`
	GeneralContractor string `json:"generalContractor"`
	BuildingUse       string `json:"buildingUse"`
	AmountPerTerm     string `json:"amountPerTerm"`
	Electrical        string `json:"electrical"`
	HVAC              string `json:"hvac"`
	Plumbing          string `json:"plumbing"`
}

// headerCells maps the fixed template cells to header values.
func headerCells(h BudgetSheetHeader) map[string]string {
	return map[string]string{
		"A14":  h.ProjectNo,
		"M14":  h.ProjectName,
		"AI14": h.StartDate,
		"AI15": h.EndDate,
		"AQ14": h.Term,
		"A17":  h.OrderForm,
		"L17":  h.Client,
		"Y17":  h.Owner,
		"AF17": h.DesignOffice,
		"AT17": h.GeneralContractor,
		"A20":  h.BuildingUse,
		"N20":  h.AmountPerTerm,
		"Y20":  h.Electrical,
		"AF20": h.HVAC,
		"AM20": h.Plumbing,
	}
}

// Row region of the ledger detail table in the template.
const (
	detailStartRow = 24
	colCode        = "A"
	colItem        = "E"
	colBudget      = "S"
	colOrdered     = "AA"
	colBalance     = "AI"
)

// Exporter fills the budget-sheet template workbook.
type Exporter struct {
	templatePath string
}

// NewExporter creates an exporter over the given workbook template.
func NewExporter(templatePath string) *Exporter {
	return &Exporter{templatePath: templatePath}
}

// Export writes the header block and ledger rows into the template and
// returns the resulting workbook bytes. Blank header values leave the
// template cell untouched.
func (e *Exporter) Export(header BudgetSheetHeader, rows []ledger.LedgerRow) ([]byte, error) {
	wb, err := excelize.OpenFile(e.templatePath)
	if err != nil {
		return nil, fmt.Errorf("open workbook template %q: %w", e.templatePath, err)
	}
	defer wb.Close()

	sheet := wb.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook template %q has no sheets", e.templatePath)
	}

	for cell, value := range headerCells(header) {
		if value == "" {
			continue
		}
		if err := wb.SetCellValue(sheet, cell, value); err != nil {
			return nil, fmt.Errorf("set cell %s: %w", cell, err)
		}
	}

	for i, row := range rows {
		if err := writeDetailRow(wb, sheet, detailStartRow+i, row); err != nil {
			return nil, err
		}
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeDetailRow(wb *excelize.File, sheet string, rowNum int, row ledger.LedgerRow) error {
	cells := map[string]any{
		colCode + fmt.Sprint(rowNum): jptext.ToHalfWidth(row.WorkTypeCode),
		colItem + fmt.Sprint(rowNum): row.WorkType,
	}

	if budget, ok := jptext.ParseAmountStrict(row.BudgetAmount); ok {
		cells[colBudget+fmt.Sprint(rowNum)] = budget
	}
	if ordered, ok := jptext.ParseAmountStrict(row.OrderAmount); ok {
		cells[colOrdered+fmt.Sprint(rowNum)] = ordered
	}
	if balance, ok := ledger.RowBalance(row); ok {
		cells[colBalance+fmt.Sprint(rowNum)] = balance
	}

	for cell, value := range cells {
		if err := wb.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
