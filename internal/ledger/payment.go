package ledger

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/syawaryo/kawasetu-copy-sub000/internal/jptext"
)

// PayRow is one line of a payment slip.
type PayRow struct {
	No               string `json:"no"`
	AccountTitle     string `json:"accountTitle"`
	Department       string `json:"department"`
	Partner          string `json:"partner"`
	Project          string `json:"project"`
	TaxKbn           string `json:"taxKbn"`
	AssessedAmount   string `json:"assessedAmount"`
	TaxAmount        string `json:"taxAmount"`
	AdvanceTaxRate   string `json:"advanceTaxRate"`
	AdvanceTaxAmount string `json:"advanceTaxAmount"`
	BusinessRegNo    string `json:"businessRegNo"`
	Summary          string `json:"summary"`
}

// PaymentHeader is the non-repeating metadata of a payment slip.
type PaymentHeader struct {
	ProjectName string `json:"projectName"`
	SlipNo      string `json:"slipNo"`
	SlipDate    string `json:"slipDate"`
	PaymentType string `json:"paymentType"`
	Payee       string `json:"payee"`
	PayDept     string `json:"payDept"`
	PayTerms    string `json:"payTerms"`
	PayeeNote   string `json:"payeeNote"`
}

// PaymentTotals holds the assessed/tax/pay sums of a slip.
type PaymentTotals struct {
	Assessed decimal.Decimal `json:"assessed"`
	Tax      decimal.Decimal `json:"tax"`
	Pay      decimal.Decimal `json:"pay"`
}

// ConsumptionTaxRate is the standard 10% consumption tax rate applied when a
// row carries an assessed amount but no explicit tax amount.
var ConsumptionTaxRate = decimal.New(10, -2)

var slipCounter atomic.Int64

// SumPayments totals the assessed and tax columns of a slip. Rows with an
// assessed amount but a blank tax column are taxed at the standard rate,
// truncated to whole units.
func SumPayments(rows []PayRow) PaymentTotals {
	assessed := decimal.Zero
	tax := decimal.Zero

	for _, r := range rows {
		a, ok := jptext.ParseAmountStrict(r.AssessedAmount)
		if !ok {
			continue
		}
		d := decimal.NewFromFloat(a)
		assessed = assessed.Add(d)

		if t, ok := jptext.ParseAmountStrict(r.TaxAmount); ok {
			tax = tax.Add(decimal.NewFromFloat(t))
		} else {
			tax = tax.Add(d.Mul(ConsumptionTaxRate).Truncate(0))
		}
	}

	return PaymentTotals{
		Assessed: assessed,
		Tax:      tax,
		Pay:      assessed.Add(tax),
	}
}

// NewPaymentHeader seeds a payment slip header: a YYYYMM-prefixed slip
// number, the end of the current month as slip date, and payment terms due
// the 20th of the next month.
func NewPaymentHeader(now time.Time) PaymentHeader {
	return PaymentHeader{
		SlipNo:      generateSlipNo(now),
		SlipDate:    endOfMonth(now).Format("2006-01-02"),
		PaymentType: "定時",
		PayDept:     "本社支払",
		PayTerms:    fmt.Sprintf("%s 現金 100%%", nextMonth20th(now).Format("2006/01/02")),
	}
}

func generateSlipNo(now time.Time) string {
	return fmt.Sprintf("%s%04d", now.Format("200601"), slipCounter.Add(1))
}

func endOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location())
}

func nextMonth20th(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 20, 0, 0, 0, 0, now.Location())
}
