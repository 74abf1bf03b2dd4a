// Package jptext provides width normalization and amount parsing/formatting
// for Japanese form input. All functions are pure and safe for concurrent use.
package jptext

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Offset between the full-width forms block (U+FF01-U+FF5E) and ASCII.
const fullWidthOffset = 0xFEE0

const ideographicSpace = '　'

var jpPrinter = message.NewPrinter(language.Japanese)

// ToHalfWidth converts full-width Latin letters, digits and punctuation to
// their half-width equivalents and the ideographic space to a regular space.
// All other runes pass through unchanged. The function is idempotent.
func ToHalfWidth(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '！' && r <= '～':
			b.WriteRune(r - fullWidthOffset)
		case r == ideographicSpace:
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseAmount parses a user-entered amount string. Grouping separators and
// surrounding whitespace are stripped and full-width digits are accepted.
// Unparseable input yields 0 rather than an error: ledger cells are routinely
// blank or mid-edit, and totals must stay displayable. Callers that need to
// tell "absent" from "zero" must inspect the raw string before calling.
func ParseAmount(s string) float64 {
	n, _ := ParseAmountStrict(s)
	return n
}

// ParseAmountStrict is ParseAmount with an explicit ok result, for the few
// call sites that must not render a false zero (e.g. per-row balances).
func ParseAmountStrict(s string) (float64, bool) {
	cleaned := strings.NewReplacer(",", "", " ", "", "\t", "").Replace(ToHalfWidth(s))
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatAmount renders an amount with thousands grouping and no decimal
// places. Amounts are whole currency units throughout the system.
func FormatAmount(n float64) string {
	return jpPrinter.Sprintf("%d", int64(n))
}
