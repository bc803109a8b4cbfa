package bot

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var separators = strings.NewReplacer(".", "", ",", "", " ", "")

// maxAmountDigits is the integer precision of the amount columns.
const maxAmountDigits = 18

// ParseAmount strips grouping separators (periods, commas, spaces) before
// parsing, so "50.000", "50,000" and "50 000" all read as 50000. A decimal
// point cannot be expressed: "12.5" reads as 125. Zero and negative values are
// rejected, as is anything but digits once the separators are gone.
func ParseAmount(text string) (decimal.Decimal, bool) {
	cleaned := separators.Replace(strings.TrimSpace(text))
	if cleaned == "" || len(cleaned) > maxAmountDigits {
		return decimal.Zero, false
	}
	for i := 0; i < len(cleaned); i++ {
		if cleaned[i] < '0' || cleaned[i] > '9' {
			return decimal.Zero, false
		}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// FormatCurrency renders whole rupiah with period thousands separators,
// e.g. "Rp 1.500.000".
func FormatCurrency(d decimal.Decimal) string {
	r := d.RoundBank(0)
	sign := ""
	if r.IsNegative() {
		sign = "-"
		r = r.Neg()
	}
	digits := r.String()

	var b strings.Builder
	b.WriteString("Rp ")
	b.WriteString(sign)
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	return b.String()
}

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

func monthName(t time.Time) string {
	return monthNames[t.Month()-1]
}
