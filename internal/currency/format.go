// Package currency formats minor-unit amounts for display.
package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const DefaultLocale = "es-ES"

// LocaleFor picks the display locale used on receipts when none is configured.
func LocaleFor(code string) string {
	if strings.EqualFold(code, "USD") {
		return "en-US"
	}
	return DefaultLocale
}

// Format renders cents (minor units) of the ISO currency code for the given
// BCP 47 locale, e.g. Format(13000, "USD", "en-US") == "$130.00" and
// Format(5000, "EUR", "es-ES") == "50,00 €".
func Format(cents int64, code, locale string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return "", fmt.Errorf("parse currency %q: %w", code, err)
	}
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return "", fmt.Errorf("parse locale %q: %w", locale, err)
	}

	p := message.NewPrinter(tag)
	scale, _ := currency.Standard.Rounding(unit)
	amount := formatAmount(p, decimal.New(cents, int32(-scale)), scale)
	symbol := p.Sprint(currency.NarrowSymbol(unit))

	sign := ""
	if cents < 0 {
		sign = "-"
	}
	base, _ := tag.Base()
	switch base.String() {
	case "en":
		return sign + symbol + amount, nil
	default:
		return sign + amount + " " + symbol, nil
	}
}

// formatAmount renders the absolute value of amount with scale fraction
// digits. Grouping and the decimal separator follow the printer's locale;
// the digits come from the decimal so large amounts stay exact.
func formatAmount(p *message.Printer, amount decimal.Decimal, scale int) string {
	abs := amount.Abs()
	grouped := p.Sprint(number.Decimal(abs.Truncate(0).BigInt().Uint64()))
	if scale == 0 {
		return grouped
	}
	_, frac, _ := strings.Cut(abs.StringFixed(int32(scale)), ".")
	separator := strings.Trim(p.Sprint(number.Decimal(1.5, number.Scale(1))), "15")
	return grouped + separator + frac
}

// MustFormat is Format for values already validated upstream; on error it
// falls back to "<amount> <CODE>".
func MustFormat(cents int64, code, locale string) string {
	s, err := Format(cents, code, locale)
	if err != nil {
		return decimal.New(cents, -2).StringFixed(2) + " " + strings.ToUpper(code)
	}
	return s
}
