package templates

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	// Brand is the store name shown in headers and subjects.
	Brand = "Click Mart"

	// DefaultFrontendURL is used when no storefront URL is configured.
	DefaultFrontendURL = "http://localhost:3000"

	currencySymbol = "Rs"
)

// Money formats an amount in rupees with two decimals and digit grouping,
// e.g. "Rs 1,250.00".
func Money(amount float64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%s %v", currencySymbol,
		number.Decimal(amount, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// link joins a storefront path onto base, defaulting base when empty.
func link(base, path string) string {
	if base == "" {
		base = DefaultFrontendURL
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
