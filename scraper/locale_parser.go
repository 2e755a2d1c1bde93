package scraper

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// first digits[.digits] run of an already cleaned string
	plainNumberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

	// a price token in raw text: thousands groups separated by (non-breaking) spaces, optional decimals
	priceTokenPattern = regexp.MustCompile(`\d+(?:[ \x{00a0}\x{202f}]\d{3})*(?:[.,]\d+)?`)

	spaceReplacer = strings.NewReplacer("\u00a0", "", "\u202f", "", " ", "", "\t", "", "\n", "")
)

// omnibusPeriodDays is the "30" in "30 dni", never a price.
var omnibusPeriodDays = decimal.NewFromInt(30)

// NormalizeNumber strips thousands spaces and turns comma decimals into periods.
func NormalizeNumber(text string) string {
	return strings.ReplaceAll(spaceReplacer.Replace(text), ",", ".")
}

// ParsePrice reads the first price from free text in the Polish locale,
// e.g. "1 499,00 zł" -> 1499.00 and "2,99" -> 2.99.
func ParsePrice(text string) (decimal.Decimal, bool) {
	match := plainNumberPattern.FindString(NormalizeNumber(text))
	if match == "" {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// ParseOmnibusPrice reads the 30-day low from a disclosure banner. The banner usually
// contains "30 dni" as well, so numeric tokens equal to 30 are skipped.
func ParseOmnibusPrice(text string) (decimal.Decimal, bool) {
	for _, token := range priceTokenPattern.FindAllString(text, -1) {
		value, ok := ParsePrice(token)
		if !ok {
			continue
		}
		if value.Equal(omnibusPeriodDays) {
			continue
		}
		return value, true
	}
	return decimal.Zero, false
}
