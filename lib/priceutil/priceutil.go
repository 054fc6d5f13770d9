package priceutil

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrNoPrice = fmt.Errorf("no price found in text")

func stripNonPrice(text string) string {
	var out strings.Builder
	for _, c := range text {
		if (c >= '0' && c <= '9') || c == '.' {
			out.WriteRune(c)
		}
	}
	return out.String()
}

// ExtractPrice pulls a numeric price out of raw page text like
// "$1,299.99" or "Now: 79.99 USD". Only the last dot counts as the
// decimal marker, any dot before it is treated as a thousands
// separator.
func ExtractPrice(text string) (decimal.Decimal, error) {
	cleaned := stripNonPrice(text)
	if !strings.ContainsAny(cleaned, "0123456789") {
		return decimal.Decimal{}, ErrNoPrice
	}

	segments := strings.Split(cleaned, ".")
	normalized := segments[0]
	if len(segments) > 1 {
		normalized = strings.Join(segments[:len(segments)-1], "") +
			"." + segments[len(segments)-1]
	}

	price, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse price %q: %w", normalized, err)
	}
	return price, nil
}
