// Package pricing holds the price arithmetic shown on the product and
// comparison screens.
package pricing

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"

	"github.com/dukerupert/sokone/internal/model"
)

// TaxRate is the consumption tax applied to display prices.
var TaxRate = decimal.RequireFromString("1.1")

// MaxPrice is the largest price whose tax-inclusive value fits in an int64.
const MaxPrice = math.MaxInt64 / 11 * 10

var maxInt64 = decimal.NewFromInt(math.MaxInt64)

// WithTax returns floor(price × 1.1). Negative input yields 0 and results
// beyond int64 saturate at math.MaxInt64.
func WithTax(price int64) int64 {
	if price <= 0 {
		return 0
	}
	v := decimal.NewFromInt(price).Mul(TaxRate).Floor()
	if v.GreaterThan(maxInt64) {
		return math.MaxInt64
	}
	return v.IntPart()
}

// UnitPrice is a price normalized to a common basis.
type UnitPrice struct {
	Value float64 `json:"unit_price"`
	Label string  `json:"unit_label"`
}

// PerUnit normalizes price by amount. Mass and volume units are priced per
// 100g or 100ml, everything else per single unit. The result is rounded to
// one decimal place, halves rounding up.
func PerUnit(price int64, amount, unit string) UnitPrice {
	qty := ParseAmount(amount)
	p := decimal.NewFromInt(price).Div(qty)

	var label string
	if unit == model.UnitGram || unit == model.UnitMilliliter {
		p = p.Mul(decimal.NewFromInt(100))
		label = "100" + unit
	} else {
		label = "1" + unit
	}

	return UnitPrice{Value: p.Round(1).InexactFloat64(), Label: label}
}

// ParseAmount reads the leading number of a free-text amount such as "500",
// "1.5" or "５００ｇ". Missing, unparsable or zero amounts count as 1.
func ParseAmount(amount string) decimal.Decimal {
	s := strings.TrimSpace(width.Narrow.String(amount))

	end := 0
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		end++
	}

	d, err := decimal.NewFromString(strings.TrimSuffix(s[:end], "."))
	if err != nil || !d.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return d
}
