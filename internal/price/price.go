// Package price converts between the exact decimal prices of the retailer's
// API and the integer number of cents that is persisted.
package price

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrSubCent = errors.New("price has sub-cent digits")

var hundred = decimal.NewFromInt(100)

// CentsFromPrice returns the number of cents in `price`. Prices that cannot
// be represented exactly in cents are rejected rather than rounded.
func CentsFromPrice(price decimal.Decimal) (int64, error) {
	cents := price.Mul(hundred)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("%w: %s", ErrSubCent, price.String())
	}
	return cents.IntPart(), nil
}

func PriceFromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Format renders cents with exactly two decimals (ex. 1299 -> "12.99").
func Format(cents int64) string {
	return PriceFromCents(cents).StringFixed(2)
}

// Parse reads a decimal price from its textual form ("12.99", "12.9", "12").
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse price `%s`: %w", s, err)
	}
	return d, nil
}
