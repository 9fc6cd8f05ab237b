// Package codes knows the formats of the retailer's product and sku codes.
//
// A product code is 7 digits followed by the letter P (ex. 0309090P).
//
// A sku code comes in two forms:
//   - the formatted code, as displayed by the retailer: 123-4567-8
//   - the internal code, used as the canonical lookup key: 1234567 (the
//     trailing check digit is dropped)
package codes

import (
	"errors"
	"fmt"
	"regexp"
)

var ErrInvalidFormat = errors.New("invalid code format")

var (
	productCodeRegex       = regexp.MustCompile(`^\d{7}P$`)
	formattedSkuCodeRegex  = regexp.MustCompile(`^\d{3}-\d{4}-\d$`)
	shortFormattedSkuRegex = regexp.MustCompile(`^\d{1,2}-\d{4}-\d$`)
	skuCodeRegex           = regexp.MustCompile(`^\d{7}$`)
)

// ProductCodeSuffix is appended to a 7 digit number to form a product code.
const ProductCodeSuffix = "P"

func ValidateProductCode(code string) error {
	if !productCodeRegex.MatchString(code) {
		return fmt.Errorf("%w: product code `%s`", ErrInvalidFormat, code)
	}
	return nil
}

func ValidateSkuCode(code string) error {
	if !skuCodeRegex.MatchString(code) {
		return fmt.Errorf("%w: sku code `%s`", ErrInvalidFormat, code)
	}
	return nil
}

func IsFormattedSkuCode(formatted string) bool {
	return formattedSkuCodeRegex.MatchString(formatted)
}

// NormalizeFormattedSkuCode adds the leading zeros that older data sometimes
// lost in the first group (9-0309-0 and 09-0309-0 both become 009-0309-0).
// A code that is still not in the 123-4567-8 form after padding is an error.
func NormalizeFormattedSkuCode(formatted string) (string, error) {
	// at most two zeros are ever missing
	for i := 0; i < 2 && shortFormattedSkuRegex.MatchString(formatted); i++ {
		formatted = "0" + formatted
	}
	if !formattedSkuCodeRegex.MatchString(formatted) {
		return "", fmt.Errorf("%w: formatted sku code `%s`", ErrInvalidFormat, formatted)
	}
	return formatted, nil
}

// SkuCodeFromFormatted converts a normalized formatted sku code (123-4567-8)
// to its internal form (1234567).
func SkuCodeFromFormatted(formatted string) (string, error) {
	if !formattedSkuCodeRegex.MatchString(formatted) {
		return "", fmt.Errorf("%w: formatted sku code `%s`", ErrInvalidFormat, formatted)
	}
	return formatted[0:3] + formatted[4:8], nil
}

// ProductCodeFromSkuCode is the retailer's convention for single-sku
// products: the product code is the sku code with the P suffix.
func ProductCodeFromSkuCode(skuCode string) string {
	return skuCode + ProductCodeSuffix
}
