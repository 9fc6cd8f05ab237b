package migrate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/titanous/json5"
)

// legacyPayload is the part of an old raw payload the migration looks at.
type legacyPayload struct {
	Sku       string
	HasSku    bool
	PriceFrom string
}

// parseLegacyPayload decodes the raw payload of an old sample, which is the
// Python repr() of a dict, ex.
//
//	{'SKU': '0571234', 'PriceFrom': 'N', 'Price': Decimal('12.99'), 'Promo': None}
//
// Python literals are rewritten to their json5 equivalent and the result is
// decoded with json5.
func parseLegacyPayload(raw string) (legacyPayload, error) {
	var fields map[string]any
	err := json5.Unmarshal([]byte(pythonToJson5(raw)), &fields)
	if err != nil {
		return legacyPayload{}, fmt.Errorf("parse payload: %w", err)
	}

	var out legacyPayload
	if sku, ok := fields["SKU"]; ok && sku != nil {
		out.HasSku = true
		switch v := sku.(type) {
		case string:
			out.Sku = v
		case float64:
			out.Sku = fmt.Sprintf("%07.0f", v)
		default:
			out.Sku = fmt.Sprint(v)
		}
	}
	if priceFrom, ok := fields["PriceFrom"].(string); ok {
		out.PriceFrom = priceFrom
	}
	return out, nil
}

var pythonConstants = map[string]string{
	"True":  "true",
	"False": "false",
	"None":  "null",
}

// pythonToJson5 rewrites the Python constants and Decimal('x') calls found
// outside of string literals. Strings themselves (single or double quoted,
// with backslash escapes) are valid json5 and are copied as is.
func pythonToJson5(src string) string {
	var out strings.Builder
	runes := []rune(src)

	for i := 0; i < len(runes); {
		r := runes[i]

		if r == '\'' || r == '"' {
			end := skipString(runes, i)
			out.WriteString(string(runes[i:end]))
			i = end
			continue
		}

		if unicode.IsLetter(r) || r == '_' {
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			word := string(runes[start:i])

			if replacement, ok := pythonConstants[word]; ok {
				out.WriteString(replacement)
				continue
			}
			// Decimal('12.99') -> '12.99'
			if word == "Decimal" && i < len(runes) && runes[i] == '(' {
				j := i + 1
				if j < len(runes) && (runes[j] == '\'' || runes[j] == '"') {
					end := skipString(runes, j)
					if end < len(runes) && runes[end] == ')' {
						out.WriteString(string(runes[j:end]))
						i = end + 1
						continue
					}
				}
			}
			out.WriteString(word)
			continue
		}

		out.WriteRune(r)
		i++
	}

	return out.String()
}

// skipString returns the index right after the string literal starting at `start`.
func skipString(runes []rune, start int) int {
	quote := runes[start]
	i := start + 1
	for i < len(runes) {
		switch runes[i] {
		case '\\':
			i += 2
			continue
		case quote:
			return i + 1
		}
		i++
	}
	return len(runes)
}
