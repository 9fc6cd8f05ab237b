package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases `name` and collapses runs of whitespace to a single space.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return name
}

// Keywords splits a search query in normalized keywords.
func Keywords(query string) []string {
	return strings.Fields(NormalizeName(query))
}

// CountMatches returns the number of `keywords` that the normalized name contains.
func CountMatches(name string, keywords []string) int {
	name = NormalizeName(name)
	count := 0
	for _, k := range keywords {
		if strings.Contains(name, k) {
			count++
		}
	}
	return count
}
