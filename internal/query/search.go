package query

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"canadiantracker/internal/store"
	"canadiantracker/lib/textutil"

	"github.com/antzucaro/matchr"
)

type Match struct {
	Product store.Product
	// Keywords is the number of keywords of the search term found in the name.
	Keywords int
	// Score is the Jaro-Winkler similarity of the normalized term and name.
	Score float64
}

// Search returns the products whose name contains at least one keyword of
// `term`, the ones containing the most keywords first, then by similarity.
// At most `limit` matches are returned, 0 means no limit.
func Search(ctx context.Context, s *store.Store, term string, limit int) ([]Match, error) {
	keywords := textutil.Keywords(term)
	if len(keywords) == 0 {
		return nil, nil
	}
	normalized := strings.Join(keywords, " ")

	var matches []Match
	err := s.Products(store.DefaultBatchSize).ForEach(ctx, func(product store.Product) error {
		found := textutil.CountMatches(product.Name, keywords)
		if found == 0 {
			return nil
		}
		matches = append(matches, Match{
			Product:  product,
			Keywords: found,
			Score:    matchr.JaroWinkler(normalized, textutil.NormalizeName(product.Name), false),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b Match) int {
		if a.Keywords != b.Keywords {
			return b.Keywords - a.Keywords
		}
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return strings.Compare(a.Product.Code, b.Product.Code)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
