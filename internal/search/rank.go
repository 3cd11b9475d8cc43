package search

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tomrikert/wayfair-mcp-server/internal/product"
)

// FilterFunc reports whether a product satisfies a constraint.
type FilterFunc func(p product.Product) bool

// buildFilters turns the query's constraints into filters (AND logic).
func buildFilters(q Query) []FilterFunc {
	var filters []FilterFunc
	if q.Category != "" {
		filters = append(filters, categoryFilter(q.Category))
	}
	if q.MaxPrice != nil {
		filters = append(filters, maxPriceFilter(*q.MaxPrice))
	}
	if q.MinRating != nil {
		filters = append(filters, minRatingFilter(*q.MinRating))
	}
	return filters
}

// categoryFilter matches the category name ignoring case. Products without a
// category never match.
func categoryFilter(name string) FilterFunc {
	return func(p product.Product) bool {
		return p.Category != "" && strings.EqualFold(p.Category, name)
	}
}

func maxPriceFilter(max float64) FilterFunc {
	limit := decimal.NewFromFloat(max)
	return func(p product.Product) bool {
		return p.Price.LessThanOrEqual(limit)
	}
}

func minRatingFilter(min float64) FilterFunc {
	return func(p product.Product) bool {
		return p.Rating >= min
	}
}

// ApplyFilters keeps products passing every filter, preserving order.
func ApplyFilters(products []product.Product, filters []FilterFunc) []product.Product {
	if len(filters) == 0 {
		return products
	}
	out := make([]product.Product, 0, len(products))
	for _, p := range products {
		if matchesAll(p, filters) {
			out = append(out, p)
		}
	}
	return out
}

func matchesAll(p product.Product, filters []FilterFunc) bool {
	for _, f := range filters {
		if !f(p) {
			return false
		}
	}
	return true
}

// Relevance counts the distinct query tokens that appear in the product name.
func Relevance(queryTokens []string, name string) int {
	if len(queryTokens) == 0 {
		return 0
	}
	nameTokens := make(map[string]struct{})
	for _, t := range product.Tokenize(name) {
		nameTokens[t] = struct{}{}
	}
	score := 0
	for _, t := range queryTokens {
		if _, ok := nameTokens[t]; ok {
			score++
		}
	}
	return score
}

type scored struct {
	product.Product
	relevance int
}

// Rank drops products that share no token with a non-empty query, then orders
// by relevance desc, rating desc, price asc and id asc.
func Rank(products []product.Product, text string) []product.Product {
	tokens := product.Tokenize(text)

	candidates := make([]scored, 0, len(products))
	for _, p := range products {
		rel := Relevance(tokens, p.Name)
		if len(tokens) > 0 && rel == 0 {
			continue
		}
		candidates = append(candidates, scored{Product: p, relevance: rel})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.relevance != b.relevance {
			return a.relevance > b.relevance
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		if cmp := a.Price.Cmp(b.Price); cmp != 0 {
			return cmp < 0
		}
		return a.ID < b.ID
	})

	out := make([]product.Product, len(candidates))
	for i, c := range candidates {
		out[i] = c.Product
	}
	return out
}
