package search

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tomrikert/wayfair-mcp-server/internal/catalog"
	wferrors "github.com/tomrikert/wayfair-mcp-server/internal/errors"
	"github.com/tomrikert/wayfair-mcp-server/internal/product"
)

// Browse limits.
const (
	MaxCompare         = 10
	MaxRelated         = 4
	DefaultMinDiscount = 20
	DefaultDealsLimit  = 10
)

// relatedPriceBand is the fraction either side of a product's price within
// which same-category products count as related.
var relatedPriceBand = decimal.NewFromFloat(0.3)

// Details is a single product with related catalog items.
type Details struct {
	Product product.Product   `json:"product"`
	Related []product.Product `json:"related"`
}

// PriceSummary summarizes prices across compared products.
type PriceSummary struct {
	Lowest  decimal.Decimal `json:"lowest"`
	Highest decimal.Decimal `json:"highest"`
	Average decimal.Decimal `json:"average"`
}

// RatingSummary summarizes ratings across compared products.
type RatingSummary struct {
	Lowest  float64 `json:"lowest"`
	Highest float64 `json:"highest"`
	Average float64 `json:"average"`
}

// Comparison is the side-by-side view of several products.
type Comparison struct {
	Products     []product.Product `json:"products"`
	Missing      []string          `json:"missing,omitempty"`
	Price        PriceSummary      `json:"price"`
	Rating       RatingSummary     `json:"rating"`
	BestValue    string            `json:"best_value"`
	HighestRated string            `json:"highest_rated"`
}

// Browser answers lookups against the fallback catalog. Live results are not
// retained, so only catalog ids resolve.
type Browser struct {
	catalog *catalog.Catalog
}

// NewBrowser creates a Browser over c.
func NewBrowser(c *catalog.Catalog) (*Browser, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: catalog is required", ErrNilDependency)
	}
	return &Browser{catalog: c}, nil
}

// lookup resolves a catalog id with or without the fallback prefix.
func (b *Browser) lookup(id string) (product.Product, error) {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, product.SourceLive.IDPrefix()) {
		return product.Product{}, wferrors.NotFoundError(id).
			WithSuggestion("Live results are not cached; search again for current details")
	}
	native := strings.TrimPrefix(id, product.SourceFallback.IDPrefix())
	raw, ok := b.catalog.Get(native)
	if !ok {
		return product.Product{}, wferrors.NotFoundError(id).
			WithSuggestion("Use an id returned by search_products")
	}
	p, drop := Normalize(raw, product.SourceFallback)
	if drop != nil {
		return product.Product{}, wferrors.InternalError(
			fmt.Sprintf("catalog record %q is invalid: %s", native, drop.Reason), nil)
	}
	return p, nil
}

// Product returns the product with the given id and up to MaxRelated products
// from the same category priced within 30% of it.
func (b *Browser) Product(id string) (*Details, error) {
	p, err := b.lookup(id)
	if err != nil {
		return nil, err
	}

	related := make([]product.Product, 0, MaxRelated)
	if p.Category != "" {
		band := p.Price.Mul(relatedPriceBand)
		low, high := p.Price.Sub(band), p.Price.Add(band)
		all, _ := normalizeAll(b.catalog.All(), product.SourceFallback)
		for _, other := range all {
			if len(related) == MaxRelated {
				break
			}
			if other.ID == p.ID || other.Category != p.Category {
				continue
			}
			if other.Price.LessThan(low) || other.Price.GreaterThan(high) {
				continue
			}
			related = append(related, other)
		}
	}

	return &Details{Product: p, Related: related}, nil
}

// Compare looks up between one and MaxCompare products and summarizes them.
// Unknown ids are reported in Missing; it fails only if none resolve.
func (b *Browser) Compare(ids []string) (*Comparison, error) {
	if len(ids) == 0 {
		return nil, wferrors.New(wferrors.ErrCodeTooFewProducts, "at least one product id is required", nil)
	}
	if len(ids) > MaxCompare {
		return nil, wferrors.New(wferrors.ErrCodeTooManyProducts,
			fmt.Sprintf("at most %d products can be compared, got %d", MaxCompare, len(ids)), nil)
	}

	cmp := &Comparison{Products: make([]product.Product, 0, len(ids))}
	seen := make(map[string]struct{}, len(ids))
	var lastErr error
	for _, id := range ids {
		p, err := b.lookup(id)
		if err != nil {
			cmp.Missing = append(cmp.Missing, id)
			lastErr = err
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		cmp.Products = append(cmp.Products, p)
	}
	if len(cmp.Products) == 0 {
		return nil, lastErr
	}

	summarize(cmp)
	return cmp, nil
}

func summarize(cmp *Comparison) {
	first := cmp.Products[0]
	cmp.Price = PriceSummary{Lowest: first.Price, Highest: first.Price}
	cmp.Rating = RatingSummary{Lowest: first.Rating, Highest: first.Rating}

	sum := decimal.Zero
	ratingSum := 0.0
	best := first
	bestRated := first
	for _, p := range cmp.Products {
		sum = sum.Add(p.Price)
		ratingSum += p.Rating
		if p.Price.LessThan(cmp.Price.Lowest) {
			cmp.Price.Lowest = p.Price
		}
		if p.Price.GreaterThan(cmp.Price.Highest) {
			cmp.Price.Highest = p.Price
		}
		if p.Rating < cmp.Rating.Lowest {
			cmp.Rating.Lowest = p.Rating
		}
		if p.Rating > cmp.Rating.Highest {
			cmp.Rating.Highest = p.Rating
		}
		if p.Rating > bestRated.Rating {
			bestRated = p
		}
		if betterValue(p, best) {
			best = p
		}
	}

	n := len(cmp.Products)
	cmp.Price.Average = sum.Div(decimal.NewFromInt(int64(n))).Round(2)
	cmp.Rating.Average = math.Round(ratingSum/float64(n)*100) / 100
	cmp.BestValue = best.ID
	cmp.HighestRated = bestRated.ID
}

// betterValue reports whether a has a lower price per rating star than b.
// Unrated products lose to rated ones; two unrated products compare on price.
func betterValue(a, b product.Product) bool {
	switch {
	case a.Rating <= 0 && b.Rating <= 0:
		return a.Price.LessThan(b.Price)
	case a.Rating <= 0:
		return false
	case b.Rating <= 0:
		return true
	}
	av := a.Price.Div(decimal.NewFromFloat(a.Rating))
	bv := b.Price.Div(decimal.NewFromFloat(b.Rating))
	return av.LessThan(bv)
}

// Deals returns catalog products discounted by at least minDiscount percent,
// ordered by discount desc, rating desc and id asc.
func (b *Browser) Deals(minDiscount, limit int) ([]product.Product, error) {
	if minDiscount < 0 || minDiscount > 100 {
		return nil, wferrors.ValidationError(
			fmt.Sprintf("min_discount must be between 0 and 100, got %d", minDiscount), nil).
			WithDetail("field", "min_discount")
	}
	if limit == 0 {
		limit = DefaultDealsLimit
	}
	if limit < 1 || limit > MaxLimit {
		return nil, wferrors.ValidationError(
			fmt.Sprintf("limit must be between 1 and %d, got %d", MaxLimit, limit), nil).
			WithDetail("field", "limit")
	}

	all, _ := normalizeAll(b.catalog.All(), product.SourceFallback)
	deals := make([]product.Product, 0, len(all))
	for _, p := range all {
		if p.OriginalPrice != nil && p.DiscountPercentage > 0 && p.DiscountPercentage >= minDiscount {
			deals = append(deals, p)
		}
	}

	sort.SliceStable(deals, func(i, j int) bool {
		a, c := deals[i], deals[j]
		if a.DiscountPercentage != c.DiscountPercentage {
			return a.DiscountPercentage > c.DiscountPercentage
		}
		if a.Rating != c.Rating {
			return a.Rating > c.Rating
		}
		return a.ID < c.ID
	})

	if len(deals) > limit {
		deals = deals[:limit]
	}
	return deals, nil
}

// Categories lists catalog categories with product counts.
func (b *Browser) Categories() []catalog.CategoryCount {
	return b.catalog.Categories()
}

// Brands lists catalog brands.
func (b *Browser) Brands() []string {
	return b.catalog.Brands()
}

// Len returns the number of catalog products.
func (b *Browser) Len() int {
	return b.catalog.Len()
}
