package search

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tomrikert/wayfair-mcp-server/internal/product"
)

// maxRating is the top of the star scale.
const maxRating = 5.0

// DropReason explains why a raw record could not become a Product.
type DropReason string

const (
	DropMissingName  DropReason = "missing_name"
	DropMissingPrice DropReason = "missing_price"
	DropBadPrice     DropReason = "unparsable_price"
	DropNegative     DropReason = "negative_price"
)

// Drop records one rejected raw record.
type Drop struct {
	Name   string     `json:"name,omitempty"`
	Reason DropReason `json:"reason"`
}

// Normalize converts a raw record into a Product.
// Records without a name or a non-negative parseable price are rejected.
// Optional fields that fail to parse are treated as absent.
func Normalize(raw product.RawRecord, source product.Source) (product.Product, *Drop) {
	name := strings.Join(strings.Fields(raw.Name), " ")
	if name == "" {
		return product.Product{}, &Drop{Reason: DropMissingName}
	}
	if raw.Price == nil {
		return product.Product{}, &Drop{Name: name, Reason: DropMissingPrice}
	}
	price, err := parseDecimal(*raw.Price)
	if err != nil {
		return product.Product{}, &Drop{Name: name, Reason: DropBadPrice}
	}
	if price.IsNegative() {
		return product.Product{}, &Drop{Name: name, Reason: DropNegative}
	}

	p := product.Product{
		Name:         name,
		Price:        price,
		Availability: product.AvailabilityUnknown,
		Source:       source,
		URL:          raw.URL,
		ImageURL:     raw.ImageURL,
		Brand:        raw.Brand,
		Category:     raw.Category,
		Description:  raw.Description,
		Delivery:     raw.Delivery,
		Features:     raw.Features,
		Colors:       raw.Colors,
		Materials:    raw.Materials,
	}

	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = derivedID(name, price)
	}
	p.ID = source.IDPrefix() + id

	if raw.OriginalPrice != nil {
		if orig, err := parseDecimal(*raw.OriginalPrice); err == nil && orig.GreaterThanOrEqual(price) && orig.IsPositive() {
			p.OriginalPrice = &orig
			p.DiscountPercentage = Discount(price, orig)
		}
	}

	if raw.Rating != nil && !math.IsNaN(*raw.Rating) && *raw.Rating >= 0 && *raw.Rating <= maxRating {
		p.Rating = *raw.Rating
	}
	if raw.ReviewCount != nil && *raw.ReviewCount >= 0 {
		p.ReviewCount = *raw.ReviewCount
	}
	if raw.Availability != nil {
		p.Availability = product.ParseAvailability(*raw.Availability)
	}

	return p, nil
}

// parseDecimal accepts plain numbers and tolerates a currency symbol or
// thousands separators left in by a source.
func parseDecimal(text string) (decimal.Decimal, error) {
	t := strings.TrimSpace(text)
	t = strings.TrimLeft(t, "$£€ ")
	t = strings.ReplaceAll(t, ",", "")
	if t == "" {
		return decimal.Decimal{}, fmt.Errorf("empty price")
	}
	return decimal.NewFromString(t)
}

// Discount returns round(100 * (1 - price/original)) clamped to [0, 100].
func Discount(price, original decimal.Decimal) int {
	if !original.IsPositive() {
		return 0
	}
	pct := decimal.NewFromInt(1).Sub(price.Div(original)).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return int(pct)
	}
}

// derivedID builds a stable id for records the source gave no id.
func derivedID(name string, price decimal.Decimal) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(name)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(price.String()))
	return fmt.Sprintf("%016x", h.Sum64())
}

// normalizeAll converts records, returning the products and the rejects.
func normalizeAll(records []product.RawRecord, source product.Source) ([]product.Product, []Drop) {
	products := make([]product.Product, 0, len(records))
	var drops []Drop
	seen := make(map[string]struct{}, len(records))

	for _, raw := range records {
		p, drop := Normalize(raw, source)
		if drop != nil {
			drops = append(drops, *drop)
			continue
		}
		// Ids must be unique within a response.
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		products = append(products, p)
	}
	return products, drops
}
