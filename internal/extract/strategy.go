package extract

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/tomrikert/wayfair-mcp-server/internal/product"
)

// Strategy is one way of finding products on a search page.
// Extract must be pure: it reads doc and returns records, never erroring.
// An empty result tells the adapter to try the next strategy.
type Strategy struct {
	Name    string
	Extract func(doc *goquery.Document, base *url.URL) []product.RawRecord
}

// DefaultStrategies returns the strategies in the order they are tried.
// Structured data is preferred because it survives markup changes.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "json-ld", Extract: extractJSONLD},
		containerStrategy("data-testid",
			`[data-testid*="product"], [data-testid*="Product"]`),
		containerStrategy("class-product",
			`[class*="product"], [class*="Product"], .search-result-item`),
		containerStrategy("generic-card",
			`[class*="card"], [class*="Card"], [class*="item"], article`),
	}
}

// containerStrategy extracts one record per element matching selector.
// Containers without a name are skipped. Nested containers describing the same
// product collapse into one record.
func containerStrategy(name, selector string) Strategy {
	return Strategy{
		Name: name,
		Extract: func(doc *goquery.Document, base *url.URL) []product.RawRecord {
			var records []product.RawRecord
			seen := make(map[string]struct{})

			doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
				rec, ok := recordFromContainer(s, base)
				if !ok {
					return
				}
				key := rec.Name + "\x00" + deref(rec.Price)
				if _, dup := seen[key]; dup {
					return
				}
				seen[key] = struct{}{}
				records = append(records, rec)
			})
			return records
		},
	}
}

func recordFromContainer(s *goquery.Selection, base *url.URL) (product.RawRecord, bool) {
	name := extractName(s)
	if name == "" {
		return product.RawRecord{}, false
	}

	link := extractLink(s, base)
	rec := product.RawRecord{
		ID:       extractID(s, link),
		Name:     name,
		URL:      link,
		ImageURL: extractImage(s, base),
		Brand:    firstText(s, brandSelectors),
	}
	if price := extractPrice(s); price != "" {
		rec.Price = product.Ptr(price)
	}
	if orig := extractOriginalPrice(s); orig != "" {
		rec.OriginalPrice = product.Ptr(orig)
	}
	if rating, ok := extractRating(s); ok {
		rec.Rating = product.Ptr(rating)
	}
	if n, ok := extractReviewCount(s); ok {
		rec.ReviewCount = product.Ptr(n)
	}
	if avail := firstText(s, availabilitySelectors); avail != "" {
		rec.Availability = product.Ptr(avail)
	}
	return rec, true
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
