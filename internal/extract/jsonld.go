package extract

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tomrikert/wayfair-mcp-server/internal/product"
)

// extractJSONLD reads schema.org Product and ItemList documents embedded as
// application/ld+json. Malformed documents are ignored.
func extractJSONLD(doc *goquery.Document, base *url.URL) []product.RawRecord {
	var records []product.RawRecord
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return
		}
		records = append(records, walkLD(v, base)...)
	})
	return records
}

// walkLD visits arrays, @graph containers, ItemLists and Products.
func walkLD(v any, base *url.URL) []product.RawRecord {
	switch node := v.(type) {
	case []any:
		var out []product.RawRecord
		for _, item := range node {
			out = append(out, walkLD(item, base)...)
		}
		return out
	case map[string]any:
		if graph, ok := node["@graph"]; ok {
			return walkLD(graph, base)
		}
		switch {
		case hasType(node, "ItemList"):
			var out []product.RawRecord
			items, _ := node["itemListElement"].([]any)
			for _, item := range items {
				if m, ok := item.(map[string]any); ok {
					if inner, ok := m["item"]; ok {
						out = append(out, walkLD(inner, base)...)
						continue
					}
				}
				out = append(out, walkLD(item, base)...)
			}
			return out
		case hasType(node, "Product"):
			if rec, ok := recordFromLD(node, base); ok {
				return []product.RawRecord{rec}
			}
		}
	}
	return nil
}

func hasType(node map[string]any, want string) bool {
	switch t := node["@type"].(type) {
	case string:
		return t == want
	case []any:
		for _, x := range t {
			if s, ok := x.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

func recordFromLD(node map[string]any, base *url.URL) (product.RawRecord, bool) {
	name := cleanText(ldString(node["name"]))
	if name == "" {
		return product.RawRecord{}, false
	}

	rec := product.RawRecord{
		ID:          firstNonEmpty(ldString(node["sku"]), ldString(node["productID"])),
		Name:        name,
		URL:         resolve(base, ldString(node["url"])),
		ImageURL:    resolve(base, ldImage(node["image"])),
		Brand:       ldName(node["brand"]),
		Category:    ldString(node["category"]),
		Description: cleanText(ldString(node["description"])),
	}

	offer := firstOffer(node["offers"])
	if offer != nil {
		price := ldString(offer["price"])
		if price == "" {
			price = ldString(offer["lowPrice"])
		}
		if p := parsePrice(price); p != "" {
			rec.Price = product.Ptr(p)
		}
		if avail := ldAvailability(ldString(offer["availability"])); avail != "" {
			rec.Availability = product.Ptr(avail)
		}
	}

	if agg, ok := node["aggregateRating"].(map[string]any); ok {
		if r, err := strconv.ParseFloat(ldString(agg["ratingValue"]), 64); err == nil {
			rec.Rating = product.Ptr(r)
		}
		count := firstNonEmpty(ldString(agg["reviewCount"]), ldString(agg["ratingCount"]))
		if n, ok := parseReviewCount(count); ok {
			rec.ReviewCount = product.Ptr(n)
		}
	}

	return rec, true
}

func firstOffer(v any) map[string]any {
	switch o := v.(type) {
	case map[string]any:
		return o
	case []any:
		for _, item := range o {
			if m, ok := item.(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

// ldString renders scalar JSON values as text.
func ldString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case bool, nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func ldName(v any) string {
	if m, ok := v.(map[string]any); ok {
		return ldString(m["name"])
	}
	return ldString(v)
}

func ldImage(v any) string {
	switch x := v.(type) {
	case []any:
		if len(x) > 0 {
			return ldImage(x[0])
		}
	case map[string]any:
		return ldString(x["url"])
	}
	return ldString(v)
}

// ldAvailability maps schema.org item availability URLs to display text.
func ldAvailability(v string) string {
	lower := strings.ToLower(v)
	switch {
	case lower == "":
		return ""
	case strings.HasSuffix(lower, "instock"), strings.HasSuffix(lower, "limitedavailability"):
		return "In Stock"
	case strings.HasSuffix(lower, "outofstock"), strings.HasSuffix(lower, "soldout"),
		strings.HasSuffix(lower, "discontinued"):
		return "Out of Stock"
	default:
		return v
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
