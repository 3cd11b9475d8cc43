package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var (
	priceRe       = regexp.MustCompile(`[$£€]?\s*(\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`)
	currencyRe    = regexp.MustCompile(`[$£€]\s*(\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`)
	ratingOutOfRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:out of|/)\s*5`)
	floatRe       = regexp.MustCompile(`\d+(?:\.\d+)?`)
	reviewsRe     = regexp.MustCompile(`(\d[\d,]*)\s*(?:reviews?|ratings?)`)
	parenCountRe  = regexp.MustCompile(`\((\d[\d,]*)\)`)
	intRe         = regexp.MustCompile(`\d[\d,]*`)
	skuRe         = regexp.MustCompile(`-([A-Za-z0-9]+)\.html`)
)

const maxNameLen = 200

// Selector groups in priority order. CSS attribute matching is case sensitive,
// so both spellings are listed where the site mixes them.
var (
	nameSelectors = []string{
		`[data-testid*="name"]`, `[data-testid*="title"]`,
		`h1, h2, h3, h4, h5, h6`,
		`[class*="title"], [class*="Title"]`,
		`[class*="name"], [class*="Name"]`,
		`a[href*="/pdp/"]`,
	}
	priceSelectors = []string{
		`[data-testid*="price"], [data-testid*="Price"]`,
		`[class*="price"], [class*="Price"], [class*="cost"]`,
	}
	originalPriceSelectors = []string{
		`[class*="original"], [class*="Original"], [class*="old-price"], [class*="was"], [class*="strike"]`,
		`s, del`,
	}
	ratingSelectors = []string{
		`[class*="rating"], [class*="Rating"], [class*="stars"], [class*="Stars"]`,
		`[aria-label*="rating"], [aria-label*="stars"]`,
	}
	reviewSelectors = []string{
		`[class*="review"], [class*="Review"], [class*="rating-count"]`,
	}
	availabilitySelectors = []string{
		`[data-testid*="availability"], [class*="stock"], [class*="Stock"], [class*="availability"]`,
	}
	brandSelectors = []string{
		`[class*="brand"], [class*="Brand"], [class*="manufacturer"]`,
	}
	idAttributes = []string{"data-sku", "data-product-id", "data-id", "data-testid-sku"}
)

// cleanText collapses runs of whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// firstText returns the first non-empty text found by the selectors, in order.
func firstText(s *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		var found string
		s.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			found = cleanText(el.Text())
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// extractName returns the product name, truncated to a sane length.
func extractName(s *goquery.Selection) string {
	name := firstText(s, nameSelectors)
	if name == "" {
		if alt, ok := s.Find("img[alt]").First().Attr("alt"); ok {
			name = cleanText(alt)
		}
	}
	return truncateName(name)
}

// truncateName cuts name to at most maxNameLen bytes on a rune boundary.
func truncateName(name string) string {
	if len(name) <= maxNameLen {
		return name
	}
	cut := maxNameLen
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return strings.TrimSpace(name[:cut])
}

// parsePrice strips currency symbols and thousands separators.
// It returns "" when no price-like number is present.
func parsePrice(text string) string {
	return matchAmount(priceRe, text)
}

// matchAmount returns the first amount captured by re that stands alone.
// Matches starting or ending inside a longer number ("$.99", "12.345") are
// skipped, so a malformed price reads as missing rather than wrong.
func matchAmount(re *regexp.Regexp, text string) string {
	for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		if start > 0 {
			prev := text[start-1]
			if isDigit(prev) || prev == '.' || (prev == ',' && start > 1 && isDigit(text[start-2])) {
				continue
			}
		}
		if end < len(text) {
			next := text[end]
			if isDigit(next) || ((next == '.' || next == ',') && end+1 < len(text) && isDigit(text[end+1])) {
				continue
			}
		}
		return strings.ReplaceAll(text[start:end], ",", "")
	}
	return ""
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// isOriginalPrice reports whether a price element is a struck-through list price.
func isOriginalPrice(el *goquery.Selection) bool {
	if goquery.NodeName(el) == "s" || goquery.NodeName(el) == "del" {
		return true
	}
	class := strings.ToLower(el.AttrOr("class", ""))
	for _, marker := range []string{"original", "old", "was", "strike", "list"} {
		if strings.Contains(class, marker) {
			return true
		}
	}
	return false
}

// extractPrice finds the current price. Elements marking a list price are skipped.
// When no price element exists, the container text is searched for a
// currency-prefixed amount.
func extractPrice(s *goquery.Selection) string {
	for _, sel := range priceSelectors {
		var price string
		s.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if isOriginalPrice(el) {
				return true
			}
			price = parsePrice(el.Text())
			return price == ""
		})
		if price != "" {
			return price
		}
	}

	return matchAmount(currencyRe, s.Text())
}

func extractOriginalPrice(s *goquery.Selection) string {
	for _, sel := range originalPriceSelectors {
		var price string
		s.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			price = parsePrice(el.Text())
			return price == ""
		})
		if price != "" {
			return price
		}
	}
	return ""
}

// parseRating reads "4.5 out of 5", "4.5/5" or a bare number.
func parseRating(text string) (float64, bool) {
	if m := ratingOutOfRe.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		return v, err == nil
	}
	if m := floatRe.FindString(text); m != "" {
		v, err := strconv.ParseFloat(m, 64)
		return v, err == nil
	}
	return 0, false
}

func extractRating(s *goquery.Selection) (float64, bool) {
	for _, sel := range ratingSelectors {
		var (
			rating float64
			ok     bool
		)
		s.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			text := el.AttrOr("aria-label", "")
			if text == "" {
				text = el.Text()
			}
			rating, ok = parseRating(text)
			return !ok
		})
		if ok {
			return rating, true
		}
	}
	return 0, false
}

// parseReviewCount reads "1,234 reviews", "(1,234)" or a bare integer.
func parseReviewCount(text string) (int, bool) {
	var digits string
	switch {
	case reviewsRe.MatchString(text):
		digits = reviewsRe.FindStringSubmatch(text)[1]
	case parenCountRe.MatchString(text):
		digits = parenCountRe.FindStringSubmatch(text)[1]
	default:
		digits = intRe.FindString(text)
	}
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(digits, ",", ""))
	return n, err == nil
}

func extractReviewCount(s *goquery.Selection) (int, bool) {
	text := firstText(s, reviewSelectors)
	if text == "" {
		return 0, false
	}
	return parseReviewCount(text)
}

// resolve returns ref as an absolute URL against base.
func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

func extractLink(s *goquery.Selection, base *url.URL) string {
	if href, ok := s.Find(`a[href*="/pdp/"]`).First().Attr("href"); ok {
		return resolve(base, href)
	}
	if goquery.NodeName(s) == "a" {
		if href, ok := s.Attr("href"); ok {
			return resolve(base, href)
		}
	}
	if href, ok := s.Find("a[href]").First().Attr("href"); ok {
		return resolve(base, href)
	}
	return ""
}

func extractImage(s *goquery.Selection, base *url.URL) string {
	img := s.Find("img").First()
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v, ok := img.Attr(attr); ok && v != "" && !strings.HasPrefix(v, "data:") {
			return resolve(base, v)
		}
	}
	return ""
}

// extractID reads a product id from data attributes or the product link.
func extractID(s *goquery.Selection, link string) string {
	for _, attr := range idAttributes {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	if m := skuRe.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return ""
}
