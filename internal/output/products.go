package output

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tomrikert/wayfair-mcp-server/internal/product"
	"github.com/tomrikert/wayfair-mcp-server/internal/search"
)

// Money formats a price as $1,234.56.
func Money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// Product prints one numbered product line with a detail line beneath.
func (w *Writer) Product(n int, p product.Product) {
	price := w.styles.Price.Render(Money(p.Price))
	if p.OriginalPrice != nil && p.DiscountPercentage > 0 {
		price += w.styles.Discount.Render(fmt.Sprintf("  was %s, %d%% off", Money(*p.OriginalPrice), p.DiscountPercentage))
	}
	_, _ = fmt.Fprintf(w.out, "%2d. %s\n    %s\n", n, p.Name, price)

	var details []string
	if p.Rating > 0 {
		rating := fmt.Sprintf("%.1f★", p.Rating)
		if p.ReviewCount > 0 {
			rating += fmt.Sprintf(" (%d reviews)", p.ReviewCount)
		}
		details = append(details, rating)
	}
	if p.Brand != "" {
		details = append(details, p.Brand)
	}
	if p.Availability != product.AvailabilityUnknown && p.Availability != "" {
		details = append(details, strings.ReplaceAll(string(p.Availability), "_", " "))
	}
	details = append(details, p.ID)
	_, _ = fmt.Fprintf(w.out, "    %s\n", w.styles.Dim.Render(strings.Join(details, " · ")))
}

// Products prints a numbered list, or a notice when empty.
func (w *Writer) Products(products []product.Product) {
	if len(products) == 0 {
		w.Warning("No products matched")
		return
	}
	for i, p := range products {
		w.Product(i+1, p)
	}
}

// DataSource prints where a result came from.
func (w *Writer) DataSource(ds search.DataSource) {
	switch {
	case ds.LiveSucceeded:
		w.Successf("Live results from Wayfair (%d)", ds.LiveCount)
	case !ds.LiveAttempted:
		w.Statusf("•", "Catalog results (%d); live search skipped: %s", ds.FallbackCount, ds.LiveFailure)
	default:
		w.Warningf("Catalog results (%d); live search failed: %s", ds.FallbackCount, ds.LiveFailure)
	}
	if ds.DroppedRecords > 0 {
		w.Statusf("", "%d incomplete records skipped", ds.DroppedRecords)
	}
	for _, issue := range ds.Issues {
		w.Statusf("", "note: %s", issue)
	}
}

// SearchResult prints a search result with its provenance.
func (w *Writer) SearchResult(res *search.Result) {
	label := res.Query.Text
	if label == "" {
		label = "all products"
	}
	w.Header(fmt.Sprintf("Results for %q", label))
	w.DataSource(res.DataSource)
	w.Newline()
	w.Products(res.Products)
}
