package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tomrikert/wayfair-mcp-server/internal/catalog"
	"github.com/tomrikert/wayfair-mcp-server/internal/output"
	"github.com/tomrikert/wayfair-mcp-server/internal/product"
	"github.com/tomrikert/wayfair-mcp-server/internal/search"
)

// FormatSearchResult formats a search result as markdown.
func FormatSearchResult(res *search.Result) string {
	var sb strings.Builder
	if res.Query.Text == "" {
		sb.WriteString("## Catalog Browse\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("## Search Results for \"%s\"\n\n", res.Query.Text))
	}
	sb.WriteString(formatDataSource(res.DataSource))
	sb.WriteString("\n\n")

	if len(res.Products) == 0 {
		sb.WriteString("No products matched.")
		if res.Query.MaxPrice != nil || res.Query.MinRating != nil {
			sb.WriteString(" Try relaxing the price or rating filters.")
		}
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Found %d product", res.TotalResults))
	if res.TotalResults != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, p := range res.Products {
		formatProduct(&sb, i+1, p)
	}
	return sb.String()
}

// formatDataSource renders the provenance line.
func formatDataSource(ds search.DataSource) string {
	var line string
	switch {
	case ds.LiveSucceeded:
		line = fmt.Sprintf("**Source:** live Wayfair results (%d)", ds.LiveCount)
	case !ds.LiveAttempted:
		line = fmt.Sprintf("**Source:** offline catalog (%d), live search skipped: %s", ds.FallbackCount, ds.LiveFailure)
	default:
		line = fmt.Sprintf("**Source:** offline catalog (%d), live search failed: %s", ds.FallbackCount, ds.LiveFailure)
	}
	if ds.DroppedRecords > 0 {
		line += fmt.Sprintf("\n**Dropped:** %d unusable record(s)", ds.DroppedRecords)
	}
	for _, issue := range ds.Issues {
		line += "\n> " + issue
	}
	return line
}

// formatProduct writes a single numbered product.
func formatProduct(sb *strings.Builder, n int, p product.Product) {
	sb.WriteString(fmt.Sprintf("### %d. %s\n\n", n, p.Name))
	writeProductFields(sb, p)
}

// writeProductFields writes the bullet list shared by listings and details.
func writeProductFields(sb *strings.Builder, p product.Product) {
	sb.WriteString(fmt.Sprintf("- **ID:** `%s`\n", p.ID))
	price := output.Money(p.Price)
	if p.OriginalPrice != nil && p.DiscountPercentage > 0 {
		price += fmt.Sprintf(" ~~%s~~ (%d%% off)", output.Money(*p.OriginalPrice), p.DiscountPercentage)
	}
	sb.WriteString(fmt.Sprintf("- **Price:** %s\n", price))
	if p.Rating > 0 {
		sb.WriteString(fmt.Sprintf("- **Rating:** %.1f/5", p.Rating))
		if p.ReviewCount > 0 {
			sb.WriteString(fmt.Sprintf(" (%d reviews)", p.ReviewCount))
		}
		sb.WriteString("\n")
	}
	if p.Brand != "" {
		sb.WriteString(fmt.Sprintf("- **Brand:** %s\n", p.Brand))
	}
	if p.Availability != "" && p.Availability != product.AvailabilityUnknown {
		sb.WriteString(fmt.Sprintf("- **Availability:** %s\n", strings.ReplaceAll(string(p.Availability), "_", " ")))
	}
	if p.Delivery != "" {
		sb.WriteString(fmt.Sprintf("- **Delivery:** %s\n", p.Delivery))
	}
	if p.URL != "" {
		sb.WriteString(fmt.Sprintf("- [View on Wayfair](%s)\n", p.URL))
	}
	sb.WriteString("\n")
}

// FormatDetails formats a single product with its related items.
func FormatDetails(d *search.Details) string {
	var sb strings.Builder
	p := d.Product
	sb.WriteString(fmt.Sprintf("## %s\n\n", p.Name))
	writeProductFields(&sb, p)

	if p.Description != "" {
		sb.WriteString(p.Description)
		sb.WriteString("\n\n")
	}
	writeList(&sb, "Features", p.Features)
	writeList(&sb, "Colors", p.Colors)
	writeList(&sb, "Materials", p.Materials)

	if len(d.Related) > 0 {
		sb.WriteString("### Related Products\n\n")
		for _, r := range d.Related {
			sb.WriteString(fmt.Sprintf("- %s `%s` %s\n", r.Name, r.ID, output.Money(r.Price)))
		}
	}
	return sb.String()
}

// writeList writes a titled bullet list when items is non-empty.
func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("**%s:**\n", title))
	for _, item := range items {
		sb.WriteString("- " + item + "\n")
	}
	sb.WriteString("\n")
}

// FormatComparison formats a comparison as a markdown table.
func FormatComparison(cmp *search.Comparison) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Comparing %d Products\n\n", len(cmp.Products)))
	sb.WriteString("| Product | Price | Rating | Reviews | Discount | Brand |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")
	for _, p := range cmp.Products {
		rating := "n/a"
		if p.Rating > 0 {
			rating = fmt.Sprintf("%.1f", p.Rating)
		}
		sb.WriteString(fmt.Sprintf("| %s (`%s`) | %s | %s | %d | %d%% | %s |\n",
			p.Name, p.ID, output.Money(p.Price), rating, p.ReviewCount, p.DiscountPercentage, p.Brand))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("- **Price range:** %s to %s (average %s)\n",
		output.Money(cmp.Price.Lowest), output.Money(cmp.Price.Highest), output.Money(cmp.Price.Average)))
	sb.WriteString(fmt.Sprintf("- **Rating range:** %.1f to %.1f (average %.1f)\n",
		cmp.Rating.Lowest, cmp.Rating.Highest, cmp.Rating.Average))
	if cmp.BestValue != "" {
		sb.WriteString(fmt.Sprintf("- **Best value:** `%s`\n", cmp.BestValue))
	}
	if cmp.HighestRated != "" {
		sb.WriteString(fmt.Sprintf("- **Highest rated:** `%s`\n", cmp.HighestRated))
	}
	if len(cmp.Missing) > 0 {
		sb.WriteString(fmt.Sprintf("\nNot found: %s\n", strings.Join(cmp.Missing, ", ")))
	}
	return sb.String()
}

// FormatDeals formats discounted products.
func FormatDeals(minDiscount int, products []product.Product) string {
	if len(products) == 0 {
		return fmt.Sprintf("No deals found with at least %d%% off.", minDiscount)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Deals: %d%% Off or More\n\n", minDiscount))
	for i, p := range products {
		formatProduct(&sb, i+1, p)
	}
	return sb.String()
}

// FormatCategories formats the catalog categories and brands.
func FormatCategories(cats []catalog.CategoryCount, brands []string) string {
	var sb strings.Builder
	sb.WriteString("## Categories\n\n")
	for _, c := range cats {
		sb.WriteString(fmt.Sprintf("- %s (%d)\n", c.Name, c.Count))
	}
	if len(brands) > 0 {
		sb.WriteString("\n## Brands\n\n")
		sb.WriteString(strings.Join(brands, ", "))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatStatus formats the server status.
func FormatStatus(st *StatusOutput) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s %s\n\n", st.Name, st.Version))
	sb.WriteString(fmt.Sprintf("- **Transport:** %s\n", st.Transport))
	live := "disabled"
	if st.LiveEnabled {
		live = "enabled"
	}
	sb.WriteString(fmt.Sprintf("- **Live search:** %s (circuit %s)\n", live, st.CircuitState))
	sb.WriteString(fmt.Sprintf("- **Catalog products:** %d\n", st.CatalogSize))
	sb.WriteString(fmt.Sprintf("- **Uptime:** %ds\n", st.UptimeSeconds))

	if m := st.Metrics; m != nil {
		sb.WriteString("\n### Searches\n\n")
		sb.WriteString(fmt.Sprintf("- **Total:** %d (live %d, fallback %d)\n", m.TotalSearches, m.LiveServed, m.FallbackServed))
		sb.WriteString(fmt.Sprintf("- **Live rate:** %.1f%%\n", m.LiveRate*100))
		sb.WriteString(fmt.Sprintf("- **Zero results:** %d\n", m.ZeroResultCount))
		if len(m.FailureReasons) > 0 {
			sb.WriteString("- **Live failures:**")
			for _, reason := range sortedKeys(m.FailureReasons) {
				sb.WriteString(fmt.Sprintf(" %s=%d", reason, m.FailureReasons[reason]))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// sortedKeys returns map keys in ascending order.
func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
