package mcp

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tomrikert/wayfair-mcp-server/internal/catalog"
	"github.com/tomrikert/wayfair-mcp-server/internal/product"
	"github.com/tomrikert/wayfair-mcp-server/internal/search"
)

func sampleProduct() product.Product {
	orig := decimal.RequireFromString("1299.99")
	return product.Product{
		ID:                 "fallback:WF_SOFA_001",
		Name:               "Modern L-Shaped Sectional Sofa",
		Price:              decimal.RequireFromString("899.99"),
		OriginalPrice:      &orig,
		DiscountPercentage: 31,
		Rating:             4.6,
		ReviewCount:        1250,
		Availability:       product.AvailabilityInStock,
		Source:             product.SourceFallback,
		Brand:              "Wade Logan",
		URL:                "https://www.wayfair.com/sofa",
	}
}

func TestFormatSearchResult(t *testing.T) {
	// Given: a fallback result with one product
	res := &search.Result{
		Query:        search.Query{Text: "sofa", Limit: 10},
		Products:     []product.Product{sampleProduct()},
		TotalResults: 1,
		DataSource: search.DataSource{
			FallbackCount: 1,
			LiveAttempted: true,
			LiveFailure:   "blocked",
		},
	}

	// When: formatting
	md := FormatSearchResult(res)

	// Then: heading, provenance and product fields are rendered
	assert.Contains(t, md, `## Search Results for "sofa"`)
	assert.Contains(t, md, "live search failed: blocked")
	assert.Contains(t, md, "Found 1 product\n")
	assert.Contains(t, md, "### 1. Modern L-Shaped Sectional Sofa")
	assert.Contains(t, md, "$899.99 ~~$1,299.99~~ (31% off)")
	assert.Contains(t, md, "4.6/5 (1250 reviews)")
	assert.Contains(t, md, "in stock")
	assert.Contains(t, md, "`fallback:WF_SOFA_001`")
}

func TestFormatSearchResult_EmptyWithFilters(t *testing.T) {
	maxPrice := 10.0
	res := &search.Result{
		Query:      search.Query{Text: "sofa", Limit: 10, MaxPrice: &maxPrice},
		DataSource: search.DataSource{LiveAttempted: true, LiveSucceeded: true},
	}

	md := FormatSearchResult(res)

	assert.Contains(t, md, "live Wayfair results (0)")
	assert.Contains(t, md, "No products matched. Try relaxing the price or rating filters.")
}

func TestFormatSearchResult_BrowseSkipped(t *testing.T) {
	res := &search.Result{
		Query:      search.Query{Limit: 10},
		DataSource: search.DataSource{LiveFailure: "disabled", DroppedRecords: 2, Issues: []string{"missing rating"}},
	}

	md := FormatSearchResult(res)

	assert.Contains(t, md, "## Catalog Browse")
	assert.Contains(t, md, "live search skipped: disabled")
	assert.Contains(t, md, "**Dropped:** 2")
	assert.Contains(t, md, "> missing rating")
}

func TestFormatDetails(t *testing.T) {
	p := sampleProduct()
	p.Description = "Roomy sectional."
	p.Features = []string{"Reversible chaise"}
	related := sampleProduct()
	related.ID = "fallback:WF_SOFA_002"
	related.Name = "Comfortable 3-Seater Sofa"

	md := FormatDetails(&search.Details{Product: p, Related: []product.Product{related}})

	assert.Contains(t, md, "## Modern L-Shaped Sectional Sofa\n")
	assert.Contains(t, md, "Roomy sectional.")
	assert.Contains(t, md, "**Features:**\n- Reversible chaise")
	assert.Contains(t, md, "### Related Products")
	assert.Contains(t, md, "Comfortable 3-Seater Sofa `fallback:WF_SOFA_002`")
}

func TestFormatComparison(t *testing.T) {
	cmp := &search.Comparison{
		Products: []product.Product{sampleProduct()},
		Missing:  []string{"WF_X"},
		Price: search.PriceSummary{
			Lowest:  decimal.RequireFromString("899.99"),
			Highest: decimal.RequireFromString("899.99"),
			Average: decimal.RequireFromString("899.99"),
		},
		Rating:       search.RatingSummary{Lowest: 4.6, Highest: 4.6, Average: 4.6},
		BestValue:    "fallback:WF_SOFA_001",
		HighestRated: "fallback:WF_SOFA_001",
	}

	md := FormatComparison(cmp)

	assert.Contains(t, md, "## Comparing 1 Products")
	assert.Contains(t, md, "| Modern L-Shaped Sectional Sofa (`fallback:WF_SOFA_001`) | $899.99 | 4.6 | 1250 | 31% | Wade Logan |")
	assert.Contains(t, md, "**Best value:** `fallback:WF_SOFA_001`")
	assert.Contains(t, md, "Not found: WF_X")
}

func TestFormatDeals(t *testing.T) {
	assert.Equal(t, "No deals found with at least 90% off.", FormatDeals(90, nil))
	assert.Contains(t, FormatDeals(20, []product.Product{sampleProduct()}), "## Deals: 20% Off or More")
}

func TestFormatCategories(t *testing.T) {
	md := FormatCategories(
		[]catalog.CategoryCount{{Name: "Bedroom", Count: 4}},
		[]string{"Three Posts", "Wade Logan"})

	assert.Contains(t, md, "- Bedroom (4)")
	assert.Contains(t, md, "Three Posts, Wade Logan")
}

func TestFormatStatus(t *testing.T) {
	md := FormatStatus(&StatusOutput{
		Name:         "wayfairmcp",
		Version:      "dev",
		Transport:    "stdio",
		LiveEnabled:  true,
		CircuitState: "closed",
		CatalogSize:  16,
		Metrics: &MetricsOutput{
			TotalSearches:  4,
			LiveServed:     1,
			FallbackServed: 3,
			LiveRate:       0.25,
			FailureReasons: map[string]int64{"timeout": 2, "blocked": 1},
		},
	})

	assert.Contains(t, md, "**Live search:** enabled (circuit closed)")
	assert.Contains(t, md, "**Live rate:** 25.0%")
	assert.Contains(t, md, "**Live failures:** blocked=1 timeout=2")
}
