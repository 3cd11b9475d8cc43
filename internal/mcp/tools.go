package mcp

import (
	"time"

	"github.com/tomrikert/wayfair-mcp-server/internal/catalog"
	"github.com/tomrikert/wayfair-mcp-server/internal/product"
	"github.com/tomrikert/wayfair-mcp-server/internal/search"
	"github.com/tomrikert/wayfair-mcp-server/internal/telemetry"
)

// SearchProductsInput defines the input schema for the search_products tool.
type SearchProductsInput struct {
	Query     string   `json:"query,omitempty" jsonschema:"what to search for, e.g. blue velvet sofa; empty browses the catalog"`
	Category  string   `json:"category,omitempty" jsonschema:"only return products in this category, e.g. Living Room (see get_categories)"`
	Limit     int      `json:"limit,omitempty" jsonschema:"maximum number of results (1-100), default 10"`
	MaxPrice  *float64 `json:"max_price,omitempty" jsonschema:"only return products priced at or below this amount in USD"`
	MinRating *float64 `json:"min_rating,omitempty" jsonschema:"only return products rated at or above this value (0-5)"`
}

// SearchProductsOutput defines the output schema for the search_products tool.
type SearchProductsOutput struct {
	Query        string           `json:"query"`
	Category     string           `json:"category,omitempty"`
	Products     []ProductOutput  `json:"products" jsonschema:"ranked products, all from the same data source"`
	TotalResults int              `json:"total_results"`
	DataSource   DataSourceOutput `json:"data_source" jsonschema:"where the products came from and why"`
	ElapsedMS    int64            `json:"elapsed_ms"`
}

// DataSourceOutput reports the provenance of a search result.
type DataSourceOutput struct {
	Source         string   `json:"source" jsonschema:"live or fallback"`
	LiveCount      int      `json:"live_count"`
	FallbackCount  int      `json:"fallback_count"`
	LiveAttempted  bool     `json:"live_attempted"`
	LiveSucceeded  bool     `json:"live_succeeded"`
	LiveFailure    string   `json:"live_failure,omitempty" jsonschema:"why live data was not used"`
	DroppedRecords int      `json:"dropped_records"`
	Issues         []string `json:"issues,omitempty"`
}

// ProductOutput is the wire form of a product. Money is rendered as float64
// for clients; arithmetic stays in decimal inside the server.
type ProductOutput struct {
	ID                 string   `json:"id" jsonschema:"product id, prefixed live: or fallback:"`
	Name               string   `json:"name"`
	Price              float64  `json:"price"`
	OriginalPrice      *float64 `json:"original_price,omitempty"`
	DiscountPercentage int      `json:"discount_percentage"`
	Rating             float64  `json:"rating"`
	ReviewCount        int      `json:"review_count"`
	Availability       string   `json:"availability"`
	Source             string   `json:"source"`
	URL                string   `json:"url,omitempty"`
	ImageURL           string   `json:"image_url,omitempty"`
	Brand              string   `json:"brand,omitempty"`
	Category           string   `json:"category,omitempty"`
	Description        string   `json:"description,omitempty"`
	DeliveryEstimate   string   `json:"delivery_estimate,omitempty"`
	Features           []string `json:"features,omitempty"`
	Colors             []string `json:"colors,omitempty"`
	Materials          []string `json:"materials,omitempty"`
}

// ProductDetailsInput defines the input schema for the get_product_details tool.
type ProductDetailsInput struct {
	ProductID string `json:"product_id" jsonschema:"id returned by search_products or get_deals"`
}

// ProductDetailsOutput defines the output schema for the get_product_details tool.
type ProductDetailsOutput struct {
	Product ProductOutput   `json:"product"`
	Related []ProductOutput `json:"related" jsonschema:"same-category products at a similar price"`
}

// CompareProductsInput defines the input schema for the compare_products tool.
type CompareProductsInput struct {
	ProductIDs []string `json:"product_ids" jsonschema:"ids to compare side by side (1-10)"`
}

// CompareProductsOutput defines the output schema for the compare_products tool.
type CompareProductsOutput struct {
	Products     []ProductOutput `json:"products"`
	Missing      []string        `json:"missing,omitempty" jsonschema:"requested ids that did not resolve"`
	PriceRange   RangeOutput     `json:"price_range"`
	RatingRange  RangeOutput     `json:"rating_range"`
	BestValue    string          `json:"best_value" jsonschema:"id with the lowest price per rating point"`
	HighestRated string          `json:"highest_rated"`
}

// RangeOutput summarizes a numeric attribute across products.
type RangeOutput struct {
	Lowest  float64 `json:"lowest"`
	Highest float64 `json:"highest"`
	Average float64 `json:"average"`
}

// CategoriesInput defines the input schema for the get_categories tool (no parameters).
type CategoriesInput struct{}

// CategoriesOutput defines the output schema for the get_categories tool.
type CategoriesOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Brands     []string         `json:"brands"`
}

// CategoryOutput is a category and its product count.
type CategoryOutput struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DealsInput defines the input schema for the get_deals tool.
type DealsInput struct {
	MinDiscount *int `json:"min_discount,omitempty" jsonschema:"minimum discount percentage (0-100), default 20"`
	Limit       int  `json:"limit,omitempty" jsonschema:"maximum number of deals (1-100), default 10"`
}

// DealsOutput defines the output schema for the get_deals tool.
type DealsOutput struct {
	MinDiscount int             `json:"min_discount"`
	Products    []ProductOutput `json:"products"`
}

// StatusInput defines the input schema for the server_status tool (no parameters).
type StatusInput struct{}

// StatusOutput defines the output schema for the server_status tool.
type StatusOutput struct {
	Name          string         `json:"name"`
	Version       string         `json:"version"`
	Transport     string         `json:"transport"`
	LiveEnabled   bool           `json:"live_enabled" jsonschema:"whether live retailer search is configured"`
	CircuitState  string         `json:"circuit_state" jsonschema:"closed, open, half-open or disabled"`
	CatalogSize   int            `json:"catalog_size"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Metrics       *MetricsOutput `json:"metrics,omitempty"`
}

// MetricsOutput is the telemetry summary shared by server_status and the
// metrics resource.
type MetricsOutput struct {
	TotalSearches       int64            `json:"total_searches"`
	LiveServed          int64            `json:"live_served"`
	FallbackServed      int64            `json:"fallback_served"`
	LiveSkipped         int64            `json:"live_skipped"`
	LiveRate            float64          `json:"live_rate"`
	FailureReasons      map[string]int64 `json:"failure_reasons"`
	DroppedRecords      int64            `json:"dropped_records"`
	ZeroResultCount     int64            `json:"zero_result_count"`
	ZeroResultQueries   []string         `json:"zero_result_queries"`
	TopTerms            []TermCount      `json:"top_terms"`
	LatencyDistribution map[string]int64 `json:"latency_distribution"`
	Since               string           `json:"since"`
}

// TermCount represents a query term and its frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// ToProductOutput converts a product to its wire form.
func ToProductOutput(p product.Product) ProductOutput {
	out := ProductOutput{
		ID:                 p.ID,
		Name:               p.Name,
		Price:              p.Price.InexactFloat64(),
		DiscountPercentage: p.DiscountPercentage,
		Rating:             p.Rating,
		ReviewCount:        p.ReviewCount,
		Availability:       string(p.Availability),
		Source:             string(p.Source),
		URL:                p.URL,
		ImageURL:           p.ImageURL,
		Brand:              p.Brand,
		Category:           p.Category,
		Description:        p.Description,
		DeliveryEstimate:   p.Delivery,
		Features:           p.Features,
		Colors:             p.Colors,
		Materials:          p.Materials,
	}
	if p.OriginalPrice != nil {
		op := p.OriginalPrice.InexactFloat64()
		out.OriginalPrice = &op
	}
	return out
}

// ToProductOutputs converts products, always returning a non-nil slice.
func ToProductOutputs(ps []product.Product) []ProductOutput {
	out := make([]ProductOutput, 0, len(ps))
	for _, p := range ps {
		out = append(out, ToProductOutput(p))
	}
	return out
}

// ToSearchOutput converts an arbiter result to the search_products output.
func ToSearchOutput(res *search.Result) SearchProductsOutput {
	ds := res.DataSource
	return SearchProductsOutput{
		Query:        res.Query.Text,
		Category:     res.Query.Category,
		Products:     ToProductOutputs(res.Products),
		TotalResults: res.TotalResults,
		DataSource: DataSourceOutput{
			Source:         string(ds.Source()),
			LiveCount:      ds.LiveCount,
			FallbackCount:  ds.FallbackCount,
			LiveAttempted:  ds.LiveAttempted,
			LiveSucceeded:  ds.LiveSucceeded,
			LiveFailure:    ds.LiveFailure,
			DroppedRecords: ds.DroppedRecords,
			Issues:         ds.Issues,
		},
		ElapsedMS: res.ElapsedMS,
	}
}

// ToCompareOutput converts a comparison to the compare_products output.
func ToCompareOutput(cmp *search.Comparison) CompareProductsOutput {
	return CompareProductsOutput{
		Products: ToProductOutputs(cmp.Products),
		Missing:  cmp.Missing,
		PriceRange: RangeOutput{
			Lowest:  cmp.Price.Lowest.InexactFloat64(),
			Highest: cmp.Price.Highest.InexactFloat64(),
			Average: cmp.Price.Average.InexactFloat64(),
		},
		RatingRange: RangeOutput{
			Lowest:  cmp.Rating.Lowest,
			Highest: cmp.Rating.Highest,
			Average: cmp.Rating.Average,
		},
		BestValue:    cmp.BestValue,
		HighestRated: cmp.HighestRated,
	}
}

// toCategoriesOutput converts catalog counts and brands.
func toCategoriesOutput(cats []catalog.CategoryCount, brands []string) CategoriesOutput {
	out := CategoriesOutput{
		Categories: make([]CategoryOutput, 0, len(cats)),
		Brands:     make([]string, 0, len(brands)),
	}
	for _, c := range cats {
		out.Categories = append(out.Categories, CategoryOutput{Name: c.Name, Count: c.Count})
	}
	out.Brands = append(out.Brands, brands...)
	return out
}

// ToMetricsOutput converts a telemetry snapshot.
func ToMetricsOutput(snap *telemetry.Snapshot) *MetricsOutput {
	if snap == nil {
		return nil
	}
	out := &MetricsOutput{
		TotalSearches:       snap.TotalSearches,
		LiveServed:          snap.LiveServed,
		FallbackServed:      snap.FallbackServed,
		LiveSkipped:         snap.LiveSkipped,
		LiveRate:            snap.LiveRate(),
		FailureReasons:      make(map[string]int64, len(snap.FailureReasons)),
		DroppedRecords:      snap.DroppedRecords,
		ZeroResultCount:     snap.ZeroResultCount,
		ZeroResultQueries:   make([]string, 0, len(snap.ZeroResultQueries)),
		TopTerms:            make([]TermCount, 0, len(snap.TopTerms)),
		LatencyDistribution: make(map[string]int64, len(snap.LatencyDistribution)),
		Since:               snap.Since.UTC().Format(time.RFC3339),
	}
	for reason, n := range snap.FailureReasons {
		out.FailureReasons[reason] = n
	}
	out.ZeroResultQueries = append(out.ZeroResultQueries, snap.ZeroResultQueries...)
	for _, tc := range snap.TopTerms {
		out.TopTerms = append(out.TopTerms, TermCount{Term: tc.Term, Count: tc.Count})
	}
	for bucket, n := range snap.LatencyDistribution {
		out.LatencyDistribution[string(bucket)] = n
	}
	return out
}
