package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resource URIs.
const (
	CatalogResourceURI = "wayfair://catalog"
	MetricsResourceURI = "wayfair://metrics"
)

// registerCatalogResource registers the catalog overview resource.
func (s *Server) registerCatalogResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "catalog",
			URI:         CatalogResourceURI,
			Description: "Offline catalog categories, brands and product count",
			MIMEType:    "application/json",
		},
		s.handleCatalogResource,
	)
}

// CatalogResourceOutput is the JSON structure for the catalog resource.
type CatalogResourceOutput struct {
	Products   int              `json:"products"`
	Categories []CategoryOutput `json:"categories"`
	Brands     []string         `json:"brands"`
}

// handleCatalogResource serves the catalog overview.
func (s *Server) handleCatalogResource(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	cats, _ := s.categories()
	return jsonResource(CatalogResourceURI, CatalogResourceOutput{
		Products:   s.browser.Len(),
		Categories: cats.Categories,
		Brands:     cats.Brands,
	})
}

// registerMetricsResource registers the search telemetry resource.
func (s *Server) registerMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "search_metrics",
			URI:         MetricsResourceURI,
			Description: "Search telemetry: live versus fallback counts, failure reasons and top terms",
			MIMEType:    "application/json",
		},
		s.handleMetricsResource,
	)
}

// handleMetricsResource serves the current telemetry snapshot.
func (s *Server) handleMetricsResource(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	s.mu.RLock()
	metrics := s.metrics
	s.mu.RUnlock()

	if metrics == nil {
		return nil, &MCPError{
			Code:    ErrCodeMetricsUnavailable,
			Message: "search metrics not available",
		}
	}
	return jsonResource(MetricsResourceURI, ToMetricsOutput(metrics.Snapshot()))
}

// jsonResource marshals v as an indented JSON resource.
func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(content),
			},
		},
	}, nil
}
