package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/tomrikert/wayfair-mcp-server/internal/config"
	"github.com/tomrikert/wayfair-mcp-server/internal/search"
	"github.com/tomrikert/wayfair-mcp-server/internal/telemetry"
	"github.com/tomrikert/wayfair-mcp-server/pkg/version"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// Server is the MCP server for wayfairmcp.
// It exposes product search and catalog browsing to AI clients.
type Server struct {
	mcp     *mcp.Server
	arbiter *search.Arbiter
	browser *search.Browser
	config  *config.Config
	logger  *slog.Logger
	started time.Time

	// Search telemetry (optional, set via SetMetrics)
	metrics *telemetry.Metrics

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "search_products",
		Description: "Search Wayfair for furniture and home goods. Returns ranked products with price, rating and availability. Results are live when the retailer site answers and otherwise come from an offline catalog; data_source says which. Filter with category, max_price and min_rating.",
	},
	{
		Name:        "get_product_details",
		Description: "Get full details for a catalog product by id, including description, features, materials and related products at a similar price.",
	},
	{
		Name:        "compare_products",
		Description: "Compare 1-10 products side by side. Reports price and rating ranges, the best value (lowest price per rating point) and the highest rated product.",
	},
	{
		Name:        "get_categories",
		Description: "List product categories with counts and the brands available in the catalog.",
	},
	{
		Name:        "get_deals",
		Description: "Find discounted products, largest discount first. min_discount sets the minimum percentage off (default 20).",
	},
	{
		Name:        "server_status",
		Description: "Report whether live search is enabled, the circuit breaker state, catalog size and search telemetry.",
	},
}

// NewServer creates a new MCP server.
func NewServer(arbiter *search.Arbiter, browser *search.Browser, cfg *config.Config) (*Server, error) {
	if arbiter == nil {
		return nil, errors.New("search arbiter is required")
	}
	if browser == nil {
		return nil, errors.New("catalog browser is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		arbiter: arbiter,
		browser: browser,
		config:  cfg,
		logger:  slog.Default(),
		started: time.Now(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    version.Name,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerCatalogResource()

	return s, nil
}

// SetMetrics sets the telemetry collector. When set, a metrics resource is
// registered and server_status includes search statistics.
func (s *Server) SetMetrics(m *telemetry.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m

	if m != nil {
		s.registerMetricsResource()
	}
}

// SetLogger replaces the server logger.
func (s *Server) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = l
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return version.Name, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name with JSON-style arguments and returns its
// structured output.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search_products":
		var in SearchProductsInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, _, err := s.searchProducts(ctx, in)
		return out, err
	case "get_product_details":
		var in ProductDetailsInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, _, err := s.productDetails(ctx, in)
		return out, err
	case "compare_products":
		var in CompareProductsInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, _, err := s.compareProducts(ctx, in)
		return out, err
	case "get_categories":
		out, _ := s.categories()
		return out, nil
	case "get_deals":
		var in DealsInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, _, err := s.deals(ctx, in)
		return out, err
	case "server_status":
		out, _ := s.status()
		return out, nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// decodeArgs converts a generic argument map into a typed input.
func decodeArgs(args map[string]any, dst any) error {
	if len(args) == 0 {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

// searchProducts runs a search and returns the structured and markdown forms.
func (s *Server) searchProducts(ctx context.Context, in SearchProductsInput) (SearchProductsOutput, string, error) {
	requestID := generateRequestID()
	logger := s.log()

	limit := in.Limit
	if limit == 0 {
		limit = s.config.Search.DefaultLimit
	}
	opts := []search.QueryOption{search.WithLimit(limit), search.WithCategory(in.Category)}
	if in.MaxPrice != nil {
		opts = append(opts, search.WithMaxPrice(*in.MaxPrice))
	}
	if in.MinRating != nil {
		opts = append(opts, search.WithMinRating(*in.MinRating))
	}
	q, err := search.NewQuery(in.Query, opts...)
	if err != nil {
		logger.Warn("search_products rejected",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return SearchProductsOutput{}, "", MapError(err)
	}

	logger.Info("search_products started",
		slog.String("request_id", requestID),
		slog.String("query", q.Text),
		slog.Int("limit", q.Limit))

	res, err := s.arbiter.Search(ctx, q)
	if err != nil {
		logger.Error("search_products failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return SearchProductsOutput{}, "", MapError(err)
	}

	logger.Info("search_products completed",
		slog.String("request_id", requestID),
		slog.String("source", string(res.DataSource.Source())),
		slog.Int("result_count", res.TotalResults),
		slog.Int64("elapsed_ms", res.ElapsedMS))

	return ToSearchOutput(res), FormatSearchResult(res), nil
}

// productDetails looks up one catalog product.
func (s *Server) productDetails(_ context.Context, in ProductDetailsInput) (ProductDetailsOutput, string, error) {
	if strings.TrimSpace(in.ProductID) == "" {
		return ProductDetailsOutput{}, "", NewInvalidParamsError("product_id parameter is required")
	}
	d, err := s.browser.Product(in.ProductID)
	if err != nil {
		s.log().Info("get_product_details miss",
			slog.String("product_id", in.ProductID),
			slog.String("error", err.Error()))
		return ProductDetailsOutput{}, "", MapError(err)
	}
	out := ProductDetailsOutput{
		Product: ToProductOutput(d.Product),
		Related: ToProductOutputs(d.Related),
	}
	return out, FormatDetails(d), nil
}

// compareProducts compares catalog products.
func (s *Server) compareProducts(_ context.Context, in CompareProductsInput) (CompareProductsOutput, string, error) {
	cmp, err := s.browser.Compare(in.ProductIDs)
	if err != nil {
		return CompareProductsOutput{}, "", MapError(err)
	}
	return ToCompareOutput(cmp), FormatComparison(cmp), nil
}

// categories lists catalog categories and brands.
func (s *Server) categories() (CategoriesOutput, string) {
	cats, brands := s.browser.Categories(), s.browser.Brands()
	return toCategoriesOutput(cats, brands), FormatCategories(cats, brands)
}

// deals lists discounted catalog products.
func (s *Server) deals(_ context.Context, in DealsInput) (DealsOutput, string, error) {
	minDiscount := search.DefaultMinDiscount
	if in.MinDiscount != nil {
		minDiscount = *in.MinDiscount
	}
	products, err := s.browser.Deals(minDiscount, in.Limit)
	if err != nil {
		return DealsOutput{}, "", MapError(err)
	}
	out := DealsOutput{
		MinDiscount: minDiscount,
		Products:    ToProductOutputs(products),
	}
	return out, FormatDeals(minDiscount, products), nil
}

// status reports server health and telemetry.
func (s *Server) status() (*StatusOutput, string) {
	s.mu.RLock()
	metrics := s.metrics
	s.mu.RUnlock()

	out := &StatusOutput{
		Name:          version.Name,
		Version:       version.Version,
		Transport:     s.config.Server.Transport,
		LiveEnabled:   s.arbiter.LiveEnabled(),
		CircuitState:  "disabled",
		CatalogSize:   s.browser.Len(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if cb := s.arbiter.Breaker(); cb != nil {
		out.CircuitState = cb.State().String()
	}
	if metrics != nil {
		out.Metrics = ToMetricsOutput(metrics.Snapshot())
	}
	return out, FormatStatus(out)
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchProductsHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpProductDetailsHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpCompareProductsHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[3].Name, Description: tools[3].Description}, s.mcpCategoriesHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[4].Name, Description: tools[4].Description}, s.mcpDealsHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[5].Name, Description: tools[5].Description}, s.mcpStatusHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", len(tools)))
}

// textResult wraps markdown as the tool's text content. The SDK fills in
// the structured content from the typed output.
func textResult(markdown string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: markdown}},
	}
}

// mcpSearchProductsHandler is the MCP SDK handler for the search_products tool.
func (s *Server) mcpSearchProductsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchProductsInput) (
	*mcp.CallToolResult,
	SearchProductsOutput,
	error,
) {
	out, md, err := s.searchProducts(ctx, input)
	if err != nil {
		return nil, SearchProductsOutput{}, err
	}
	return textResult(md), out, nil
}

// mcpProductDetailsHandler is the MCP SDK handler for the get_product_details tool.
func (s *Server) mcpProductDetailsHandler(ctx context.Context, _ *mcp.CallToolRequest, input ProductDetailsInput) (
	*mcp.CallToolResult,
	ProductDetailsOutput,
	error,
) {
	out, md, err := s.productDetails(ctx, input)
	if err != nil {
		return nil, ProductDetailsOutput{}, err
	}
	return textResult(md), out, nil
}

// mcpCompareProductsHandler is the MCP SDK handler for the compare_products tool.
func (s *Server) mcpCompareProductsHandler(ctx context.Context, _ *mcp.CallToolRequest, input CompareProductsInput) (
	*mcp.CallToolResult,
	CompareProductsOutput,
	error,
) {
	out, md, err := s.compareProducts(ctx, input)
	if err != nil {
		return nil, CompareProductsOutput{}, err
	}
	return textResult(md), out, nil
}

// mcpCategoriesHandler is the MCP SDK handler for the get_categories tool.
func (s *Server) mcpCategoriesHandler(_ context.Context, _ *mcp.CallToolRequest, _ CategoriesInput) (
	*mcp.CallToolResult,
	CategoriesOutput,
	error,
) {
	out, md := s.categories()
	return textResult(md), out, nil
}

// mcpDealsHandler is the MCP SDK handler for the get_deals tool.
func (s *Server) mcpDealsHandler(ctx context.Context, _ *mcp.CallToolRequest, input DealsInput) (
	*mcp.CallToolResult,
	DealsOutput,
	error,
) {
	out, md, err := s.deals(ctx, input)
	if err != nil {
		return nil, DealsOutput{}, err
	}
	return textResult(md), out, nil
}

// mcpStatusHandler is the MCP SDK handler for the server_status tool.
func (s *Server) mcpStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ StatusInput) (
	*mcp.CallToolResult,
	*StatusOutput,
	error,
) {
	out, md := s.status()
	return textResult(md), out, nil
}

// HTTPHandler returns the HTTP handler for the streamable HTTP transport.
// MCP is served on /mcp and a liveness probe on /healthz.
func (s *Server) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	logger := s.log()
	logger.Info("Starting MCP server",
		slog.String("transport", transport),
		slog.String("addr", addr))

	switch transport {
	case config.TransportStdio, "":
		logger.Debug("Using stdio transport for JSON-RPC")
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
		} else {
			logger.Info("MCP server stopped gracefully")
		}
		return err
	case config.TransportHTTP:
		return s.serveHTTP(ctx, addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: %s, %s)", transport, config.TransportStdio, config.TransportHTTP)
	}
}

// serveHTTP runs the streamable HTTP transport until ctx is canceled.
func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http transport: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if err != nil {
		s.log().Error("MCP server stopped with error", slog.String("error", err.Error()))
	} else {
		s.log().Info("MCP server stopped gracefully")
	}
	return err
}

// Close releases server resources.
func (s *Server) Close() error {
	s.mu.RLock()
	metrics := s.metrics
	s.mu.RUnlock()
	if metrics != nil {
		return metrics.Close()
	}
	return nil
}

func (s *Server) log() *slog.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logger
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
