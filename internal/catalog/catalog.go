// Package catalog serves the static fallback product dataset.
//
// The dataset is embedded at build time and can be replaced by an external
// JSON file with the same schema. A Catalog never changes after it is built,
// so lookups are deterministic for the lifetime of the process and safe for
// concurrent use.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	wferrors "github.com/tomrikert/wayfair-mcp-server/internal/errors"
	"github.com/tomrikert/wayfair-mcp-server/internal/product"
)

//go:embed products.json
var embeddedProducts []byte

// file is the on-disk dataset schema.
type file struct {
	Version  int     `json:"version"`
	Products []entry `json:"products"`
}

type entry struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Category      string      `json:"category"`
	Brand         string      `json:"brand"`
	Price         json.Number `json:"price"`
	OriginalPrice json.Number `json:"original_price,omitempty"`
	Rating        *float64    `json:"rating,omitempty"`
	ReviewCount   *int        `json:"review_count,omitempty"`
	Availability  string      `json:"availability,omitempty"`
	Delivery      string      `json:"delivery_estimate,omitempty"`
	Description   string      `json:"description,omitempty"`
	Features      []string    `json:"features,omitempty"`
	Colors        []string    `json:"colors,omitempty"`
	Materials     []string    `json:"materials,omitempty"`
	Tags          []string    `json:"tags,omitempty"`
	URL           string      `json:"url,omitempty"`
	ImageURL      string      `json:"image_url,omitempty"`
}

func (e entry) record() product.RawRecord {
	r := product.RawRecord{
		ID:          e.ID,
		Name:        e.Name,
		URL:         e.URL,
		ImageURL:    e.ImageURL,
		Brand:       e.Brand,
		Category:    e.Category,
		Description: e.Description,
		Delivery:    e.Delivery,
		Rating:      e.Rating,
		ReviewCount: e.ReviewCount,
		Features:    e.Features,
		Colors:      e.Colors,
		Materials:   e.Materials,
		Tags:        e.Tags,
	}
	if e.Price != "" {
		r.Price = product.Ptr(e.Price.String())
	}
	if e.OriginalPrice != "" {
		r.OriginalPrice = product.Ptr(e.OriginalPrice.String())
	}
	if e.Availability != "" {
		r.Availability = product.Ptr(e.Availability)
	}
	return r
}

// CategoryCount is a category name with the number of products in it.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Catalog is an immutable, indexed set of fallback records.
type Catalog struct {
	records []product.RawRecord
	tokens  [][]string
	byID    map[string]int
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(embeddedProducts)
}

// Load reads a catalog from a JSON file. An empty path returns the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wferrors.New(wferrors.ErrCodeFileNotFound,
			fmt.Sprintf("failed to read catalog %s", path), err).
			WithSuggestion("Check catalog.path in your configuration")
	}
	return Parse(data)
}

// Parse builds a catalog from JSON data.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, wferrors.New(wferrors.ErrCodeCatalogInvalid, "catalog is not valid JSON", err)
	}

	records := make([]product.RawRecord, 0, len(f.Products))
	for i, e := range f.Products {
		if strings.TrimSpace(e.ID) == "" {
			return nil, wferrors.New(wferrors.ErrCodeCatalogInvalid,
				fmt.Sprintf("catalog product #%d has no id", i), nil)
		}
		records = append(records, e.record())
	}
	return New(records)
}

// New builds a catalog from records. Ids must be unique and non-empty.
// Records are copied, so callers may reuse the slice.
func New(records []product.RawRecord) (*Catalog, error) {
	c := &Catalog{
		records: make([]product.RawRecord, 0, len(records)),
		tokens:  make([][]string, 0, len(records)),
		byID:    make(map[string]int, len(records)),
	}

	for _, r := range records {
		if r.ID == "" {
			return nil, wferrors.New(wferrors.ErrCodeCatalogInvalid, "catalog record has no id", nil).
				WithDetail("name", r.Name)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, wferrors.New(wferrors.ErrCodeCatalogInvalid,
				fmt.Sprintf("duplicate catalog id %q", r.ID), nil)
		}
		c.byID[r.ID] = len(c.records)
		c.records = append(c.records, r.Clone())
		c.tokens = append(c.tokens, searchTokens(r))
	}

	return c, nil
}

// searchTokens returns the lookup vocabulary for a record: its name and tags.
func searchTokens(r product.RawRecord) []string {
	text := r.Name + " " + strings.Join(r.Tags, " ")
	return product.Tokenize(text)
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.records)
}

// LoadFallback returns the records whose name or tags share a token with text,
// in dataset order. An empty text returns every record.
// The result is a fresh copy on every call.
func (c *Catalog) LoadFallback(text string) []product.RawRecord {
	query := product.Tokenize(text)
	out := make([]product.RawRecord, 0)

	for i, r := range c.records {
		if len(query) == 0 || sharesToken(query, c.tokens[i]) {
			out = append(out, r.Clone())
		}
	}
	return out
}

func sharesToken(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// Get returns the record with the given native id.
func (c *Catalog) Get(id string) (product.RawRecord, bool) {
	i, ok := c.byID[id]
	if !ok {
		return product.RawRecord{}, false
	}
	return c.records[i].Clone(), true
}

// All returns a copy of every record in dataset order.
func (c *Catalog) All() []product.RawRecord {
	out := make([]product.RawRecord, len(c.records))
	for i, r := range c.records {
		out[i] = r.Clone()
	}
	return out
}

// Categories returns the categories present in the catalog, sorted by name.
func (c *Catalog) Categories() []CategoryCount {
	counts := make(map[string]int)
	for _, r := range c.records {
		if r.Category != "" {
			counts[r.Category]++
		}
	}

	out := make([]CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, CategoryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Brands returns the distinct brand names, sorted.
func (c *Catalog) Brands() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range c.records {
		if r.Brand == "" {
			continue
		}
		if _, ok := seen[r.Brand]; ok {
			continue
		}
		seen[r.Brand] = struct{}{}
		out = append(out, r.Brand)
	}
	sort.Strings(out)
	return out
}
