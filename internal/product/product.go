// Package product defines the record types shared by the extraction adapter,
// the fallback catalog and the search arbiter.
package product

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Source identifies where a product came from.
type Source string

const (
	// SourceLive marks products extracted from the retailer site at request time.
	SourceLive Source = "live"
	// SourceFallback marks products served from the static catalog.
	SourceFallback Source = "fallback"
)

// IDPrefix returns the prefix used to namespace product ids from this source.
func (s Source) IDPrefix() string {
	return string(s) + ":"
}

// Availability is the normalized stock status.
type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
	AvailabilityUnknown    Availability = "unknown"
)

// ParseAvailability maps free-form stock text to an Availability.
func ParseAvailability(text string) Availability {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case t == "":
		return AvailabilityUnknown
	case strings.Contains(t, "out of stock"), strings.Contains(t, "sold out"),
		strings.Contains(t, "unavailable"), strings.Contains(t, "discontinued"):
		return AvailabilityOutOfStock
	case strings.Contains(t, "in stock"), strings.Contains(t, "left"),
		strings.Contains(t, "available"), strings.Contains(t, "ships"):
		return AvailabilityInStock
	default:
		return AvailabilityUnknown
	}
}

// RawRecord is a loosely typed record as extracted from a source.
// Optional fields are pointers; nil means the field was missing or unparsable.
type RawRecord struct {
	ID          string
	Name        string
	URL         string
	ImageURL    string
	Brand       string
	Category    string
	Description string
	Delivery    string

	Price         *string
	OriginalPrice *string
	Rating        *float64
	ReviewCount   *int
	Availability  *string

	Features  []string
	Colors    []string
	Materials []string
	Tags      []string
}

// Clone returns a deep copy of r.
func (r RawRecord) Clone() RawRecord {
	out := r
	out.Price = clonePtr(r.Price)
	out.OriginalPrice = clonePtr(r.OriginalPrice)
	out.Rating = clonePtr(r.Rating)
	out.ReviewCount = clonePtr(r.ReviewCount)
	out.Availability = clonePtr(r.Availability)
	out.Features = cloneSlice(r.Features)
	out.Colors = cloneSlice(r.Colors)
	out.Materials = cloneSlice(r.Materials)
	out.Tags = cloneSlice(r.Tags)
	return out
}

// Ptr returns a pointer to v. Convenient for building RawRecords.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneSlice(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// Product is the canonical product entity returned to callers.
type Product struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Price              decimal.Decimal  `json:"price"`
	OriginalPrice      *decimal.Decimal `json:"original_price,omitempty"`
	DiscountPercentage int              `json:"discount_percentage"`
	Rating             float64          `json:"rating"`
	ReviewCount        int              `json:"review_count"`
	Availability       Availability     `json:"availability"`
	Source             Source           `json:"source"`

	URL         string   `json:"url,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Brand       string   `json:"brand,omitempty"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Delivery    string   `json:"delivery_estimate,omitempty"`
	Features    []string `json:"features,omitempty"`
	Colors      []string `json:"colors,omitempty"`
	Materials   []string `json:"materials,omitempty"`
}

// NativeID returns the id without its source prefix.
func (p Product) NativeID() string {
	return strings.TrimPrefix(p.ID, p.Source.IDPrefix())
}
