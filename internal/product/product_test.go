package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAvailability(t *testing.T) {
	tests := []struct {
		text string
		want Availability
	}{
		{"In Stock", AvailabilityInStock},
		{"Only 2 left", AvailabilityInStock},
		{"Ships in 3 days", AvailabilityInStock},
		{"Out of Stock", AvailabilityOutOfStock},
		{"SOLD OUT", AvailabilityOutOfStock},
		{"Currently unavailable", AvailabilityOutOfStock},
		{"", AvailabilityUnknown},
		{"call for pricing", AvailabilityUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAvailability(tt.text))
		})
	}
}

func TestRawRecord_CloneIsDeep(t *testing.T) {
	// Given: a record with optional fields and slices
	orig := RawRecord{
		ID:     "WF_SOFA_001",
		Name:   "Sofa",
		Price:  Ptr("899.99"),
		Rating: Ptr(4.6),
		Tags:   []string{"sofa"},
	}

	// When: mutating the clone
	clone := orig.Clone()
	*clone.Price = "1.00"
	*clone.Rating = 1
	clone.Tags[0] = "bed"

	// Then: the original is untouched
	require.NotNil(t, orig.Price)
	assert.Equal(t, "899.99", *orig.Price)
	assert.Equal(t, 4.6, *orig.Rating)
	assert.Equal(t, []string{"sofa"}, orig.Tags)
	assert.Nil(t, clone.OriginalPrice)
}

func TestProduct_NativeID(t *testing.T) {
	p := Product{ID: "fallback:WF_BED_001", Source: SourceFallback}

	assert.Equal(t, "WF_BED_001", p.NativeID())
	assert.Equal(t, "live:", SourceLive.IDPrefix())
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"simple", "Modern Sofa", []string{"modern", "sofa"}},
		{"punctuation trimmed", "Sofa, Grey (3-Seater)!", []string{"sofa", "grey", "3-seater"}},
		{"duplicates removed", "sofa SOFA sofa", []string{"sofa"}},
		{"whitespace only", "  \t ", []string{}},
		{"symbols only", "$ -- !", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}
