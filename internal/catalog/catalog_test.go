package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wferrors "github.com/tomrikert/wayfair-mcp-server/internal/errors"
	"github.com/tomrikert/wayfair-mcp-server/internal/product"
)

func names(records []product.RawRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestDefault_LoadsEmbeddedDataset(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 16, c.Len())

	r, ok := c.Get("WF_SOFA_001")
	require.True(t, ok)
	assert.Equal(t, "Modern L-Shaped Sectional Sofa", r.Name)
	require.NotNil(t, r.Price)
	assert.Equal(t, "899.99", *r.Price)
	require.NotNil(t, r.OriginalPrice)
	assert.Equal(t, "1299.99", *r.OriginalPrice)
	require.NotNil(t, r.Rating)
	assert.Equal(t, 4.6, *r.Rating)
}

func TestLoadFallback_MatchesNameAndTags(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	// When: looking up sofas
	got := c.LoadFallback("sofa")

	// Then: exactly the two sofa entries come back in dataset order
	assert.Equal(t, []string{"Modern L-Shaped Sectional Sofa", "Comfortable 3-Seater Sofa"}, names(got))

	// And: tag-only matches are included
	couch := c.LoadFallback("couch")
	assert.Len(t, couch, 2)
}

func TestLoadFallback_EmptyTextReturnsEverything(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Len(t, c.LoadFallback(""), c.Len())
	assert.Len(t, c.LoadFallback("   "), c.Len())
	assert.Empty(t, c.LoadFallback("spaceship"))
}

func TestLoadFallback_IsIdempotent(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	first := c.LoadFallback("dining table")
	second := c.LoadFallback("dining table")

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestLoadFallback_ReturnsCopies(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	// Given: a caller that mutates its result
	got := c.LoadFallback("sofa")
	*got[0].Price = "0.01"
	got[0].Name = "changed"

	// Then: the catalog is unaffected
	again := c.LoadFallback("sofa")
	assert.Equal(t, "899.99", *again[0].Price)
	assert.Equal(t, "Modern L-Shaped Sectional Sofa", again[0].Name)
}

func TestGet_Unknown(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	_, ok := c.Get("WF_NOPE")
	assert.False(t, ok)
}

func TestCategoriesAndBrands(t *testing.T) {
	c, err := New([]product.RawRecord{
		{ID: "a", Name: "A", Category: "Bedroom", Brand: "Zeta"},
		{ID: "b", Name: "B", Category: "Bedroom", Brand: "Alpha"},
		{ID: "c", Name: "C", Category: "Dining", Brand: "Alpha"},
		{ID: "d", Name: "D"},
	})
	require.NoError(t, err)

	assert.Equal(t, []CategoryCount{{"Bedroom", 2}, {"Dining", 1}}, c.Categories())
	assert.Equal(t, []string{"Alpha", "Zeta"}, c.Brands())
}

func TestNew_RejectsBadRecords(t *testing.T) {
	tests := []struct {
		name    string
		records []product.RawRecord
	}{
		{"missing id", []product.RawRecord{{Name: "A"}}},
		{"duplicate id", []product.RawRecord{{ID: "x", Name: "A"}, {ID: "x", Name: "B"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.records)
			require.Error(t, err)
			assert.Equal(t, wferrors.ErrCodeCatalogInvalid, wferrors.GetCode(err))
		})
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte("{not json"))

	require.Error(t, err)
	assert.True(t, wferrors.IsFatal(err))
}

func TestLoad_FromFile(t *testing.T) {
	// Given: an external catalog file
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	data := `{"version":1,"products":[{"id":"X1","name":"Test Lamp","price":"19.50","tags":["lamp"]}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	// When: loading it
	c, err := Load(path)
	require.NoError(t, err)

	// Then: the record is available with its price text intact
	got := c.LoadFallback("lamp")
	require.Len(t, got, 1)
	assert.Equal(t, "19.50", *got[0].Price)
	assert.Nil(t, got[0].OriginalPrice)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))

	require.Error(t, err)
	assert.Equal(t, wferrors.ErrCodeFileNotFound, wferrors.GetCode(err))
}

func TestLoad_EmptyPathUsesEmbedded(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 16, c.Len())
}
