package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomrikert/wayfair-mcp-server/internal/catalog"
	wferrors "github.com/tomrikert/wayfair-mcp-server/internal/errors"
)

func newTestBrowser(t *testing.T) *Browser {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	b, err := NewBrowser(c)
	require.NoError(t, err)
	return b
}

func TestNewBrowser_RequiresCatalog(t *testing.T) {
	_, err := NewBrowser(nil)
	require.ErrorIs(t, err, ErrNilDependency)
}

func TestBrowserProduct_AcceptsPrefixedAndBareIDs(t *testing.T) {
	b := newTestBrowser(t)

	bare, err := b.Product("WF_BED_001")
	require.NoError(t, err)
	prefixed, err := b.Product("fallback:WF_BED_001")
	require.NoError(t, err)

	assert.Equal(t, "fallback:WF_BED_001", bare.Product.ID)
	assert.Equal(t, bare, prefixed)
}

func TestBrowserProduct_RelatedWithinPriceBand(t *testing.T) {
	b := newTestBrowser(t)

	// When: looking up a 299.99 bedroom item
	d, err := b.Product("WF_BED_001")
	require.NoError(t, err)

	// Then: only same-category items priced 209.99..389.99 are related
	assert.Equal(t, []string{"fallback:WF_DRESSER_001"}, ids(d.Related))
}

func TestBrowserProduct_NoRelatedIsEmptySlice(t *testing.T) {
	b := newTestBrowser(t)

	d, err := b.Product("WF_SOFA_001")
	require.NoError(t, err)
	assert.NotNil(t, d.Related)
	assert.Empty(t, d.Related)
}

func TestBrowserProduct_NotFound(t *testing.T) {
	b := newTestBrowser(t)

	_, err := b.Product("WF_NOPE")
	require.Error(t, err)
	assert.Equal(t, wferrors.ErrCodeProductNotFound, wferrors.GetCode(err))

	_, err = b.Product("live:12345")
	require.Error(t, err)
	var we *wferrors.WayfairError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, wferrors.ErrCodeProductNotFound, we.Code)
	assert.Contains(t, we.Suggestion, "not cached")
}

func TestBrowserCompare_Summaries(t *testing.T) {
	b := newTestBrowser(t)

	cmp, err := b.Compare([]string{"WF_SOFA_001", "fallback:WF_SOFA_002", "WF_MISSING"})
	require.NoError(t, err)

	assert.Equal(t, []string{"fallback:WF_SOFA_001", "fallback:WF_SOFA_002"}, ids(cmp.Products))
	assert.Equal(t, []string{"WF_MISSING"}, cmp.Missing)
	assert.Equal(t, "599.99", cmp.Price.Lowest.StringFixed(2))
	assert.Equal(t, "899.99", cmp.Price.Highest.StringFixed(2))
	assert.Equal(t, "749.99", cmp.Price.Average.StringFixed(2))
	assert.Equal(t, 4.4, cmp.Rating.Lowest)
	assert.Equal(t, 4.6, cmp.Rating.Highest)
	assert.Equal(t, 4.5, cmp.Rating.Average)
	assert.Equal(t, "fallback:WF_SOFA_002", cmp.BestValue)
	assert.Equal(t, "fallback:WF_SOFA_001", cmp.HighestRated)
}

func TestBrowserCompare_DuplicateIDsCountOnce(t *testing.T) {
	b := newTestBrowser(t)

	cmp, err := b.Compare([]string{"WF_BED_001", "fallback:WF_BED_001"})
	require.NoError(t, err)
	assert.Len(t, cmp.Products, 1)
}

func TestBrowserCompare_Bounds(t *testing.T) {
	b := newTestBrowser(t)

	_, err := b.Compare(nil)
	assert.Equal(t, wferrors.ErrCodeTooFewProducts, wferrors.GetCode(err))

	many := make([]string, MaxCompare+1)
	for i := range many {
		many[i] = "WF_SOFA_001"
	}
	_, err = b.Compare(many)
	assert.Equal(t, wferrors.ErrCodeTooManyProducts, wferrors.GetCode(err))

	_, err = b.Compare([]string{"WF_X", "WF_Y"})
	assert.Equal(t, wferrors.ErrCodeProductNotFound, wferrors.GetCode(err))
}

func TestBrowserDeals(t *testing.T) {
	b := newTestBrowser(t)

	deals, err := b.Deals(30, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"fallback:WF_OUTDOOR_001",
		"fallback:WF_OFFICE_001",
		"fallback:WF_SOFA_001",
		"fallback:WF_NIGHT_001",
		"fallback:WF_DECOR_001",
		"fallback:WF_OFFICE_002",
	}, ids(deals))
	assert.Equal(t, 44, deals[0].DiscountPercentage)

	top, err := b.Deals(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback:WF_OUTDOOR_001", "fallback:WF_OFFICE_001"}, ids(top))
}

func TestBrowserDeals_Validation(t *testing.T) {
	b := newTestBrowser(t)

	_, err := b.Deals(101, 10)
	assert.Equal(t, wferrors.ErrCodeInvalidInput, wferrors.GetCode(err))

	_, err = b.Deals(20, MaxLimit+1)
	assert.Equal(t, wferrors.ErrCodeInvalidInput, wferrors.GetCode(err))
}

func TestBrowserCategoriesAndBrands(t *testing.T) {
	b := newTestBrowser(t)

	cats := b.Categories()
	require.NotEmpty(t, cats)
	total := 0
	for _, c := range cats {
		total += c.Count
	}
	assert.Equal(t, 16, total)

	assert.Contains(t, b.Brands(), "Wade Logan")
}
