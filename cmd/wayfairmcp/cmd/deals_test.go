package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomrikert/wayfair-mcp-server/internal/mcp"
)

func TestDealsCmd_JSON(t *testing.T) {
	// Given: an isolated environment
	isolateEnv(t)

	// When: listing deals of at least 30% off
	stdout, _, err := runRoot(t, "deals", "--min-discount", "30", "--limit", "2", "-f", "json")
	require.NoError(t, err)

	// Then: discounts meet the threshold and are ordered largest first
	var out mcp.DealsOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 30, out.MinDiscount)
	require.Len(t, out.Products, 2)
	assert.GreaterOrEqual(t, out.Products[0].DiscountPercentage, out.Products[1].DiscountPercentage)
	for _, p := range out.Products {
		assert.GreaterOrEqual(t, p.DiscountPercentage, 30)
		assert.Equal(t, "fallback", p.Source)
	}
}

func TestDealsCmd_Text(t *testing.T) {
	// Given: an isolated environment
	isolateEnv(t)

	// When: listing deals as text
	stdout, _, err := runRoot(t, "deals")

	// Then: a header and numbered products are printed
	require.NoError(t, err)
	assert.Contains(t, stdout, "% off or more")
	assert.Contains(t, stdout, " 1. ")
}

func TestDealsCmd_NoMatches(t *testing.T) {
	// Given: an isolated environment
	isolateEnv(t)

	// When: asking for an impossible discount
	stdout, _, err := runRoot(t, "deals", "--min-discount", "100")

	// Then: an empty notice is shown
	require.NoError(t, err)
	assert.Contains(t, stdout, "No products matched")
}

func TestDealsCmd_InvalidDiscount(t *testing.T) {
	// Given: an isolated environment
	isolateEnv(t)

	// When: passing an out-of-range discount
	_, _, err := runRoot(t, "deals", "--min-discount", "150")

	// Then: it is rejected
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_discount")
}
