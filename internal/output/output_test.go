package output

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tomrikert/wayfair-mcp-server/internal/product"
	"github.com/tomrikert/wayfair-mcp-server/internal/search"
)

func TestWriter_Status_PrintsIconAndMessage(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a status message
	w.Status("•", "Loading catalog...")

	// Then: output contains icon and message
	assert.Equal(t, "• Loading catalog...\n", buf.String())
}

func TestWriter_StatusWithoutIconIndents(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Status("", "detail")
	assert.Equal(t, "   detail\n", buf.String())
}

func TestWriter_Levels(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Successf("saved %d", 1)
	w.Warning("careful")
	w.Errorf("failed: %s", "x")

	assert.Equal(t, "✓ saved 1\n! careful\n✗ failed: x\n", buf.String())
}

func TestNew_BufferIsNotTTY(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, UseColor(&bytes.Buffer{}))
}

func TestUseColor_NoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, UseColor(nil))
}

func TestWriter_Code(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Code("a\nb")
	assert.Equal(t, "\n  a\n  b\n\n", buf.String())
}

func TestMoney(t *testing.T) {
	d := decimal.RequireFromString
	assert.Equal(t, "$0.00", Money(d("0")))
	assert.Equal(t, "$89.90", Money(d("89.9")))
	assert.Equal(t, "$1,299.99", Money(d("1299.99")))
	assert.Equal(t, "$1,234,567.00", Money(d("1234567")))
	assert.Equal(t, "-$5.00", Money(d("-5")))
}

func TestWriter_Product(t *testing.T) {
	orig := decimal.RequireFromString("1299.99")
	p := product.Product{
		ID:                 "fallback:WF_SOFA_001",
		Name:               "Modern L-Shaped Sectional Sofa",
		Price:              decimal.RequireFromString("899.99"),
		OriginalPrice:      &orig,
		DiscountPercentage: 31,
		Rating:             4.6,
		ReviewCount:        1247,
		Brand:              "Wade Logan",
		Availability:       product.AvailabilityInStock,
	}

	buf := &bytes.Buffer{}
	NewPlain(buf).Product(1, p)

	out := buf.String()
	assert.Contains(t, out, " 1. Modern L-Shaped Sectional Sofa\n")
	assert.Contains(t, out, "$899.99  was $1,299.99, 31% off")
	assert.Contains(t, out, "4.6★ (1247 reviews) · Wade Logan · in stock · fallback:WF_SOFA_001")
}

func TestWriter_ProductsEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	NewPlain(buf).Products(nil)
	assert.Contains(t, buf.String(), "No products matched")
}

func TestWriter_DataSource(t *testing.T) {
	tests := []struct {
		name string
		ds   search.DataSource
		want string
	}{
		{"live", search.DataSource{LiveCount: 3, LiveAttempted: true, LiveSucceeded: true}, "Live results from Wayfair (3)"},
		{"failed", search.DataSource{FallbackCount: 2, LiveAttempted: true, LiveFailure: "blocked"}, "live search failed: blocked"},
		{"skipped", search.DataSource{FallbackCount: 2, LiveFailure: "disabled"}, "live search skipped: disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			NewPlain(buf).DataSource(tt.ds)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}
