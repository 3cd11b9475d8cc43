package search

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	wferrors "github.com/tomrikert/wayfair-mcp-server/internal/errors"
)

// Query limits.
const (
	DefaultLimit      = 10
	MaxLimit          = 100
	MaxQueryLength    = 200
	MaxCategoryLength = 100
)

// Query is a validated search request. Build it with NewQuery; treat it as immutable.
type Query struct {
	Text      string   `json:"text" validate:"max=200"`
	Category  string   `json:"category,omitempty" validate:"max=100"`
	Limit     int      `json:"limit" validate:"gte=1,lte=100"`
	MaxPrice  *float64 `json:"max_price,omitempty" validate:"omitempty,finite,gte=0"`
	MinRating *float64 `json:"min_rating,omitempty" validate:"omitempty,finite,gte=0,lte=5"`
}

// QueryOption sets an optional Query field.
type QueryOption func(*Query)

// WithLimit sets the maximum number of products returned. Zero keeps the default.
func WithLimit(n int) QueryOption {
	return func(q *Query) {
		if n != 0 {
			q.Limit = n
		}
	}
}

// WithCategory keeps only products in the named category, ignoring case.
// Empty keeps every category.
func WithCategory(name string) QueryOption {
	return func(q *Query) {
		q.Category = strings.TrimSpace(name)
	}
}

// WithMaxPrice keeps only products priced at or below p.
func WithMaxPrice(p float64) QueryOption {
	return func(q *Query) {
		q.MaxPrice = &p
	}
}

// WithMinRating keeps only products rated at or above r.
func WithMinRating(r float64) QueryOption {
	return func(q *Query) {
		q.MinRating = &r
	}
}

// NewQuery trims text, applies options and validates the result.
// Empty text is allowed and browses the whole source.
func NewQuery(text string, opts ...QueryOption) (Query, error) {
	q := Query{Text: strings.TrimSpace(text), Limit: DefaultLimit}
	for _, opt := range opts {
		opt(&q)
	}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

// Validate reports the first structural problem with q as a query error.
func (q Query) Validate() error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return wferrors.QueryError("invalid query", err)
	}
	fe := verrs[0]
	code := wferrors.ErrCodeInvalidQuery
	if fe.Field() == "Text" {
		code = wferrors.ErrCodeQueryTooLong
	}
	return wferrors.New(code, describe(fe), err).
		WithDetail("field", fe.Field()).
		WithSuggestion(suggest(fe.Field()))
}

func describe(fe validator.FieldError) string {
	switch fe.Field() {
	case "Text":
		return fmt.Sprintf("query text must be at most %d characters", MaxQueryLength)
	case "Category":
		return fmt.Sprintf("category must be at most %d characters", MaxCategoryLength)
	case "Limit":
		return fmt.Sprintf("limit must be between 1 and %d", MaxLimit)
	case "MaxPrice":
		return "max_price must be a non-negative number"
	case "MinRating":
		return "min_rating must be between 0 and 5"
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func suggest(field string) string {
	switch field {
	case "Text":
		return "Use fewer, more specific words"
	case "Category":
		return "List categories with get_categories"
	case "Limit":
		return "Omit limit to get the default of 10 results"
	case "MaxPrice":
		return "Pass a price in dollars, e.g. 500"
	case "MinRating":
		return "Ratings are on a 0-5 star scale"
	default:
		return ""
	}
}
