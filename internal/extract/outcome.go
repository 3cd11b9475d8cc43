package extract

import (
	"github.com/tomrikert/wayfair-mcp-server/internal/product"
)

// Kind tags an Outcome.
type Kind int

const (
	// KindFailure means zero records were extracted.
	KindFailure Kind = iota
	// KindSuccess means every record carried a name and a price.
	KindSuccess
	// KindPartial means records were extracted but some lack fields.
	KindPartial
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindPartial:
		return "partial_success"
	default:
		return "failure"
	}
}

// Reason explains a failed fetch.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonBlocked     Reason = "blocked"
	ReasonTimeout     Reason = "timeout"
	ReasonNoMatch     Reason = "no_match"
	ReasonParseError  Reason = "parse_error"
	ReasonUnreachable Reason = "unreachable"
)

// Outcome is the result of a single fetch.
// Records and Issues are set for Success and Partial; Reason and Err for Failure.
type Outcome struct {
	Kind     Kind
	Records  []product.RawRecord
	Issues   []string
	Reason   Reason
	Err      error
	Status   int
	Strategy string
}

// OK reports whether the outcome carries records.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess || o.Kind == KindPartial
}

// Success builds a successful outcome.
func Success(records []product.RawRecord) Outcome {
	return Outcome{Kind: KindSuccess, Records: records}
}

// Partial builds a partially successful outcome.
func Partial(records []product.RawRecord, issues []string) Outcome {
	return Outcome{Kind: KindPartial, Records: records, Issues: issues}
}

// Failure builds a failed outcome.
func Failure(reason Reason, err error) Outcome {
	return Outcome{Kind: KindFailure, Reason: reason, Err: err}
}
