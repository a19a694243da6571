package remotequery

import (
	"fmt"
	"strconv"
	"time"
)

// Operator is a filter operator understood by the remote endpoint.
type Operator int

const (
	Equals Operator = iota
	Contains
	GreaterThan
	LessThan
	NotEquals
)

func (o Operator) String() string {
	switch o {
	case Equals:
		return "equals"
	case Contains:
		return "contains"
	case GreaterThan:
		return "greater_than"
	case LessThan:
		return "less_than"
	case NotEquals:
		return "not_equals"
	default:
		return "operator(" + strconv.Itoa(int(o)) + ")"
	}
}

// Condition is a single server-side filter: (property, operator, value).
type Condition struct {
	Property string
	Operator Operator
	Value    any
}

// SerializedValue renders Value the way it is placed on the wire.
func (c Condition) SerializedValue() string {
	switch v := c.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (c Condition) String() string {
	return c.Property + " " + c.Operator.String() + " " + strconv.Quote(c.SerializedValue())
}

// Sort is a single server-side sort key.
type Sort struct {
	Property string
	Desc     bool
}

func (s Sort) String() string {
	if s.Desc {
		return s.Property + " DESC"
	}
	return s.Property
}

// Result is the materialized outcome of one query evaluation.
type Result struct {
	// Records holds the matched records. For First/Last it holds at most one.
	Records []Record

	// Count is the number of matched elements (the answer for Count).
	Count int

	// Found reports whether at least one element matched (the answer for Any).
	Found bool

	PageInfo PageInfo

	Metadata Metadata
}

// Metadata provides observability and debugging information about an evaluation.
type Metadata struct {
	// QueryID correlates log lines of a single evaluation.
	QueryID string

	// Strategy identifies how the records were obtained.
	// Values: "empty", "count", "paged", "stream"
	Strategy string

	// QueryTimeMs is the total time spent in the evaluation.
	QueryTimeMs int64

	// ItemsExamined is the number of records received from the endpoint,
	// including records rejected by local verification.
	ItemsExamined int

	// IterationsUsed is the number of FetchPage calls.
	IterationsUsed int

	// CountProbes is the number of FetchCount calls.
	CountProbes int

	// StreamReason is set when the evaluation fell back to streaming.
	// Values: "forced", "sparse", "unreliable"
	StreamReason string
}
