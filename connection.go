package remotequery

import (
	"github.com/friendsofgo/errors"

	"github.com/nrfta/remotequery-go/offset"
)

// Connection represents a Relay-compliant connection over query results.
//
// Type parameter T is the domain model type the records are converted to.
type Connection[T any] struct {
	Edges    []Edge[T] `json:"edges"`
	Nodes    []T       `json:"nodes"`
	PageInfo PageInfo  `json:"pageInfo"`
}

// Edge pairs a node with the cursor of its position in the result sequence.
type Edge[T any] struct {
	Cursor string `json:"cursor"`
	Node   T      `json:"node"`
}

// BuildConnection creates a Connection from an evaluated result.
// skip is the logical offset of the first record, as passed to Skip. Each
// edge cursor resumes the query right after its node.
//
// Example usage:
//
//	res, err := query.Skip(20).Take(10).Execute(ctx)
//	conn, err := remotequery.BuildConnection(res, 20, func(r remotequery.Record) (*Sensor, error) {
//	    return sensorFromRecord(r)
//	})
func BuildConnection[T any](
	result *Result,
	skip int,
	transform func(Record) (T, error),
) (*Connection[T], error) {
	conn := &Connection[T]{
		Nodes:    make([]T, 0, len(result.Records)),
		Edges:    make([]Edge[T], 0, len(result.Records)),
		PageInfo: result.PageInfo,
	}

	for i, record := range result.Records {
		node, err := transform(record)
		if err != nil {
			return nil, errors.Wrapf(err, "transform record at index %d", i)
		}

		conn.Nodes = append(conn.Nodes, node)
		conn.Edges = append(conn.Edges, Edge[T]{
			Cursor: *offset.EncodeCursor(skip + i + 1),
			Node:   node,
		})
	}

	return conn, nil
}
