package remotequery

import "github.com/nrfta/remotequery-go/offset"

// PageInfo contains metadata about an evaluated query.
// It uses function fields to enable lazy evaluation, matching the Relay
// PageInfo shape consumers already resolve.
type PageInfo struct {
	TotalCount      func() (*int, error)
	HasPreviousPage func() (bool, error)
	HasNextPage     func() (bool, error)
	StartCursor     func() (*string, error)
	EndCursor       func() (*string, error)
}

// NewResultPageInfo builds PageInfo for a result that starts at logical
// offset skip and holds returned elements. total is the exact number of
// matching elements when known, nil otherwise. more reports whether further
// matches may exist beyond the returned ones.
//
// The end cursor encodes the logical offset of the next element, so that
// Skip(offset.DecodeCursor(endCursor)) resumes the same query.
func NewResultPageInfo(skip, returned int, total *int, more bool) PageInfo {
	next := skip + returned

	return PageInfo{
		TotalCount:      func() (*int, error) { return total, nil },
		StartCursor:     func() (*string, error) { return offset.EncodeCursor(skip), nil },
		EndCursor:       func() (*string, error) { return offset.EncodeCursor(next), nil },
		HasNextPage:     func() (bool, error) { return more, nil },
		HasPreviousPage: func() (bool, error) { return skip > 0, nil },
	}
}

// NewEmptyPageInfo returns an empty instance of PageInfo, used for results
// that were short-circuited without contacting the endpoint.
func NewEmptyPageInfo() PageInfo {
	zero := 0
	return PageInfo{
		TotalCount:      func() (*int, error) { return &zero, nil },
		StartCursor:     func() (*string, error) { return nil, nil },
		EndCursor:       func() (*string, error) { return nil, nil },
		HasNextPage:     func() (bool, error) { return false, nil },
		HasPreviousPage: func() (bool, error) { return false, nil },
	}
}
