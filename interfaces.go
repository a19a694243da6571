package remotequery

import "context"

// Record is a single monitoring object as returned by the remote endpoint.
// Keys are property names. Values may be scalars, time.Time, nested records
// (for member chains such as Parent.Name) or driver.Valuer implementations.
type Record map[string]any

// Fetcher abstracts the remote endpoint. Transport, retry and authentication
// live behind this interface; the engine only drives page requests.
//
// Example implementation over HTTP:
//
//	type sensorFetcher struct{ client *api.Client }
//
//	func (f *sensorFetcher) FetchPage(ctx context.Context, req remotequery.Request) (remotequery.PageResult, error) {
//	    resp, err := f.client.Table(ctx, "sensors", req.Conditions, req.Sort, req.Columns, req.Start, req.Count)
//	    if err != nil {
//	        return remotequery.PageResult{}, err
//	    }
//	    return remotequery.PageResult{Records: resp.Items, ReportedTotal: resp.TreeSize}, nil
//	}
type Fetcher interface {
	// FetchPage retrieves one page of records. Conditions are advisory: the
	// endpoint may match more coarsely than requested and ReportedTotal is
	// only exact when no condition was sent.
	FetchPage(ctx context.Context, req Request) (PageResult, error)

	// FetchCount returns the total number of records in the collection.
	// It always ignores filters.
	FetchCount(ctx context.Context, columns []string) (int, error)
}

// FetcherFuncs adapts a pair of functions to the Fetcher interface.
type FetcherFuncs struct {
	Page  func(ctx context.Context, req Request) (PageResult, error)
	Count func(ctx context.Context, columns []string) (int, error)
}

func (f FetcherFuncs) FetchPage(ctx context.Context, req Request) (PageResult, error) {
	return f.Page(ctx, req)
}

func (f FetcherFuncs) FetchCount(ctx context.Context, columns []string) (int, error) {
	return f.Count(ctx, columns)
}

// Request is one physical page request sent to the endpoint.
type Request struct {
	// Conditions are implicitly AND-ed by the endpoint.
	Conditions []Condition

	// Sort is nil when the endpoint's natural order is used.
	Sort *Sort

	// Columns is the minimal set of properties the engine needs back.
	Columns []string

	// Start is the zero-based record offset.
	Start int

	// Count is the page size. 0 requests the endpoint's default/maximum.
	Count int
}

// Filtered reports whether the request carries any condition.
func (r Request) Filtered() bool {
	return len(r.Conditions) > 0
}

// PageResult is the response to a single FetchPage call.
type PageResult struct {
	// Records in endpoint order.
	Records []Record

	// ReportedTotal is the endpoint's total for the request. It is exact for
	// unfiltered requests and advisory otherwise.
	ReportedTotal int
}

// Descriptor is the remote request derived from a composed query. It is the
// template from which every physical Request of one evaluation is cut.
type Descriptor struct {
	Conditions []Condition
	Sort       *Sort
	Columns    []string

	// Start is the server-side offset. It is only non-zero when the endpoint
	// can apply Skip exactly, i.e. no local verification is required.
	Start int

	// Count holds the literal Take. Nil means no client-specified bound.
	Count *int

	// ForceStream bypasses server filtering and server paging entirely.
	ForceStream bool
}

// Filtered reports whether the descriptor carries any condition.
func (d Descriptor) Filtered() bool {
	return len(d.Conditions) > 0
}

// Page cuts a filtered request for the given window.
func (d Descriptor) Page(start, count int) Request {
	return Request{
		Conditions: d.Conditions,
		Sort:       d.Sort,
		Columns:    d.Columns,
		Start:      start,
		Count:      count,
	}
}

// Unfiltered cuts a request for the given window without any condition.
// The sort is kept because the endpoint applies it exactly.
func (d Descriptor) Unfiltered(start, count int) Request {
	return Request{
		Sort:    d.Sort,
		Columns: d.Columns,
		Start:   start,
		Count:   count,
	}
}
