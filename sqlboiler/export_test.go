package sqlboiler

import (
	"github.com/aarondl/sqlboiler/v4/queries"

	"github.com/nrfta/remotequery-go"
)

func (f *Fetcher) PageSQL(req remotequery.Request) (string, []any) {
	return queries.BuildQuery(f.pageQuery(req))
}

func (f *Fetcher) CountSQL(conds []remotequery.Condition) (string, []any) {
	return queries.BuildQuery(f.countQuery(conds))
}
