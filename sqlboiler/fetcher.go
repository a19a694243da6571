// Package sqlboiler provides a remotequery.Fetcher backed by a SQL table.
//
// Requests are translated into SQLBoiler query mods, so the table behaves
// like the monitored remote endpoint: Contains matches case-insensitively,
// ReportedTotal is the filtered row count and FetchCount ignores filters.
// The engine re-verifies every row, which keeps results exact.
//
// Example usage:
//
//	fetcher := sqlboiler.NewFetcher(db, "sensors",
//	    sqlboiler.WithColumnMap(map[string]string{"ParentId": "parent_id"}),
//	)
//	q := engine.New(fetcher).Query().Where(...)
package sqlboiler

import (
	"context"
	"database/sql"

	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/aarondl/sqlboiler/v4/drivers"
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/aarondl/sqlboiler/v4/queries/qm"
	"github.com/friendsofgo/errors"

	"github.com/nrfta/remotequery-go"
)

// Dialect is the postgres dialect used to render queries.
var Dialect = drivers.Dialect{
	LQ: '"',
	RQ: '"',

	UseIndexPlaceholders: true,
	UseDefaultKeyword:    true,
}

// Fetcher implements remotequery.Fetcher over one table.
type Fetcher struct {
	exec    boil.ContextExecutor
	table   string
	key     string
	columns map[string]string
	props   map[string]string
}

var _ remotequery.Fetcher = (*Fetcher)(nil)

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithColumnMap maps record properties to column names. Unmapped properties
// use their own name as column name.
func WithColumnMap(m map[string]string) Option {
	return func(f *Fetcher) {
		for prop, col := range m {
			f.columns[prop] = col
			f.props[col] = prop
		}
	}
}

// WithKeyColumn sets the property rows are ordered by when a request carries
// no sort, which keeps offsets stable between pages.
// Default: Id
func WithKeyColumn(prop string) Option {
	return func(f *Fetcher) {
		f.key = prop
	}
}

// NewFetcher creates a Fetcher reading table through exec.
func NewFetcher(exec boil.ContextExecutor, table string, opts ...Option) *Fetcher {
	f := &Fetcher{
		exec:    exec,
		table:   table,
		key:     remotequery.DefaultKeyColumns[0],
		columns: map[string]string{},
		props:   map[string]string{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchPage runs the page query, then counts the rows matching its
// conditions for ReportedTotal.
func (f *Fetcher) FetchPage(ctx context.Context, req remotequery.Request) (remotequery.PageResult, error) {
	rows, err := f.pageQuery(req).QueryContext(ctx, f.exec)
	if err != nil {
		return remotequery.PageResult{}, errors.Wrapf(err, "select from %s", f.table)
	}
	defer rows.Close()

	records, err := f.scan(rows)
	if err != nil {
		return remotequery.PageResult{}, errors.Wrapf(err, "scan %s", f.table)
	}

	var total int64
	if err := f.countQuery(req.Conditions).QueryRowContext(ctx, f.exec).Scan(&total); err != nil {
		return remotequery.PageResult{}, errors.Wrapf(err, "count %s", f.table)
	}

	return remotequery.PageResult{Records: records, ReportedTotal: int(total)}, nil
}

// FetchCount returns the number of rows in the table.
func (f *Fetcher) FetchCount(ctx context.Context, columns []string) (int, error) {
	var total int64
	if err := f.countQuery(nil).QueryRowContext(ctx, f.exec).Scan(&total); err != nil {
		return 0, errors.Wrapf(err, "count %s", f.table)
	}
	return int(total), nil
}

func (f *Fetcher) pageQuery(req remotequery.Request) *queries.Query {
	if req.Sort == nil && f.key != "" {
		req.Sort = &remotequery.Sort{Property: f.key}
	}

	mods := append([]qm.QueryMod{qm.From(f.table)}, requestMods(req, f.column)...)

	q := &queries.Query{}
	queries.SetDialect(q, &Dialect)
	qm.Apply(q, mods...)
	return q
}

func (f *Fetcher) countQuery(conds []remotequery.Condition) *queries.Query {
	mods := []qm.QueryMod{qm.From(f.table)}
	for _, c := range conds {
		mods = append(mods, conditionMod(c, f.column))
	}

	q := &queries.Query{}
	queries.SetDialect(q, &Dialect)
	qm.Apply(q, mods...)
	queries.SetCount(q)
	return q
}

func (f *Fetcher) column(prop string) string {
	if col, ok := f.columns[prop]; ok {
		return col
	}
	return prop
}

func (f *Fetcher) property(col string) string {
	if prop, ok := f.props[col]; ok {
		return prop
	}
	return col
}

// scan reads every row into a record keyed by property name.
func (f *Fetcher) scan(rows *sql.Rows) ([]remotequery.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	records := []remotequery.Record{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		rec := make(remotequery.Record, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			rec[f.property(col)] = values[i]
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
