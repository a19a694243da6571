package sqlboiler

import (
	"fmt"
	"strings"

	"github.com/aarondl/sqlboiler/v4/queries/qm"
	"github.com/aarondl/strmangle"

	"github.com/nrfta/remotequery-go"
)

// RequestToQueryMods converts a page request into SQLBoiler query mods.
// Properties are used as column names.
//
// The conversion follows these rules:
//   - Columns → qm.Select(`"Id"`, `"Name"`)
//   - each Condition → qm.Where, AND-ed
//   - Start → qm.Offset(n)
//   - Count → qm.Limit(n)
//   - Sort → qm.OrderBy(`"Name" DESC`)
//
// Contains is rendered as a case-insensitive ILIKE and NotEquals keeps NULL
// rows, so the table never returns fewer rows than local verification
// accepts.
func RequestToQueryMods(req remotequery.Request) []qm.QueryMod {
	return requestMods(req, func(prop string) string { return prop })
}

func requestMods(req remotequery.Request, column func(string) string) []qm.QueryMod {
	mods := []qm.QueryMod{}

	if len(req.Columns) > 0 {
		cols := make([]string, len(req.Columns))
		for i, prop := range req.Columns {
			cols[i] = selectColumn(prop, column(prop))
		}
		mods = append(mods, qm.Select(cols...))
	}

	for _, c := range req.Conditions {
		mods = append(mods, conditionMod(c, column))
	}

	if req.Start > 0 {
		mods = append(mods, qm.Offset(req.Start))
	}

	if req.Count > 0 {
		mods = append(mods, qm.Limit(req.Count))
	}

	if req.Sort != nil {
		mods = append(mods, qm.OrderBy(buildOrderByClause(*req.Sort, column)))
	}

	return mods
}

func quote(ident string) string {
	return strmangle.IdentQuote(Dialect.LQ, Dialect.RQ, ident)
}

func selectColumn(prop, col string) string {
	if prop == col {
		return quote(col)
	}
	return quote(col) + " AS " + quote(prop)
}

// conditionMod renders one condition as a WHERE mod.
func conditionMod(c remotequery.Condition, column func(string) string) qm.QueryMod {
	col := quote(column(c.Property))

	switch c.Operator {
	case remotequery.Contains:
		return qm.Where(fmt.Sprintf("CAST(%s AS TEXT) ILIKE ?", col), "%"+escapeLike(c.SerializedValue())+"%")
	case remotequery.NotEquals:
		return qm.Where(fmt.Sprintf("%s IS DISTINCT FROM ?", col), c.Value)
	case remotequery.GreaterThan:
		return qm.Where(fmt.Sprintf("%s > ?", collated(col, c.Value)), c.Value)
	case remotequery.LessThan:
		return qm.Where(fmt.Sprintf("%s < ?", collated(col, c.Value)), c.Value)
	default:
		return qm.Where(fmt.Sprintf("%s = ?", col), c.Value)
	}
}

// collated compares strings byte-wise, matching local ordinal comparison.
func collated(col string, v any) string {
	if _, ok := v.(string); ok {
		return col + ` COLLATE "C"`
	}
	return col
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// buildOrderByClause constructs an ORDER BY clause from a sort key.
//
// Example:
//
//	Sort{Property: "Name", Desc: true} → `"Name" DESC`
func buildOrderByClause(s remotequery.Sort, column func(string) string) string {
	clause := quote(column(s.Property))
	if s.Desc {
		clause += " DESC"
	}
	return clause
}
