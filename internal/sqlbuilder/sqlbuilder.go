// Package sqlbuilder generates parameterized SQL text for the dynamic table
// operations. Builders emit '?' placeholders throughout; adapters rebind them
// to the dialect's bindvar style at execution time.
package sqlbuilder

import (
	"fmt"
	"strings"
)

// Dialector is the subset of dialect behavior the builders need. The root
// package's Dialector satisfies it structurally.
type Dialector interface {
	Quote(identifier string) string
	SupportsReturning() bool
}

// BuildSelectSQL constructs a SELECT statement. table must already be
// qualified and quoted. where/whereArgs come from the predicate compiler;
// limit < 0 means unbounded, limit == 0 is an explicit empty result.
// SQLite and MySQL reject OFFSET without LIMIT, so an offset on an unbounded
// query gets the dialect's unbounded-limit literal in front of it.
func BuildSelectSQL(d Dialector, dialect, table string, columns []string, where string, whereArgs []interface{}, orderBy string, limit, offset int) (string, []interface{}) {
	var query strings.Builder
	args := append([]interface{}{}, whereArgs...)

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
	}
	query.WriteString("SELECT ")
	query.WriteString(strings.Join(quoted, ", "))
	query.WriteString(" FROM ")
	query.WriteString(table)

	if where != "" {
		query.WriteString(" WHERE ")
		query.WriteString(where)
	}
	if orderBy != "" {
		query.WriteString(" ORDER BY ")
		query.WriteString(orderBy)
	}
	if limit >= 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, limit)
	} else if offset > 0 {
		switch dialect {
		case "mysql":
			// MySQL has no unbounded-limit sentinel; the manual's idiom is the
			// maximum row count.
			query.WriteString(" LIMIT 18446744073709551615")
		case "postgres":
			// Bare OFFSET is valid.
		default:
			// SQLite treats a negative limit as unbounded.
			query.WriteString(" LIMIT -1")
		}
	}
	if offset > 0 {
		query.WriteString(" OFFSET ?")
		args = append(args, offset)
	}
	return query.String(), args
}

// BuildCountSQL constructs a SELECT COUNT(*) statement with an optional WHERE clause.
func BuildCountSQL(table string, where string) string {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if where != "" {
		query = fmt.Sprintf("%s WHERE %s", query, where)
	}
	return query
}

// BuildDeleteSQL constructs a DELETE statement. An empty where clause deletes
// every row; guarding that is the caller's responsibility.
func BuildDeleteSQL(table string, where string) string {
	query := fmt.Sprintf("DELETE FROM %s", table)
	if where != "" {
		query = fmt.Sprintf("%s WHERE %s", query, where)
	}
	return query
}

// BuildUpdateSQL constructs an UPDATE statement with one placeholder per set
// column followed by one per match column. Argument order for each record is
// therefore: set values in setColumns order, then match values in matchColumns
// order.
func BuildUpdateSQL(d Dialector, table string, setColumns []string, matchColumns []string) string {
	setClauses := make([]string, len(setColumns))
	for i, c := range setColumns {
		setClauses[i] = d.Quote(c) + " = ?"
	}
	matchClauses := make([]string, len(matchColumns))
	for i, c := range matchColumns {
		matchClauses[i] = d.Quote(c) + " = ?"
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		table,
		strings.Join(setClauses, ", "),
		strings.Join(matchClauses, " AND "),
	)
}
