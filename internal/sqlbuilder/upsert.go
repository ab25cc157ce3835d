package sqlbuilder

import (
	"strings"
)

// BuildUpsertSQL constructs one multi-row insert-or-update statement for a
// chunk of rowCount records sharing the same column set.
//
// Conflict resolution is per column: with overwriteWithNull the incoming value
// always wins; without it a null incoming value preserves the stored value via
// COALESCE. On dialects with RETURNING support the statement yields the
// primary-key columns of every affected row.
//
// table is the qualified, quoted target; name is the bare (unquoted) table
// name, needed to reference the existing row inside the conflict clause.
func BuildUpsertSQL(d Dialector, dialect, table, name string, columns []string, rowCount int, conflictColumns []string, overwriteWithNull bool) string {
	var query strings.Builder

	quotedCols := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quotedCols[i] = d.Quote(c)
		placeholders[i] = "?"
	}
	rowTuple := "(" + strings.Join(placeholders, ", ") + ")"
	rows := make([]string, rowCount)
	for i := range rows {
		rows[i] = rowTuple
	}

	query.WriteString("INSERT INTO ")
	query.WriteString(table)
	query.WriteString(" (")
	query.WriteString(strings.Join(quotedCols, ", "))
	query.WriteString(") VALUES ")
	query.WriteString(strings.Join(rows, ", "))

	switch dialect {
	case "mysql":
		// MySQL has no conflict target and no RETURNING; bare column names on
		// the right-hand side refer to the existing row.
		query.WriteString(" ON DUPLICATE KEY UPDATE ")
		sets := make([]string, len(columns))
		for i, c := range columns {
			qc := d.Quote(c)
			if overwriteWithNull {
				sets[i] = qc + " = VALUES(" + qc + ")"
			} else {
				sets[i] = qc + " = COALESCE(VALUES(" + qc + "), " + qc + ")"
			}
		}
		query.WriteString(strings.Join(sets, ", "))
	default:
		// PostgreSQL / SQLite: ON CONFLICT (pk) DO UPDATE SET ... EXCLUDED ...
		quotedPK := make([]string, len(conflictColumns))
		for i, c := range conflictColumns {
			quotedPK[i] = d.Quote(c)
		}
		query.WriteString(" ON CONFLICT (")
		query.WriteString(strings.Join(quotedPK, ", "))
		query.WriteString(") DO UPDATE SET ")
		existingRef := d.Quote(name)
		sets := make([]string, len(columns))
		for i, c := range columns {
			qc := d.Quote(c)
			if overwriteWithNull {
				sets[i] = qc + " = EXCLUDED." + qc
			} else {
				sets[i] = qc + " = COALESCE(EXCLUDED." + qc + ", " + existingRef + "." + qc + ")"
			}
		}
		query.WriteString(strings.Join(sets, ", "))
		if d.SupportsReturning() {
			query.WriteString(" RETURNING ")
			query.WriteString(strings.Join(quotedPK, ", "))
		}
	}
	return query.String()
}
