package sqlbuilder

import (
	"fmt"
	"strings"
)

// ColumnDef describes one column for DDL generation. The root package maps its
// public ColumnSpec onto this to keep the builders dependency-free.
type ColumnDef struct {
	Name          string
	Type          string
	Default       interface{}
	ServerDefault string
	AutoIncrement bool
	References    string // "table(column)" foreign-key target
}

// BuildCreateTableSQL generates a CREATE TABLE statement for the dialect.
// A single-column primary key is emitted inline on its column definition
// (required for SQLite AUTOINCREMENT); composite keys become a table-level
// constraint. Each unique column gets its own UNIQUE constraint.
func BuildCreateTableSQL(d Dialector, dialect, table string, columns []ColumnDef, primaryKey, uniqueColumns []string, ifNotExists bool) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("create table %s: no columns given", table)
	}

	inlinePK := ""
	if len(primaryKey) == 1 {
		inlinePK = primaryKey[0]
	}

	var defs []string
	for _, col := range columns {
		def, err := columnDefSQL(d, dialect, col, col.Name == inlinePK)
		if err != nil {
			return "", fmt.Errorf("create table %s: %w", table, err)
		}
		defs = append(defs, def)
	}

	if len(primaryKey) > 1 {
		quoted := make([]string, len(primaryKey))
		for i, c := range primaryKey {
			quoted[i] = d.Quote(c)
		}
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoted, ", ")))
	}
	for _, c := range uniqueColumns {
		defs = append(defs, fmt.Sprintf("UNIQUE (%s)", d.Quote(c)))
	}

	stmt := "CREATE TABLE "
	if ifNotExists {
		stmt += "IF NOT EXISTS "
	}
	return fmt.Sprintf("%s%s (\n  %s\n)", stmt, table, strings.Join(defs, ",\n  ")), nil
}

// BuildAddColumnSQL generates a single additive ALTER TABLE statement.
func BuildAddColumnSQL(d Dialector, table, column, columnType string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, d.Quote(column), columnType)
}

// columnDefSQL renders one column definition line.
func columnDefSQL(d Dialector, dialect string, col ColumnDef, isInlinePK bool) (string, error) {
	sqlType := col.Type
	parts := []string{d.Quote(col.Name)}

	if col.AutoIncrement {
		switch dialect {
		case "postgres":
			// Serial pseudo-types replace the declared integer type.
			switch strings.ToUpper(sqlType) {
			case "BIGINT":
				sqlType = "BIGSERIAL"
			case "INTEGER", "INT":
				sqlType = "SERIAL"
			}
		case "sqlite":
			if !isInlinePK {
				return "", fmt.Errorf("column %s: sqlite autoincrement requires a single-column integer primary key", col.Name)
			}
			sqlType = "INTEGER"
		}
	}
	parts = append(parts, sqlType)

	if isInlinePK {
		parts = append(parts, "PRIMARY KEY")
		if col.AutoIncrement {
			switch dialect {
			case "sqlite":
				parts = append(parts, "AUTOINCREMENT")
			case "mysql":
				parts = append(parts, "AUTO_INCREMENT")
			}
		}
	} else if col.AutoIncrement && dialect == "mysql" {
		parts = append(parts, "AUTO_INCREMENT")
	}

	if col.Default != nil {
		lit, err := defaultLiteral(col.Default)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", col.Name, err)
		}
		parts = append(parts, "DEFAULT "+lit)
	}
	if col.ServerDefault != "" {
		parts = append(parts, "DEFAULT "+col.ServerDefault)
	}
	if col.References != "" {
		parts = append(parts, "REFERENCES "+col.References)
	}
	return strings.Join(parts, " "), nil
}

// defaultLiteral renders a client-side default value as a SQL literal.
// DDL has no bind parameters, so only simple value types are accepted.
func defaultLiteral(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'", nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", val), nil
	default:
		return "", fmt.Errorf("unsupported default value type %T", v)
	}
}
