package dtable

// ColumnSpec describes one column to be created. It is used only when creating
// tables or adding columns and is never mutated after construction.
type ColumnSpec struct {
	// Name is the column name, unique within its table.
	Name string
	// Type is the SQL type text for the target dialect (e.g. "BIGINT", "TEXT").
	Type string
	// Default is an optional client-side default value rendered into the DDL.
	Default interface{}
	// ServerDefault is an optional server-computed default expression, emitted
	// verbatim (e.g. "CURRENT_TIMESTAMP").
	ServerDefault string
	// AutoIncrement marks the column as auto-incrementing where the dialect
	// supports it.
	AutoIncrement bool
	// References is an optional foreign-key target in "table(column)" form.
	References string
}
