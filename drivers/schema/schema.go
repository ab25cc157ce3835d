package schema

import (
	"context"
)

// TableInfo holds the actual schema info introspected from the database catalog.
type TableInfo struct {
	Name          string       `json:"name"`           // Table name
	Schema        string       `json:"schema"`         // Schema namespace ("" where the dialect has none)
	Columns       []ColumnInfo `json:"columns"`        // All columns, in catalog order
	PrimaryKey    []string     `json:"primary_key"`    // Primary key column names, in key order (may be empty)
	UniqueColumns []string     `json:"unique_columns"` // Columns carrying a single-column unique constraint
}

// ColumnInfo holds metadata for a single column in a table.
type ColumnInfo struct {
	Name       string  `json:"name"`        // Column name
	DataType   string  `json:"data_type"`   // Database type (e.g., INTEGER, VARCHAR(255))
	IsNullable bool    `json:"is_nullable"` // Whether the column is nullable
	Default    *string `json:"default"`     // Default expression (if any)
}

// Introspector defines the interface for database catalog introspection.
// Every call re-queries the live catalog; callers that want caching layer it
// on top explicitly.
type Introspector interface {
	// GetTableInfo introspects the given table within the given schema namespace
	// and returns its schema info. Returns (nil, nil) when the table does not exist.
	GetTableInfo(ctx context.Context, schemaName, tableName string) (*TableInfo, error)
	// ListTables returns the names of all base tables in the schema namespace.
	ListTables(ctx context.Context, schemaName string) ([]string, error)
	// ListViews returns the names of all views in the schema namespace.
	ListViews(ctx context.Context, schemaName string) ([]string, error)
}
