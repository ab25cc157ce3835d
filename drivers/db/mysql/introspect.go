package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"dtable/drivers/schema"
)

// Introspector implements schema.Introspector for MySQL using the
// information_schema catalog. An empty schemaName means the connection's
// current database (DATABASE()).
type Introspector struct {
	DB *sqlx.DB
}

const schemaExpr = "COALESCE(NULLIF(?, ''), DATABASE())"

// GetTableInfo introspects the given table. Returns (nil, nil) when the table
// does not exist in the schema namespace.
func (mi *Introspector) GetTableInfo(ctx context.Context, schemaName, tableName string) (*schema.TableInfo, error) {
	if mi.DB == nil {
		return nil, fmt.Errorf("mysql introspector: DB is nil")
	}

	colRows, err := mi.DB.QueryContext(ctx, `
		SELECT column_name, column_type, is_nullable, column_default, column_key
		FROM information_schema.columns
		WHERE table_schema = `+schemaExpr+` AND table_name = ?
		ORDER BY ordinal_position`, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("information_schema.columns query failed: %w", err)
	}
	defer colRows.Close()

	var columns []schema.ColumnInfo
	var uniqueCols []string
	for colRows.Next() {
		var name, colType, nullable, key string
		var def sql.NullString
		if err := colRows.Scan(&name, &colType, &nullable, &def, &key); err != nil {
			return nil, fmt.Errorf("scan information_schema.columns: %w", err)
		}
		var defPtr *string
		if def.Valid {
			defPtr = &def.String
		}
		if key == "UNI" {
			uniqueCols = append(uniqueCols, name)
		}
		columns = append(columns, schema.ColumnInfo{
			Name:       name,
			DataType:   colType,
			IsNullable: nullable == "YES",
			Default:    defPtr,
		})
	}
	if err := colRows.Err(); err != nil {
		return nil, fmt.Errorf("information_schema.columns rows: %w", err)
	}
	if len(columns) == 0 {
		return nil, nil
	}

	primaryKey, err := mi.primaryKey(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}

	return &schema.TableInfo{
		Name:          tableName,
		Schema:        schemaName,
		Columns:       columns,
		PrimaryKey:    primaryKey,
		UniqueColumns: uniqueCols,
	}, nil
}

// primaryKey returns the primary-key columns in key order.
func (mi *Introspector) primaryKey(ctx context.Context, schemaName, tableName string) ([]string, error) {
	rows, err := mi.DB.QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = `+schemaExpr+` AND table_name = ? AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position`, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("key_column_usage query failed: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan key_column_usage: %w", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("key_column_usage rows: %w", err)
	}
	return cols, nil
}

// ListTables returns all base tables in the schema namespace, sorted by name.
func (mi *Introspector) ListTables(ctx context.Context, schemaName string) ([]string, error) {
	return mi.listRelations(ctx, schemaName, "BASE TABLE")
}

// ListViews returns all views in the schema namespace, sorted by name.
func (mi *Introspector) ListViews(ctx context.Context, schemaName string) ([]string, error) {
	return mi.listRelations(ctx, schemaName, "VIEW")
}

func (mi *Introspector) listRelations(ctx context.Context, schemaName, tableType string) ([]string, error) {
	if mi.DB == nil {
		return nil, fmt.Errorf("mysql introspector: DB is nil")
	}
	rows, err := mi.DB.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = `+schemaExpr+` AND table_type = ?
		ORDER BY table_name`, schemaName, tableType)
	if err != nil {
		return nil, fmt.Errorf("information_schema.tables query failed: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan information_schema.tables: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("information_schema.tables rows: %w", err)
	}
	return names, nil
}
