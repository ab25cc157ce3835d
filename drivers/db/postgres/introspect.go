package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"dtable/drivers/schema"
)

// Introspector implements schema.Introspector for PostgreSQL using the
// information_schema catalog views. An empty schemaName means "public".
type Introspector struct {
	DB *sqlx.DB
}

func (pi *Introspector) namespace(schemaName string) string {
	if schemaName == "" {
		return "public"
	}
	return schemaName
}

// GetTableInfo introspects the given table. Returns (nil, nil) when the table
// does not exist in the schema namespace.
func (pi *Introspector) GetTableInfo(ctx context.Context, schemaName, tableName string) (*schema.TableInfo, error) {
	if pi.DB == nil {
		return nil, fmt.Errorf("postgres introspector: DB is nil")
	}
	ns := pi.namespace(schemaName)

	colRows, err := pi.DB.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, ns, tableName)
	if err != nil {
		return nil, fmt.Errorf("information_schema.columns query failed: %w", err)
	}
	defer colRows.Close()

	var columns []schema.ColumnInfo
	for colRows.Next() {
		var name, dataType, nullable string
		var def sql.NullString
		if err := colRows.Scan(&name, &dataType, &nullable, &def); err != nil {
			return nil, fmt.Errorf("scan information_schema.columns: %w", err)
		}
		var defPtr *string
		if def.Valid {
			defPtr = &def.String
		}
		columns = append(columns, schema.ColumnInfo{
			Name:       name,
			DataType:   dataType,
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

	primaryKey, err := pi.constraintColumns(ctx, ns, tableName, "PRIMARY KEY")
	if err != nil {
		return nil, err
	}
	uniqueCols, err := pi.singleColumnUniques(ctx, ns, tableName)
	if err != nil {
		return nil, err
	}

	return &schema.TableInfo{
		Name:          tableName,
		Schema:        ns,
		Columns:       columns,
		PrimaryKey:    primaryKey,
		UniqueColumns: uniqueCols,
	}, nil
}

// constraintColumns returns the columns of a constraint type in key order.
func (pi *Introspector) constraintColumns(ctx context.Context, ns, tableName, constraintType string) ([]string, error) {
	rows, err := pi.DB.QueryContext(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2 AND tc.constraint_type = $3
		ORDER BY kcu.ordinal_position`, ns, tableName, constraintType)
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

// singleColumnUniques returns columns covered by a single-column UNIQUE constraint.
func (pi *Introspector) singleColumnUniques(ctx context.Context, ns, tableName string) ([]string, error) {
	rows, err := pi.DB.QueryContext(ctx, `
		SELECT MIN(kcu.column_name)
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2 AND tc.constraint_type = 'UNIQUE'
		GROUP BY kcu.constraint_name
		HAVING COUNT(*) = 1`, ns, tableName)
	if err != nil {
		return nil, fmt.Errorf("unique constraints query failed: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan unique constraints: %w", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unique constraints rows: %w", err)
	}
	return cols, nil
}

// ListTables returns all base tables in the schema namespace, sorted by name.
func (pi *Introspector) ListTables(ctx context.Context, schemaName string) ([]string, error) {
	return pi.listRelations(ctx, pi.namespace(schemaName), "BASE TABLE")
}

// ListViews returns all views in the schema namespace, sorted by name.
func (pi *Introspector) ListViews(ctx context.Context, schemaName string) ([]string, error) {
	return pi.listRelations(ctx, pi.namespace(schemaName), "VIEW")
}

func (pi *Introspector) listRelations(ctx context.Context, ns, tableType string) ([]string, error) {
	if pi.DB == nil {
		return nil, fmt.Errorf("postgres introspector: DB is nil")
	}
	rows, err := pi.DB.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = $2
		ORDER BY table_name`, ns, tableType)
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
