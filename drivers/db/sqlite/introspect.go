package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"dtable/drivers/schema"
)

// Introspector implements schema.Introspector for SQLite. SQLite has no schema
// namespaces, so schemaName is ignored throughout.
type Introspector struct {
	DB *sqlx.DB
}

// GetTableInfo introspects the given table via PRAGMA queries. Returns
// (nil, nil) when the table does not exist.
func (si *Introspector) GetTableInfo(ctx context.Context, _ string, tableName string) (*schema.TableInfo, error) {
	if si.DB == nil {
		return nil, fmt.Errorf("sqlite introspector: DB is nil")
	}
	quoted := Dialector{}.Quote(tableName)

	colRows, err := si.DB.QueryContext(ctx, "PRAGMA table_info("+quoted+")")
	if err != nil {
		return nil, fmt.Errorf("PRAGMA table_info failed: %w", err)
	}
	defer colRows.Close()

	var columns []schema.ColumnInfo
	type pkEntry struct {
		ord  int
		name string
	}
	var pkEntries []pkEntry
	for colRows.Next() {
		var cid int
		var name, colType string
		var notnull, pk int
		var dfltValue sql.NullString
		if err := colRows.Scan(&cid, &name, &colType, &notnull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info: %w", err)
		}
		var defPtr *string
		if dfltValue.Valid {
			defPtr = &dfltValue.String
		}
		// pk is the 1-based position within the primary key, 0 when not part of it.
		if pk > 0 {
			pkEntries = append(pkEntries, pkEntry{ord: pk, name: name})
		}
		columns = append(columns, schema.ColumnInfo{
			Name:       name,
			DataType:   colType,
			IsNullable: notnull == 0,
			Default:    defPtr,
		})
	}
	if err := colRows.Err(); err != nil {
		return nil, fmt.Errorf("table_info rows: %w", err)
	}
	if len(columns) == 0 {
		// PRAGMA table_info yields no rows for a missing table.
		return nil, nil
	}
	sort.Slice(pkEntries, func(i, j int) bool { return pkEntries[i].ord < pkEntries[j].ord })
	primaryKey := make([]string, len(pkEntries))
	for i, e := range pkEntries {
		primaryKey[i] = e.name
	}

	uniqueCols, err := si.uniqueColumns(ctx, tableName)
	if err != nil {
		return nil, err
	}

	return &schema.TableInfo{
		Name:          tableName,
		Schema:        "",
		Columns:       columns,
		PrimaryKey:    primaryKey,
		UniqueColumns: uniqueCols,
	}, nil
}

// uniqueColumns collects columns covered by a single-column unique index.
func (si *Introspector) uniqueColumns(ctx context.Context, tableName string) ([]string, error) {
	quoted := Dialector{}.Quote(tableName)
	idxRows, err := si.DB.QueryContext(ctx, "PRAGMA index_list("+quoted+")")
	if err != nil {
		return nil, fmt.Errorf("PRAGMA index_list failed: %w", err)
	}
	defer idxRows.Close()

	var uniqueIndexes []string
	for idxRows.Next() {
		var seq int
		var name string
		var unique int
		var origin, partial sql.NullString
		if err := idxRows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, fmt.Errorf("scan index_list: %w", err)
		}
		// Skip the implicit primary-key autoindex.
		if strings.HasPrefix(name, "sqlite_autoindex_") && origin.Valid && origin.String == "pk" {
			continue
		}
		if unique == 1 {
			uniqueIndexes = append(uniqueIndexes, name)
		}
	}
	if err := idxRows.Err(); err != nil {
		return nil, fmt.Errorf("index_list rows: %w", err)
	}

	var uniqueCols []string
	for _, idx := range uniqueIndexes {
		colRows, err := si.DB.QueryContext(ctx, "PRAGMA index_info("+Dialector{}.Quote(idx)+")")
		if err != nil {
			return nil, fmt.Errorf("PRAGMA index_info(%s) failed: %w", idx, err)
		}
		var cols []string
		for colRows.Next() {
			var seqno, cid int
			var colName string
			if err := colRows.Scan(&seqno, &cid, &colName); err != nil {
				colRows.Close()
				return nil, fmt.Errorf("scan index_info: %w", err)
			}
			cols = append(cols, colName)
		}
		colRows.Close()
		if err := colRows.Err(); err != nil {
			return nil, fmt.Errorf("index_info rows: %w", err)
		}
		if len(cols) == 1 {
			uniqueCols = append(uniqueCols, cols[0])
		}
	}
	return uniqueCols, nil
}

// ListTables returns all user tables, sorted by name.
func (si *Introspector) ListTables(ctx context.Context, _ string) ([]string, error) {
	return si.listMaster(ctx, "table")
}

// ListViews returns all views, sorted by name.
func (si *Introspector) ListViews(ctx context.Context, _ string) ([]string, error) {
	return si.listMaster(ctx, "view")
}

func (si *Introspector) listMaster(ctx context.Context, kind string) ([]string, error) {
	if si.DB == nil {
		return nil, fmt.Errorf("sqlite introspector: DB is nil")
	}
	rows, err := si.DB.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%' ORDER BY name", kind)
	if err != nil {
		return nil, fmt.Errorf("sqlite_master query failed: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan sqlite_master: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite_master rows: %w", err)
	}
	return names, nil
}
