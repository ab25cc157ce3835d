// Package dtable provides schema-agnostic access to relational tables: the
// table layout is discovered from the live database catalog at call time, rows
// travel as ordered Records, and filters are declarative structures compiled
// to parameterized SQL. No static record types, no struct tags, no codegen.
package dtable

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dtable/internal/sqlbuilder"
)

// DB is the main entry point for all table operations. It wraps a DBAdapter
// and is safe for concurrent use.
type DB struct {
	adapter DBAdapter
	schema  string
	verbose bool

	schemaCache    SchemaCache
	schemaCacheTTL time.Duration
}

// Open wraps an already-constructed adapter, applies options, and verifies
// connectivity with a liveness probe. A failed probe is fatal; no retry is
// attempted.
func Open(adapter DBAdapter, opts ...Option) (*DB, error) {
	db := &DB{adapter: adapter}
	for _, opt := range opts {
		opt(db)
	}
	if err := adapter.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailure, err)
	}
	return db, nil
}

// Adapter exposes the underlying adapter for advanced use.
func (db *DB) Adapter() DBAdapter { return db.adapter }

// Schema returns the configured schema namespace ("" when unset).
func (db *DB) Schema() string { return db.schema }

// Close closes the underlying database connection.
func (db *DB) Close() error { return db.adapter.Close() }

// Get reads rows from tableName. Defaults: all columns, no filter, unbounded,
// unordered. A query matching nothing returns an empty, non-nil slice.
func (db *DB) Get(ctx context.Context, tableName string, opts ...SelectOption) ([]Record, error) {
	sel := selectOptions{limit: -1}
	for _, opt := range opts {
		opt(&sel)
	}

	handle, err := db.Resolve(ctx, tableName)
	if err != nil {
		return nil, err
	}
	d := db.adapter.Dialect()

	columns := sel.columns
	if len(columns) == 0 {
		columns = handle.Columns
	} else {
		for _, c := range columns {
			if !handle.HasColumn(c) {
				return nil, fmt.Errorf("dtable: unknown column %q in select for table %s", c, handle.Name)
			}
		}
	}

	where, whereArgs, err := compileWhere(handle, d, sel.filters)
	if err != nil {
		return nil, err
	}
	orderBy := ""
	if sel.sortField != "" {
		orderBy, err = parseSortField(handle, d, sel.sortField)
		if err != nil {
			return nil, err
		}
	}

	query, args := sqlbuilder.BuildSelectSQL(d, db.adapter.DialectName(), handle.Qualified(d), columns, where, whereArgs, orderBy, sel.limit, sel.offset)
	db.logSQL(query, args)
	records, err := db.adapter.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dtable: select from %s: %w", handle.Name, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Count returns the number of rows in tableName matching the filters.
func (db *DB) Count(ctx context.Context, tableName string, where ...Filter) (int64, error) {
	handle, err := db.Resolve(ctx, tableName)
	if err != nil {
		return 0, err
	}
	d := db.adapter.Dialect()

	clause, args, err := compileWhere(handle, d, where)
	if err != nil {
		return 0, err
	}
	query := sqlbuilder.BuildCountSQL(handle.Qualified(d), clause)
	db.logSQL(query, args)
	rows, err := db.adapter.Query(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("dtable: count %s: %w", handle.Name, err)
	}
	if len(rows) == 0 || rows[0].Len() == 0 {
		return 0, fmt.Errorf("dtable: count %s: empty result", handle.Name)
	}
	return toInt64(rows[0].Values()[0])
}

// Update updates existing rows from records, matching on the `on` columns.
// Every record must carry all match fields plus at least one settable field;
// the set-column template comes from the first record. Columns a later record
// carries beyond that template are not written. The statement is prepared once
// and executed per record; the return value is the total number of rows
// affected, which is legitimately zero when nothing matched.
func (db *DB) Update(ctx context.Context, tableName string, records []Record, on []string) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if len(on) == 0 {
		return 0, fmt.Errorf("%w: no match fields given for update of %s", ErrMissingMatchField, tableName)
	}

	handle, err := db.Resolve(ctx, tableName)
	if err != nil {
		return 0, err
	}
	d := db.adapter.Dialect()

	matchSet := make(map[string]struct{}, len(on))
	for _, m := range on {
		if !handle.HasColumn(m) {
			return 0, fmt.Errorf("dtable: unknown match column %q for table %s", m, handle.Name)
		}
		matchSet[m] = struct{}{}
	}

	// The first record fixes the set-column shape for the whole batch.
	var setColumns []string
	for _, k := range records[0].Keys() {
		if _, isMatch := matchSet[k]; isMatch {
			continue
		}
		if !handle.HasColumn(k) {
			return 0, fmt.Errorf("dtable: unknown column %q in update for table %s", k, handle.Name)
		}
		setColumns = append(setColumns, k)
	}
	if len(setColumns) == 0 {
		return 0, fmt.Errorf("%w: records carry nothing to set besides the match fields", ErrMissingMatchField)
	}

	argSets := make([][]interface{}, 0, len(records))
	for i := range records {
		args := make([]interface{}, 0, len(setColumns)+len(on))
		for _, c := range setColumns {
			v, ok := records[i].Get(c)
			if !ok {
				return 0, fmt.Errorf("dtable: record %d is missing column %q present in the first record", i, c)
			}
			args = append(args, v)
		}
		for _, m := range on {
			v, ok := records[i].Get(m)
			if !ok {
				return 0, fmt.Errorf("%w: record %d lacks %q", ErrMissingMatchField, i, m)
			}
			args = append(args, v)
		}
		argSets = append(argSets, args)
	}

	query := sqlbuilder.BuildUpdateSQL(d, handle.Qualified(d), setColumns, on)
	db.logSQL(query, fmt.Sprintf("<%d records>", len(records)))
	affected, err := db.adapter.ExecBatch(ctx, query, argSets)
	if err != nil {
		return 0, fmt.Errorf("dtable: update %s: %w", handle.Name, err)
	}
	return affected, nil
}

// Delete removes rows matching the filters. With no filter every row in the
// table is deleted; there is deliberately no guard against that.
func (db *DB) Delete(ctx context.Context, tableName string, where ...Filter) error {
	handle, err := db.Resolve(ctx, tableName)
	if err != nil {
		return err
	}
	d := db.adapter.Dialect()

	clause, args, err := compileWhere(handle, d, where)
	if err != nil {
		return err
	}
	query := sqlbuilder.BuildDeleteSQL(handle.Qualified(d), clause)
	db.logSQL(query, args)
	if _, err := db.adapter.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("dtable: delete from %s: %w", handle.Name, err)
	}
	return nil
}

// Upsert inserts or updates records in chunks, resolving conflicts on the
// table's primary key. Each returned Record carries the primary-key columns of
// one affected row; results concatenate across chunks in input order.
//
// The first record of each chunk fixes that chunk's column set; a later record
// in the chunk missing one of those columns is an error rather than an
// implicit NULL.
//
// Chunks execute sequentially with no cross-chunk transaction. A mid-batch
// failure leaves earlier chunks applied; because the per-row effect is
// idempotent, retrying the whole batch converges.
func (db *DB) Upsert(ctx context.Context, tableName string, records []Record, opts ...UpsertOption) ([]Record, error) {
	up := upsertOptions{chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(&up)
	}
	if len(records) == 0 {
		return []Record{}, nil
	}

	handle, err := db.Resolve(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if len(handle.PrimaryKey) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, handle.Name)
	}
	d := db.adapter.Dialect()

	results := make([]Record, 0, len(records))
	for start := 0; start < len(records); start += up.chunkSize {
		end := start + up.chunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		// The first record of each chunk fixes the chunk's column set.
		columns := chunk[0].Keys()
		if len(columns) == 0 {
			return nil, fmt.Errorf("dtable: upsert into %s: record %d is empty", handle.Name, start)
		}
		for _, c := range columns {
			if !handle.HasColumn(c) {
				return nil, fmt.Errorf("dtable: unknown column %q in upsert for table %s", c, handle.Name)
			}
		}

		args := make([]interface{}, 0, len(chunk)*len(columns))
		for i := range chunk {
			for _, c := range columns {
				v, ok := chunk[i].Get(c)
				if !ok {
					return nil, fmt.Errorf("dtable: record %d is missing column %q present in the first record of its chunk", start+i, c)
				}
				args = append(args, v)
			}
		}

		query := sqlbuilder.BuildUpsertSQL(d, db.adapter.DialectName(), handle.Qualified(d), handle.Name, columns, len(chunk), handle.PrimaryKey, up.overwriteWithNull)
		db.logSQL(query, fmt.Sprintf("<%d records>", len(chunk)))

		if d.SupportsReturning() {
			returned, err := db.adapter.Query(ctx, query, args...)
			if err != nil {
				return nil, fmt.Errorf("dtable: upsert into %s: %w", handle.Name, err)
			}
			results = append(results, returned...)
		} else {
			if _, err := db.adapter.Exec(ctx, query, args...); err != nil {
				return nil, fmt.Errorf("dtable: upsert into %s: %w", handle.Name, err)
			}
			// No RETURNING on this dialect; echo the key columns from the input.
			for i := range chunk {
				echo := NewRecord()
				for _, pk := range handle.PrimaryKey {
					v, _ := chunk[i].Get(pk)
					echo.Set(pk, v)
				}
				results = append(results, *echo)
			}
		}
	}
	return results, nil
}

// UpsertOne upserts a single record and returns its key record.
func (db *DB) UpsertOne(ctx context.Context, tableName string, record Record, opts ...UpsertOption) (Record, error) {
	results, err := db.Upsert(ctx, tableName, []Record{record}, opts...)
	if err != nil {
		return Record{}, err
	}
	if len(results) == 0 {
		return Record{}, fmt.Errorf("dtable: upsert into %s returned no rows", tableName)
	}
	return results[0], nil
}

// CreateTable creates tableName with the given columns. When the table already
// exists and CheckExisting is on (the default), it degrades to an additive
// migration: columns missing from the live table are added, nothing else is
// altered, and no column or constraint is ever dropped.
func (db *DB) CreateTable(ctx context.Context, tableName string, columns []ColumnSpec, opts ...CreateOption) error {
	create := createOptions{checkExisting: true}
	for _, opt := range opts {
		opt(&create)
	}
	d := db.adapter.Dialect()

	if create.checkExisting {
		if handle, err := db.Resolve(ctx, tableName); err == nil {
			return db.addMissingColumns(ctx, handle, columns)
		} else if !errors.Is(err, ErrTableNotFound) {
			return err
		}
	}

	defs := make([]sqlbuilder.ColumnDef, len(columns))
	for i, c := range columns {
		defs[i] = sqlbuilder.ColumnDef{
			Name:          c.Name,
			Type:          c.Type,
			Default:       c.Default,
			ServerDefault: c.ServerDefault,
			AutoIncrement: c.AutoIncrement,
			References:    c.References,
		}
	}
	qualified := db.qualify(d, tableName)
	query, err := sqlbuilder.BuildCreateTableSQL(d, db.adapter.DialectName(), qualified, defs, create.primaryKey, create.uniqueColumns, create.checkExisting)
	if err != nil {
		return fmt.Errorf("dtable: %w", err)
	}
	db.logSQL(query, nil)
	if _, err := db.adapter.Exec(ctx, query); err != nil {
		return fmt.Errorf("dtable: create table %s: %w", tableName, err)
	}
	db.invalidateSchemaCache(ctx, tableName)
	return nil
}

// addMissingColumns is the additive branch of CreateTable.
func (db *DB) addMissingColumns(ctx context.Context, handle *TableHandle, columns []ColumnSpec) error {
	for _, c := range columns {
		if handle.HasColumn(c.Name) {
			continue
		}
		if err := db.AddColumn(ctx, handle.Name, c.Name, c.Type); err != nil {
			return err
		}
	}
	return nil
}

// AddColumn issues a single additive ALTER TABLE ADD COLUMN statement. Adding
// a column that already exists is an error here; CreateTable's existing-table
// branch is the idempotent path.
func (db *DB) AddColumn(ctx context.Context, tableName, column, columnType string) error {
	handle, err := db.Resolve(ctx, tableName)
	if err != nil {
		return err
	}
	if handle.HasColumn(column) {
		return fmt.Errorf("%w: %s.%s", ErrColumnAlreadyExists, handle.Name, column)
	}
	d := db.adapter.Dialect()
	query := sqlbuilder.BuildAddColumnSQL(d, handle.Qualified(d), column, columnType)
	db.logSQL(query, nil)
	if _, err := db.adapter.Exec(ctx, query); err != nil {
		return fmt.Errorf("dtable: add column %s.%s: %w", handle.Name, column, err)
	}
	db.invalidateSchemaCache(ctx, tableName)
	return nil
}

// ExecRaw is the explicit escape hatch for arbitrary SQL. It is the only path
// where caller-supplied statement text reaches the database; the declarative
// operations never interpolate caller fragments. Statements that return no
// rows yield an empty slice.
func (db *DB) ExecRaw(ctx context.Context, query string, args ...interface{}) ([]Record, error) {
	db.logSQL(query, args)
	records, err := db.adapter.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dtable: exec raw: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// qualify quotes and schema-qualifies a table name that has no handle yet.
func (db *DB) qualify(d Dialector, tableName string) string {
	if db.schema == "" {
		return d.Quote(tableName)
	}
	return d.Quote(db.schema) + "." + d.Quote(tableName)
}

// logSQL prints the compiled statement when verbose mode is on.
func (db *DB) logSQL(query string, args interface{}) {
	if !db.verbose {
		return
	}
	log.Printf("dtable: SQL: %s [%v]", query, args)
}

// toInt64 normalizes the COUNT(*) scalar across driver value types.
func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case []byte:
		var out int64
		if _, err := fmt.Sscan(string(n), &out); err != nil {
			return 0, fmt.Errorf("dtable: non-numeric count value %q", n)
		}
		return out, nil
	default:
		return 0, fmt.Errorf("dtable: non-numeric count value of type %T", v)
	}
}
