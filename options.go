package dtable

import "time"

// Option configures a DB at construction time.
type Option func(*DB)

// WithSchema sets the schema namespace used for introspection and DDL.
// Dialects without schema support (SQLite) ignore it.
func WithSchema(schemaName string) Option {
	return func(db *DB) { db.schema = schemaName }
}

// WithVerbose enables logging of every compiled statement before execution.
// Diagnostics only; it never affects control flow.
func WithVerbose(verbose bool) Option {
	return func(db *DB) { db.verbose = verbose }
}

// WithSchemaCache installs an explicit caching strategy at the introspector
// boundary. Without it every operation re-reads the live catalog, so schema
// changes made by other processes are visible on the next call.
func WithSchemaCache(cache SchemaCache, ttl time.Duration) Option {
	return func(db *DB) {
		db.schemaCache = cache
		db.schemaCacheTTL = ttl
	}
}

// --- Select options ---

type selectOptions struct {
	columns   []string
	filters   []Filter
	limit     int // -1 means unbounded; 0 is a valid explicit limit
	offset    int
	sortField string
}

// SelectOption configures a Get call.
type SelectOption func(*selectOptions)

// Columns restricts the selected column set. Default is all columns.
func Columns(cols ...string) SelectOption {
	return func(o *selectOptions) { o.columns = cols }
}

// Where adds filter predicates; all predicates combine with AND.
func Where(filters ...Filter) SelectOption {
	return func(o *selectOptions) { o.filters = append(o.filters, filters...) }
}

// Limit bounds the number of returned rows. Limit(0) is honored and returns
// an empty result.
func Limit(n int) SelectOption {
	return func(o *selectOptions) { o.limit = n }
}

// Offset skips the first n matching rows.
func Offset(n int) SelectOption {
	return func(o *selectOptions) { o.offset = n }
}

// OrderBy sorts by "column" or "column DESC"; default is unordered.
func OrderBy(sortField string) SelectOption {
	return func(o *selectOptions) { o.sortField = sortField }
}

// --- Upsert options ---

type upsertOptions struct {
	chunkSize         int
	overwriteWithNull bool
}

// UpsertOption configures an Upsert call.
type UpsertOption func(*upsertOptions)

// DefaultChunkSize bounds how many records go into one upsert statement.
const DefaultChunkSize = 1000

// ChunkSize overrides the per-statement batch size.
func ChunkSize(n int) UpsertOption {
	return func(o *upsertOptions) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// OverwriteWithNull controls the per-column conflict policy: when true the
// incoming value always wins, including null; when false (the default) a null
// incoming value preserves the existing stored value (a coalesce-style merge).
func OverwriteWithNull(overwrite bool) UpsertOption {
	return func(o *upsertOptions) { o.overwriteWithNull = overwrite }
}

// --- CreateTable options ---

type createOptions struct {
	primaryKey    []string
	uniqueColumns []string
	checkExisting bool
}

// CreateOption configures a CreateTable call.
type CreateOption func(*createOptions)

// PrimaryKey declares the primary key columns for a freshly created table.
func PrimaryKey(cols ...string) CreateOption {
	return func(o *createOptions) { o.primaryKey = cols }
}

// UniqueColumns adds a single-column unique constraint per named column.
func UniqueColumns(cols ...string) CreateOption {
	return func(o *createOptions) { o.uniqueColumns = cols }
}

// CheckExisting controls the existing-table branch: when true (the default) and
// the table already exists, CreateTable degrades to an additive migration that
// only adds missing columns.
func CheckExisting(check bool) CreateOption {
	return func(o *createOptions) { o.checkExisting = check }
}
