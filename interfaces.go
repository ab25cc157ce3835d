// interfaces.go
// Core interfaces for dtable: DBAdapter, Tx, Dialector, SchemaCache.
// These are public and intended for use by callers and driver developers.

package dtable

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"dtable/drivers/schema"
)

// DBAdapter defines the connection-provider boundary for database drivers.
// Statements are written with '?' placeholders; each adapter rebinds them to
// its dialect's bindvar style before execution.
type DBAdapter interface {
	// Query executes a row-returning statement and materializes every row as an
	// ordered Record, columns in result-set order.
	Query(ctx context.Context, query string, args ...interface{}) ([]Record, error)
	// Exec executes a statement that returns no rows.
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	// ExecBatch prepares the statement once, executes it for every argument set
	// in order, and returns the total number of rows affected.
	ExecBatch(ctx context.Context, query string, argSets [][]interface{}) (int64, error)
	Ping(ctx context.Context) error
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
	Close() error
	// DB exposes the underlying sqlx handle for advanced use cases (introspectors).
	DB() *sqlx.DB
	Dialect() Dialector
	DialectName() string
}

// Tx defines the interface for transaction-scoped execution.
type Tx interface {
	Query(ctx context.Context, query string, args ...interface{}) ([]Record, error)
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Commit() error
	Rollback() error
}

// Dialector defines how to quote identifiers and which statement shapes a
// specific SQL dialect supports.
type Dialector interface {
	Quote(identifier string) string // Quote a SQL identifier (table/column name)
	// SupportsReturning reports whether INSERT ... RETURNING is available; when
	// false, upsert falls back to echoing primary-key values from its input.
	SupportsReturning() bool
}

// SchemaCache is an optional caching strategy at the introspector boundary.
// The default is no cache: every call re-reads the live catalog. Installing a
// cache trades freshness under concurrent schema changes for fewer catalog
// round trips; DDL issued through this package invalidates affected entries.
type SchemaCache interface {
	GetTable(ctx context.Context, key string) (*schema.TableInfo, error)
	SetTable(ctx context.Context, key string, info *schema.TableInfo, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}
