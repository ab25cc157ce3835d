// Package mysql provides the MySQL adapter and catalog introspector.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"dtable"
	"dtable/drivers/schema"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
)

// Dialector implements dtable.Dialector for MySQL.
type Dialector struct{}

func (d Dialector) Quote(identifier string) string {
	return "`" + identifier + "`"
}

// SupportsReturning is false: MySQL has no INSERT ... RETURNING, so upsert
// results are echoed from the input records instead.
func (d Dialector) SupportsReturning() bool { return false }

// Adapter implements the dtable.DBAdapter interface for MySQL.
type Adapter struct {
	db      *sqlx.DB
	dsn     string
	closeMx sync.Mutex
	closed  bool
}

// NewAdapter opens a MySQL connection pool and verifies the connection.
func NewAdapter(dsn string) (*Adapter, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql database: %w", err)
	}
	return &Adapter{db: db, dsn: dsn}, nil
}

func (a *Adapter) Query(ctx context.Context, query string, args ...interface{}) ([]dtable.Record, error) {
	if a.isClosed() {
		return nil, fmt.Errorf("adapter is closed")
	}
	rows, err := a.db.QueryxContext(ctx, a.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("mysql query error: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (a *Adapter) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if a.isClosed() {
		return nil, fmt.Errorf("adapter is closed")
	}
	result, err := a.db.ExecContext(ctx, a.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("mysql exec error: %w", err)
	}
	return result, nil
}

func (a *Adapter) ExecBatch(ctx context.Context, query string, argSets [][]interface{}) (int64, error) {
	if a.isClosed() {
		return 0, fmt.Errorf("adapter is closed")
	}
	stmt, err := a.db.PreparexContext(ctx, a.db.Rebind(query))
	if err != nil {
		return 0, fmt.Errorf("mysql prepare error: %w", err)
	}
	defer stmt.Close()

	var total int64
	for i, args := range argSets {
		result, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return total, fmt.Errorf("mysql batch exec error at record %d: %w", i, err)
		}
		affected, _ := result.RowsAffected()
		total += affected
	}
	return total, nil
}

func (a *Adapter) Ping(ctx context.Context) error {
	if a.isClosed() {
		return fmt.Errorf("adapter is closed")
	}
	return a.db.PingContext(ctx)
}

func (a *Adapter) BeginTx(ctx context.Context, opts *sql.TxOptions) (dtable.Tx, error) {
	if a.isClosed() {
		return nil, fmt.Errorf("adapter is closed")
	}
	tx, err := a.db.BeginTxx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to begin mysql transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

func (a *Adapter) Close() error {
	a.closeMx.Lock()
	defer a.closeMx.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.db.Close()
}

func (a *Adapter) isClosed() bool {
	a.closeMx.Lock()
	defer a.closeMx.Unlock()
	return a.closed
}

func (a *Adapter) DB() *sqlx.DB { return a.db }

func (a *Adapter) Dialect() dtable.Dialector { return Dialector{} }

func (a *Adapter) DialectName() string { return "mysql" }

// --- Transaction wrapper ---

// Tx wraps a sqlx.Tx to implement the dtable.Tx interface.
type Tx struct {
	tx *sqlx.Tx
}

func (t *Tx) Query(ctx context.Context, query string, args ...interface{}) ([]dtable.Record, error) {
	rows, err := t.tx.QueryxContext(ctx, t.tx.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("mysql tx query error: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (t *Tx) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	result, err := t.tx.ExecContext(ctx, t.tx.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("mysql tx exec error: %w", err)
	}
	return result, nil
}

func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("mysql commit error: %w", err)
	}
	return nil
}

func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			log.Printf("DB Transaction Rollback Warning: %v", err)
			return err
		}
		return fmt.Errorf("mysql rollback error: %w", err)
	}
	return nil
}

// scanRecords drains rows into ordered Records. The MySQL driver hands text
// columns back as []byte; those are normalized to string so records read the
// same across drivers.
func scanRecords(rows *sqlx.Rows) ([]dtable.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("mysql failed fetching columns: %w", err)
	}
	records := []dtable.Record{}
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("mysql scan error: %w", err)
		}
		rec := dtable.NewRecord()
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				rec.Set(c, string(b))
			} else {
				rec.Set(c, vals[i])
			}
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mysql rows error: %w", err)
	}
	return records, nil
}

// Register the MySQL introspector factory at init time to avoid import cycles.
func init() {
	dtable.RegisterIntrospectorFactory("mysql", func(adapter dtable.DBAdapter) schema.Introspector {
		return &Introspector{DB: adapter.DB()}
	})
}
