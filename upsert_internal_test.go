package dtable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtable/drivers/schema"
)

// stubAdapter records executed statements; its dialect has no RETURNING
// support, so Upsert takes the echo fallback path.
type stubAdapter struct {
	execs   []string
	queries []string
}

type stubDialector struct{}

func (stubDialector) Quote(identifier string) string { return `"` + identifier + `"` }
func (stubDialector) SupportsReturning() bool        { return false }

type stubResult struct{}

func (stubResult) LastInsertId() (int64, error) { return 0, nil }
func (stubResult) RowsAffected() (int64, error) { return 1, nil }

func (a *stubAdapter) Query(_ context.Context, query string, _ ...interface{}) ([]Record, error) {
	a.queries = append(a.queries, query)
	return []Record{}, nil
}

func (a *stubAdapter) Exec(_ context.Context, query string, _ ...interface{}) (sql.Result, error) {
	a.execs = append(a.execs, query)
	return stubResult{}, nil
}

func (a *stubAdapter) ExecBatch(_ context.Context, query string, argSets [][]interface{}) (int64, error) {
	a.execs = append(a.execs, query)
	return int64(len(argSets)), nil
}

func (a *stubAdapter) Ping(context.Context) error { return nil }

func (a *stubAdapter) BeginTx(context.Context, *sql.TxOptions) (Tx, error) {
	return nil, errors.New("stub adapter has no transactions")
}

func (a *stubAdapter) Close() error { return nil }

func (a *stubAdapter) DB() *sqlx.DB { return nil }

func (a *stubAdapter) Dialect() Dialector { return stubDialector{} }

func (a *stubAdapter) DialectName() string { return "stub" }

type stubIntrospector struct{}

func (stubIntrospector) GetTableInfo(_ context.Context, _, tableName string) (*schema.TableInfo, error) {
	if tableName != "items" {
		return nil, nil
	}
	return &schema.TableInfo{
		Name: "items",
		Columns: []schema.ColumnInfo{
			{Name: "id"},
			{Name: "val"},
		},
		PrimaryKey: []string{"id"},
	}, nil
}

func (stubIntrospector) ListTables(context.Context, string) ([]string, error) {
	return []string{"items"}, nil
}

func (stubIntrospector) ListViews(context.Context, string) ([]string, error) { return nil, nil }

func init() {
	RegisterIntrospectorFactory("stub", func(DBAdapter) schema.Introspector {
		return stubIntrospector{}
	})
}

func TestUpsertStatementCountPerChunkSize(t *testing.T) {
	tests := []struct {
		n, chunk, wantStmts int
	}{
		{1, 1, 1},
		{5, 1, 5},
		{5, 2, 3},
		{4, 2, 2},
		{5, 5, 1},
		{5, 10, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d_c=%d", tt.n, tt.chunk), func(t *testing.T) {
			adapter := &stubAdapter{}
			db, err := Open(adapter)
			require.NoError(t, err)

			var records []Record
			for i := 1; i <= tt.n; i++ {
				records = append(records, *NewRecord().Set("id", i).Set("val", i*10))
			}
			keys, err := db.Upsert(context.Background(), "items", records, ChunkSize(tt.chunk))
			require.NoError(t, err)

			assert.Len(t, adapter.execs, tt.wantStmts, "one statement per chunk")
			require.Len(t, keys, tt.n, "one key record per input record")
			for i, k := range keys {
				id, ok := k.Get("id")
				require.True(t, ok)
				assert.Equal(t, i+1, id, "echoed keys preserve input order")
			}
		})
	}
}

func TestUpsertEchoFallbackWithoutReturning(t *testing.T) {
	adapter := &stubAdapter{}
	db, err := Open(adapter)
	require.NoError(t, err)

	keys, err := db.Upsert(context.Background(), "items", []Record{
		*NewRecord().Set("id", 42).Set("val", "x"),
	})
	require.NoError(t, err)

	require.Len(t, keys, 1)
	assert.Equal(t, []string{"id"}, keys[0].Keys(), "echo carries only primary-key columns")
	id, _ := keys[0].Get("id")
	assert.Equal(t, 42, id)
	assert.Empty(t, adapter.queries, "no RETURNING means no row-returning statement")
}

func TestUpsertInvalidChunkSizeIgnored(t *testing.T) {
	adapter := &stubAdapter{}
	db, err := Open(adapter)
	require.NoError(t, err)

	_, err = db.Upsert(context.Background(), "items", []Record{
		*NewRecord().Set("id", 1),
		*NewRecord().Set("id", 2),
	}, ChunkSize(0))
	require.NoError(t, err)
	assert.Len(t, adapter.execs, 1, "non-positive chunk size falls back to the default")
}
