package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupIntrospector(t *testing.T) (*Adapter, *Introspector) {
	t.Helper()
	adapter, err := NewAdapter(filepath.Join(t.TempDir(), "introspect.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter, &Introspector{DB: adapter.DB()}
}

func TestGetTableInfo(t *testing.T) {
	adapter, intro := setupIntrospector(t)
	ctx := context.Background()

	_, err := adapter.Exec(ctx, `CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT UNIQUE,
		age INTEGER DEFAULT 18
	)`)
	require.NoError(t, err)

	info, err := intro.GetTableInfo(ctx, "", "users")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, "users", info.Name)
	require.Len(t, info.Columns, 4)
	assert.Equal(t, "id", info.Columns[0].Name)
	assert.Equal(t, "name", info.Columns[1].Name)
	assert.False(t, info.Columns[1].IsNullable)
	assert.True(t, info.Columns[2].IsNullable)
	require.NotNil(t, info.Columns[3].Default)
	assert.Equal(t, "18", *info.Columns[3].Default)

	assert.Equal(t, []string{"id"}, info.PrimaryKey)
	assert.Equal(t, []string{"email"}, info.UniqueColumns)
}

func TestGetTableInfoMissingTable(t *testing.T) {
	_, intro := setupIntrospector(t)

	info, err := intro.GetTableInfo(context.Background(), "", "ghosts")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetTableInfoCompositeKeyOrder(t *testing.T) {
	adapter, intro := setupIntrospector(t)
	ctx := context.Background()

	_, err := adapter.Exec(ctx, `CREATE TABLE grades (
		grade INTEGER,
		student INTEGER,
		course TEXT,
		PRIMARY KEY (student, course)
	)`)
	require.NoError(t, err)

	info, err := intro.GetTableInfo(ctx, "", "grades")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, []string{"student", "course"}, info.PrimaryKey, "key order, not column order")
}

func TestListTablesAndViews(t *testing.T) {
	adapter, intro := setupIntrospector(t)
	ctx := context.Background()

	_, err := adapter.Exec(ctx, "CREATE TABLE bbb (id INTEGER)")
	require.NoError(t, err)
	_, err = adapter.Exec(ctx, "CREATE TABLE aaa (id INTEGER)")
	require.NoError(t, err)
	_, err = adapter.Exec(ctx, "CREATE VIEW vvv AS SELECT id FROM aaa")
	require.NoError(t, err)

	tables, err := intro.ListTables(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa", "bbb"}, tables)

	views, err := intro.ListViews(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"vvv"}, views)
}
