package dtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtable/drivers/schema"
)

// testDialector quotes with double quotes, RETURNING supported.
type testDialector struct{}

func (testDialector) Quote(identifier string) string { return `"` + identifier + `"` }
func (testDialector) SupportsReturning() bool        { return true }

func testHandle() *TableHandle {
	return newTableHandle(&schema.TableInfo{
		Name: "users",
		Columns: []schema.ColumnInfo{
			{Name: "id"},
			{Name: "name"},
			{Name: "email"},
			{Name: "age"},
			{Name: "meta"},
		},
		PrimaryKey: []string{"id"},
	})
}

func TestCompileWhereEmpty(t *testing.T) {
	clause, args, err := compileWhere(testHandle(), testDialector{}, nil)
	require.NoError(t, err)
	assert.Empty(t, clause)
	assert.Empty(t, args)
}

func TestCompileWhereEquality(t *testing.T) {
	clause, args, err := compileWhere(testHandle(), testDialector{}, []Filter{{"name": "alice"}})
	require.NoError(t, err)
	assert.Equal(t, `"name" = ?`, clause)
	assert.Equal(t, []interface{}{"alice"}, args)
}

func TestCompileWhereNilMeansIsNull(t *testing.T) {
	clause, args, err := compileWhere(testHandle(), testDialector{}, []Filter{{"email": nil}})
	require.NoError(t, err)
	assert.Equal(t, `"email" IS NULL`, clause)
	assert.Empty(t, args)
}

func TestCompileWhereSortsFieldsForDeterminism(t *testing.T) {
	f := Filter{"name": "a", "age": 3, "email": "e"}
	for i := 0; i < 10; i++ {
		clause, args, err := compileWhere(testHandle(), testDialector{}, []Filter{f})
		require.NoError(t, err)
		assert.Equal(t, `"age" = ? AND "email" = ? AND "name" = ?`, clause)
		assert.Equal(t, []interface{}{3, "e", "a"}, args)
	}
}

func TestCompileWhereMultipleFiltersAND(t *testing.T) {
	clause, args, err := compileWhere(testHandle(), testDialector{},
		[]Filter{{"name": "a"}, {"age": 5}})
	require.NoError(t, err)
	assert.Equal(t, `"name" = ? AND "age" = ?`, clause)
	assert.Equal(t, []interface{}{"a", 5}, args)
}

func TestCompileWhereOperators(t *testing.T) {
	tests := []struct {
		name       string
		cond       Condition
		wantClause string
		wantArgs   []interface{}
	}{
		{"gte", Condition{Operator: ">=", Value: 18}, `"age" >= ?`, []interface{}{18}},
		{"in", Condition{Operator: "in", Value: []int{1, 2, 3}}, `"age" IN (?, ?, ?)`, []interface{}{1, 2, 3}},
		{"not in", Condition{Operator: "not in", Value: []int{7}}, `"age" NOT IN (?)`, []interface{}{7}},
		{"like", Condition{Operator: "like", Value: "a%"}, `"age" LIKE ?`, []interface{}{"a%"}},
		{"not like", Condition{Operator: "NOT LIKE", Value: "a%"}, `"age" NOT LIKE ?`, []interface{}{"a%"}},
		{"is null", Condition{Operator: "is null"}, `"age" IS NULL`, nil},
		{"is not null", Condition{Operator: "IS NOT NULL"}, `"age" IS NOT NULL`, nil},
		{"between", Condition{Operator: "between", Value: []int{1, 9}}, `"age" BETWEEN ? AND ?`, []interface{}{1, 9}},
		{"not between", Condition{Operator: "not between", Value: []int{1, 9}}, `"age" NOT BETWEEN ? AND ?`, []interface{}{1, 9}},
		{"eq alias", Condition{Operator: "eq", Value: 4}, `"age" = ?`, []interface{}{4}},
		{"empty op", Condition{Value: 4}, `"age" = ?`, []interface{}{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, args, err := compileWhere(testHandle(), testDialector{}, []Filter{{"age": tt.cond}})
			require.NoError(t, err)
			assert.Equal(t, tt.wantClause, clause)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestCompileWhereLiteralOperatorPassThrough(t *testing.T) {
	// Unknown but well-formed operators pass through with the value bound.
	clause, args, err := compileWhere(testHandle(), testDialector{},
		[]Filter{{"meta": Condition{Operator: "@>", Value: `{"a":1}`}}})
	require.NoError(t, err)
	assert.Equal(t, `"meta" @> ?`, clause)
	assert.Equal(t, []interface{}{`{"a":1}`}, args)
}

func TestCompileWhereRejectsMalformedOperator(t *testing.T) {
	_, _, err := compileWhere(testHandle(), testDialector{},
		[]Filter{{"name": Condition{Operator: "= ? OR '1'='1", Value: "x"}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsafeValue)
}

func TestCompileWhereRejectsMalformedField(t *testing.T) {
	_, _, err := compileWhere(testHandle(), testDialector{},
		[]Filter{{`name"; DROP TABLE users; --`: "x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsafeValue)
}

func TestCompileWhereRejectsUnknownColumn(t *testing.T) {
	_, _, err := compileWhere(testHandle(), testDialector{}, []Filter{{"nope": 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown column")
}

func TestCompileWhereEmptyInCollection(t *testing.T) {
	_, _, err := compileWhere(testHandle(), testDialector{},
		[]Filter{{"age": Condition{Operator: "in", Value: []int{}}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-empty collection")
}

func TestCompileWhereInRejectsScalar(t *testing.T) {
	_, _, err := compileWhere(testHandle(), testDialector{},
		[]Filter{{"age": Condition{Operator: "in", Value: 5}}})
	require.Error(t, err)
}

func TestCompileWhereBetweenArity(t *testing.T) {
	_, _, err := compileWhere(testHandle(), testDialector{},
		[]Filter{{"age": Condition{Operator: "between", Value: []int{1, 2, 3}}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "two-element")
}

func TestParseSortField(t *testing.T) {
	out, err := parseSortField(testHandle(), testDialector{}, "name")
	require.NoError(t, err)
	assert.Equal(t, `"name"`, out)

	out, err = parseSortField(testHandle(), testDialector{}, "age desc")
	require.NoError(t, err)
	assert.Equal(t, `"age" DESC`, out)

	out, err = parseSortField(testHandle(), testDialector{}, "age ASC")
	require.NoError(t, err)
	assert.Equal(t, `"age" ASC`, out)
}

func TestParseSortFieldRejectsGarbage(t *testing.T) {
	_, err := parseSortField(testHandle(), testDialector{}, "age; DROP TABLE users")
	require.Error(t, err)

	_, err = parseSortField(testHandle(), testDialector{}, "age sideways")
	require.Error(t, err)

	_, err = parseSortField(testHandle(), testDialector{}, "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sort column")
}

func TestTableHandleQualified(t *testing.T) {
	h := testHandle()
	assert.Equal(t, `"users"`, h.Qualified(testDialector{}))

	h.Schema = "app"
	assert.Equal(t, `"app"."users"`, h.Qualified(testDialector{}))
}
