package dtable

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
)

// Condition is an operator-tagged predicate leaf. Operators outside the known
// set fall through to a literal pass-through path, so dialect-specific
// operators (e.g. "~", "@>", "ILIKE") work without this package knowing them.
// The operator token itself is validated; it is never a raw SQL fragment.
type Condition struct {
	Operator string
	Value    interface{}
}

// Filter is a declarative filter specification for one or more columns.
// A plain value means equality; a Condition value selects the operator.
// Multiple entries, and multiple Filters in a call, combine with AND.
type Filter map[string]interface{}

// Known operator tokens, compared case-insensitively.
const (
	OpEqual      = "="
	OpIn         = "in"
	OpNotIn      = "not in"
	OpLike       = "like"
	OpNotLike    = "not like"
	OpIsNull     = "is null"
	OpIsNotNull  = "is not null"
	OpBetween    = "between"
	OpNotBetween = "not between"
)

var (
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	// Operator tokens may contain letters, digits, spaces and common SQL
	// operator punctuation. Quotes, semicolons and parentheses are rejected.
	operatorPattern = regexp.MustCompile(`^[A-Za-z0-9_ <>=!~@&|^#%*/+-]+$`)
)

// compileWhere translates filters into a parameterized condition expression for
// the given table. Empty input means "no filter" and yields an empty clause.
func compileWhere(h *TableHandle, d Dialector, filters []Filter) (string, []interface{}, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	var clauses []string
	var args []interface{}
	for _, f := range filters {
		// Map iteration order is random; sort for deterministic statements.
		fields := make([]string, 0, len(f))
		for field := range f {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		for _, field := range fields {
			if !identPattern.MatchString(field) {
				return "", nil, fmt.Errorf("%w: field %q is not a plain identifier", ErrUnsafeValue, field)
			}
			if !h.HasColumn(field) {
				return "", nil, fmt.Errorf("dtable: unknown column %q in filter for table %s", field, h.Name)
			}
			clause, leafArgs, err := compileLeaf(d.Quote(field), field, f[field])
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, clause)
			args = append(args, leafArgs...)
		}
	}
	return strings.Join(clauses, " AND "), args, nil
}

// compileLeaf compiles a single field predicate into a clause and its args.
func compileLeaf(quoted, field string, value interface{}) (string, []interface{}, error) {
	cond, tagged := value.(Condition)
	if !tagged {
		if value == nil {
			return quoted + " IS NULL", nil, nil
		}
		return quoted + " = ?", []interface{}{value}, nil
	}

	switch strings.ToLower(strings.TrimSpace(cond.Operator)) {
	case "", OpEqual, "eq":
		if cond.Value == nil {
			return quoted + " IS NULL", nil, nil
		}
		return quoted + " = ?", []interface{}{cond.Value}, nil
	case OpIn:
		return compileIn(quoted, field, cond.Value, false)
	case OpNotIn:
		return compileIn(quoted, field, cond.Value, true)
	case OpLike:
		return quoted + " LIKE ?", []interface{}{cond.Value}, nil
	case OpNotLike:
		return quoted + " NOT LIKE ?", []interface{}{cond.Value}, nil
	case OpIsNull:
		return quoted + " IS NULL", nil, nil
	case OpIsNotNull:
		return quoted + " IS NOT NULL", nil, nil
	case OpBetween:
		lo, hi, err := betweenBounds(field, cond.Value)
		if err != nil {
			return "", nil, err
		}
		return quoted + " BETWEEN ? AND ?", []interface{}{lo, hi}, nil
	case OpNotBetween:
		lo, hi, err := betweenBounds(field, cond.Value)
		if err != nil {
			return "", nil, err
		}
		return quoted + " NOT BETWEEN ? AND ?", []interface{}{lo, hi}, nil
	default:
		// Literal pass-through for dialect-specific operators. The token is
		// validated; the value still travels as a bind parameter.
		op := strings.TrimSpace(cond.Operator)
		if !operatorPattern.MatchString(op) {
			return "", nil, fmt.Errorf("%w: operator %q on field %q", ErrUnsafeValue, cond.Operator, field)
		}
		return quoted + " " + op + " ?", []interface{}{cond.Value}, nil
	}
}

// compileIn expands an IN / NOT IN membership test. The collection must be
// non-empty: an empty membership test is almost always a caller bug, and the
// SQL would be invalid anyway.
func compileIn(quoted, field string, value interface{}, negate bool) (string, []interface{}, error) {
	elems, err := collectionValues(value)
	if err != nil {
		return "", nil, fmt.Errorf("dtable: 'in' operator on field %q: %w", field, err)
	}
	if len(elems) == 0 {
		return "", nil, fmt.Errorf("dtable: 'in' operator on field %q requires a non-empty collection", field)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(elems)), ", ")
	op := " IN ("
	if negate {
		op = " NOT IN ("
	}
	return quoted + op + placeholders + ")", elems, nil
}

// betweenBounds validates the two-element value of a BETWEEN predicate.
func betweenBounds(field string, value interface{}) (interface{}, interface{}, error) {
	elems, err := collectionValues(value)
	if err != nil || len(elems) != 2 {
		return nil, nil, fmt.Errorf("dtable: 'between' operator on field %q requires a two-element value", field)
	}
	return elems[0], elems[1], nil
}

// collectionValues flattens a slice or array value into []interface{}.
func collectionValues(value interface{}) ([]interface{}, error) {
	v := reflect.ValueOf(value)
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return nil, fmt.Errorf("expected a slice, got %T", value)
	}
	elems := make([]interface{}, v.Len())
	for i := 0; i < v.Len(); i++ {
		elems[i] = v.Index(i).Interface()
	}
	return elems, nil
}

// parseSortField validates a "column" or "column DESC"/"column ASC" sort
// specification against the handle and returns it dialect-quoted.
func parseSortField(h *TableHandle, d Dialector, sortField string) (string, error) {
	parts := strings.Fields(sortField)
	if len(parts) == 0 || len(parts) > 2 {
		return "", fmt.Errorf("%w: sort field %q", ErrUnsafeValue, sortField)
	}
	col := parts[0]
	if !identPattern.MatchString(col) {
		return "", fmt.Errorf("%w: sort field %q is not a plain identifier", ErrUnsafeValue, sortField)
	}
	if !h.HasColumn(col) {
		return "", fmt.Errorf("dtable: unknown sort column %q for table %s", col, h.Name)
	}
	out := d.Quote(col)
	if len(parts) == 2 {
		switch strings.ToUpper(parts[1]) {
		case "ASC", "DESC":
			out += " " + strings.ToUpper(parts[1])
		default:
			return "", fmt.Errorf("%w: sort direction %q", ErrUnsafeValue, parts[1])
		}
	}
	return out, nil
}
