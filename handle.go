package dtable

import (
	"strings"

	"dtable/drivers/schema"
)

// TableHandle is a resolved reference to one table within a schema namespace.
// It is constructed fresh on every introspecting call (unless an explicit
// SchemaCache is installed) and discarded after the call completes.
type TableHandle struct {
	Name          string
	Schema        string
	Columns       []string // Ordered column names; never empty for an existing table
	PrimaryKey    []string // Primary key column names, possibly empty
	UniqueColumns []string

	columnSet map[string]struct{}
}

// newTableHandle builds a handle from introspected catalog info.
func newTableHandle(info *schema.TableInfo) *TableHandle {
	h := &TableHandle{
		Name:          info.Name,
		Schema:        info.Schema,
		PrimaryKey:    append([]string(nil), info.PrimaryKey...),
		UniqueColumns: append([]string(nil), info.UniqueColumns...),
		columnSet:     make(map[string]struct{}, len(info.Columns)),
	}
	h.Columns = make([]string, 0, len(info.Columns))
	for _, c := range info.Columns {
		h.Columns = append(h.Columns, c.Name)
		h.columnSet[c.Name] = struct{}{}
	}
	return h
}

// HasColumn reports whether the table currently has the named column.
func (h *TableHandle) HasColumn(name string) bool {
	_, ok := h.columnSet[name]
	return ok
}

// Qualified returns the dialect-quoted, schema-qualified table name.
func (h *TableHandle) Qualified(d Dialector) string {
	if h.Schema == "" {
		return d.Quote(h.Name)
	}
	return d.Quote(h.Schema) + "." + d.Quote(h.Name)
}

// QuotedColumns returns the handle's columns quoted for the dialect.
func (h *TableHandle) QuotedColumns(d Dialector) []string {
	quoted := make([]string, len(h.Columns))
	for i, c := range h.Columns {
		quoted[i] = d.Quote(c)
	}
	return quoted
}

// String implements fmt.Stringer for diagnostics.
func (h *TableHandle) String() string {
	qualified := h.Name
	if h.Schema != "" {
		qualified = h.Schema + "." + h.Name
	}
	return "TableHandle(" + qualified + " [" + strings.Join(h.Columns, ", ") + "])"
}
