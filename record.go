package dtable

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is an ordered mapping from column name to value, representing one row.
// It preserves key insertion order and is used uniformly as write payload and
// read result, regardless of table shape.
type Record struct {
	keys   []string
	values map[string]interface{}
}

// NewRecord creates a new empty Record.
func NewRecord() *Record {
	return &Record{
		keys:   make([]string, 0),
		values: make(map[string]interface{}),
	}
}

// Set sets the value for a column, preserving insertion order. Returns the
// record to allow chaining.
func (r *Record) Set(column string, value interface{}) *Record {
	if _, exists := r.values[column]; !exists {
		r.keys = append(r.keys, column)
	}
	r.values[column] = value
	return r
}

// Get retrieves the value for a column.
func (r *Record) Get(column string) (interface{}, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Has reports whether the column is present.
func (r *Record) Has(column string) bool {
	_, ok := r.values[column]
	return ok
}

// Keys returns the column names in insertion order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Values returns the values in key order.
func (r *Record) Values() []interface{} {
	vals := make([]interface{}, len(r.keys))
	for i, k := range r.keys {
		vals[i] = r.values[k]
	}
	return vals
}

// Len returns the number of columns in the record.
func (r *Record) Len() int {
	return len(r.keys)
}

// Map returns a plain map copy of the record (order is lost).
func (r *Record) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.keys))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// MarshalJSON implements json.Marshaler, outputting keys in insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range r.keys {
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key: %w", err)
		}
		valBytes, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf = append(buf, keyBytes...)
		buf = append(buf, ':')
		buf = append(buf, valBytes...)
		if i < len(r.keys)-1 {
			buf = append(buf, ',')
		}
	}
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving the key order of the
// JSON document.
func (r *Record) UnmarshalJSON(data []byte) error {
	r.keys = r.keys[:0]
	if r.values == nil {
		r.values = make(map[string]interface{})
	} else {
		for k := range r.values {
			delete(r.values, k)
		}
	}

	// Key order from a plain map unmarshal is lost, so walk the token stream.
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("dtable: record must unmarshal from a JSON object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("dtable: unexpected token %v in record object", keyTok)
		}
		var val interface{}
		if err := dec.Decode(&val); err != nil {
			return err
		}
		r.Set(key, val)
	}
	return nil
}
