package dtable

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSetGet(t *testing.T) {
	r := NewRecord().Set("id", 1).Set("name", "alice")

	v, ok := r.Get("id")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = r.Get("name")
	require.True(t, ok)
	assert.Equal(t, "alice", v)

	_, ok = r.Get("missing")
	assert.False(t, ok)
	assert.True(t, r.Has("id"))
	assert.False(t, r.Has("missing"))
	assert.Equal(t, 2, r.Len())
}

func TestRecordPreservesInsertionOrder(t *testing.T) {
	r := NewRecord().Set("z", 1).Set("a", 2).Set("m", 3)
	assert.Equal(t, []string{"z", "a", "m"}, r.Keys())
	assert.Equal(t, []interface{}{1, 2, 3}, r.Values())

	// Overwriting a key must not move it.
	r.Set("a", 99)
	assert.Equal(t, []string{"z", "a", "m"}, r.Keys())
	v, _ := r.Get("a")
	assert.Equal(t, 99, v)
}

func TestRecordMap(t *testing.T) {
	r := NewRecord().Set("id", 1).Set("name", "bob")
	m := r.Map()
	assert.Equal(t, map[string]interface{}{"id": 1, "name": "bob"}, m)

	// The copy is detached from the record.
	m["id"] = 42
	v, _ := r.Get("id")
	assert.Equal(t, 1, v)
}

func TestRecordMarshalJSONOrder(t *testing.T) {
	r := NewRecord().Set("z", 1).Set("a", "two").Set("nil", nil)
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":"two","nil":null}`, string(data))
}

func TestRecordUnmarshalJSONOrder(t *testing.T) {
	var r Record
	err := json.Unmarshal([]byte(`{"z": 1, "a": "two", "m": [1, 2]}`), &r)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, r.Keys())

	v, _ := r.Get("z")
	assert.Equal(t, float64(1), v)
	v, _ = r.Get("m")
	assert.Equal(t, []interface{}{float64(1), float64(2)}, v)
}

func TestRecordUnmarshalJSONRejectsNonObject(t *testing.T) {
	var r Record
	err := json.Unmarshal([]byte(`[1,2,3]`), &r)
	assert.Error(t, err)
}

func TestRecordJSONRoundTrip(t *testing.T) {
	r := NewRecord().Set("b", "x").Set("a", float64(7))
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r.Keys(), back.Keys())
	assert.Equal(t, r.Values(), back.Values())
}
