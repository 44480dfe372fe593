package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// IDColumn is the name of the mandatory record identifier column.
const IDColumn = "id"

// Field is one named value of a record.
type Field struct {
	Name  string
	Value Value
}

// Record is one row of an entity collection. Fields keep the column order
// reported by the store.
type Record struct {
	ID     string
	Fields []Field
}

// NewRecord creates a record with the given fields.
func NewRecord(id string, fields ...Field) Record {
	r := Record{ID: id}
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Get returns the named value. The id column is reported as a string.
func (r Record) Get(name string) (Value, bool) {
	if name == IDColumn {
		if r.ID == "" {
			return Null(), false
		}
		return Text(r.ID), true
	}
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Null(), false
}

// Value returns the named value, or null when it is absent.
func (r Record) Value(name string) Value {
	v, _ := r.Get(name)
	return v
}

// Set replaces the named value, appending the field if it is new.
// Setting the id column updates ID.
func (r *Record) Set(name string, v Value) {
	if name == IDColumn {
		r.ID = v.String()
		return
	}
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = v
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: v})
}

// Delete removes the named field if present.
func (r *Record) Delete(name string) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields = append(r.Fields[:i], r.Fields[i+1:]...)
			return
		}
	}
}

// Has reports whether the record carries the named field.
func (r Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Keys returns the column names in order, with id first when set.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r.Fields)+1)
	if r.ID != "" {
		keys = append(keys, IDColumn)
	}
	for _, f := range r.Fields {
		keys = append(keys, f.Name)
	}
	return keys
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := Record{ID: r.ID, Fields: make([]Field, len(r.Fields))}
	for i, f := range r.Fields {
		out.Fields[i] = Field{Name: f.Name, Value: f.Value}
		if f.Value.kind == KindList {
			out.Fields[i].Value = List(f.Value.list...)
		}
	}
	return out
}

// MarshalJSON encodes the record as an object with keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(name string, v any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}
	if r.ID != "" {
		if err := write(IDColumn, r.ID); err != nil {
			return nil, err
		}
	}
	for _, f := range r.Fields {
		if err := write(f.Name, f.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record must be a JSON object")
	}
	out := Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected record key %v", tok)
		}
		var v Value
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		out.Set(name, v)
	}
	*r = out
	return nil
}

// Filter selects rows whose column equals a value.
type Filter struct {
	Column string
	Value  Value
}

// Eq builds an equality filter.
func Eq(column string, v Value) Filter {
	return Filter{Column: column, Value: v}
}

// ByID builds the filter matching a single record.
func ByID(id string) Filter {
	return Filter{Column: IDColumn, Value: Text(id)}
}

// UpdateDirective describes one field change applied to the records
// matching the condition.
type UpdateDirective struct {
	Column          string `json:"column"`
	Value           Value  `json:"value"`
	ConditionColumn string `json:"conditionColumn"`
	ConditionValue  Value  `json:"conditionValue"`
}
