package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind identifies which variant a Value holds.
type ValueKind int

// Value kinds.
const (
	KindNull ValueKind = iota
	KindString
	KindBool
	KindList
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return "null"
	}
}

// Value is a displayable field value: a string, a boolean, a list of
// strings, or null. The zero Value is null.
type Value struct {
	kind ValueKind
	str  string
	b    bool
	list []string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Text returns a string value.
func Text(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List returns a string-list value. A nil list is stored as an empty list.
func List(items ...string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// ValueOf converts a Go value into a Value. Numbers and byte slices become
// strings; unsupported types are formatted with %v.
func ValueOf(x any) Value {
	switch v := x.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case string:
		return Text(v)
	case []byte:
		return Text(string(v))
	case bool:
		return Bool(v)
	case []string:
		return List(v...)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, ValueOf(item).String())
		}
		return List(items...)
	case int:
		return Text(strconv.Itoa(v))
	case int64:
		return Text(strconv.FormatInt(v, 10))
	case float64:
		return Text(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return Text(fmt.Sprintf("%v", v))
	}
}

// Kind returns the variant held by v.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string payload, or "" when v is not a string.
func (v Value) AsString() string {
	if v.kind != KindString {
		return ""
	}
	return v.str
}

// AsBool returns the boolean payload, or false when v is not a boolean.
func (v Value) AsBool() bool {
	return v.kind == KindBool && v.b
}

// AsList returns a copy of the list payload, or nil when v is not a list.
func (v Value) AsList() []string {
	if v.kind != KindList {
		return nil
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp
}

// String returns the display form used for searching and editing.
// Lists are joined with ", ".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		return strings.Join(v.list, ", ")
	default:
		return ""
	}
}

// Truthy reports whether the value takes part in search matching.
// Null, the empty string and false are falsy; every list is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindString:
		return v.str != ""
	case KindBool:
		return v.b
	case KindList:
		return true
	default:
		return false
	}
}

// Equal reports whether two values hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Native returns the value as a plain Go value (nil, string, bool or []string).
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindList:
		return v.AsList()
	default:
		return nil
	}
}

// MarshalJSON encodes the value as a JSON null, string, boolean or array.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindList && v.list == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.Native())
}

// UnmarshalJSON decodes a JSON null, string, boolean, number or array.
// Numbers are kept as their literal text.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Null()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '[':
		var items []any
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*v = ValueOf(items)
	case '{':
		return fmt.Errorf("cannot decode object into value")
	default:
		*v = Text(string(data))
	}
	return nil
}
