package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_SetGet(t *testing.T) {
	r := NewRecord("1",
		Field{Name: "name", Value: Text("Ada")},
		Field{Name: "is_ours", Value: Bool(true)},
	)

	v, ok := r.Get("name")
	require.True(t, ok)
	assert.Equal(t, "Ada", v.String())

	id, ok := r.Get(IDColumn)
	require.True(t, ok)
	assert.Equal(t, "1", id.String())

	r.Set("name", Text("Grace"))
	assert.Equal(t, "Grace", r.Value("name").String())
	assert.Len(t, r.Fields, 2, "Set on an existing field must not append")

	_, ok = r.Get("missing")
	assert.False(t, ok)
	assert.True(t, r.Value("missing").IsNull())
}

func TestRecord_KeysKeepOrder(t *testing.T) {
	r := NewRecord("7",
		Field{Name: "title", Value: Text("t")},
		Field{Name: "venue", Value: Text("v")},
		Field{Name: "authors", Value: List("a")},
	)
	assert.Equal(t, []string{"id", "title", "venue", "authors"}, r.Keys())

	r.Delete("venue")
	assert.Equal(t, []string{"id", "title", "authors"}, r.Keys())
}

func TestRecord_JSONRoundTripKeepsOrder(t *testing.T) {
	input := `{"id":"3","name":"x","tags":["a","b"],"is_featured":false,"link":null}`

	var r Record
	require.NoError(t, json.Unmarshal([]byte(input), &r))
	assert.Equal(t, "3", r.ID)
	assert.Equal(t, []string{"id", "name", "tags", "is_featured", "link"}, r.Keys())

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
	assert.Equal(t, input, string(out))
}

func TestRecord_CloneIsDeep(t *testing.T) {
	r := NewRecord("1", Field{Name: "tags", Value: List("a")})
	c := r.Clone()
	c.Set("tags", List("b"))
	assert.Equal(t, "a", r.Value("tags").String())
}
