package qdata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMapping(t *testing.T) {
	m, err := DecodeMapping([]byte(`{"id": 12345678901234567890, "points_possible": 1.50, "text": "x", "ok": true, "none": null, "answers": [{"id": 1}]}`))
	require.NoError(t, err)

	assert.Equal(t, Number("12345678901234567890"), m["id"])
	assert.Equal(t, Number("1.50"), m["points_possible"])
	assert.Equal(t, String("x"), m["text"])
	assert.Equal(t, Bool(true), m["ok"])
	assert.Equal(t, Null{}, m["none"])
	assert.Equal(t, Sequence{Mapping{"id": Number("1")}}, m["answers"])
}

func TestDecodeMapping_errors(t *testing.T) {
	_, err := DecodeMapping([]byte(`[1, 2]`))
	assert.Error(t, err)

	_, err = DecodeMapping([]byte(`{"a":`))
	assert.Error(t, err)

	m, err := DecodeMapping([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestMapping_jsonKeepsNumberText(t *testing.T) {
	src := `{"a":[1.10,"b",null,false],"c":{"d":12345678901234567890}}`

	var m Mapping
	require.NoError(t, json.Unmarshal([]byte(src), &m))

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, src, string(out))
	assert.Contains(t, string(out), "1.10")
	assert.Contains(t, string(out), "12345678901234567890")
}

func TestMapping_sql(t *testing.T) {
	m := Mapping{"question_name": String("Q1")}

	v, err := m.Value()
	require.NoError(t, err)

	var scanned Mapping
	require.NoError(t, scanned.Scan(v))
	assert.True(t, Equal(m, scanned))

	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)

	assert.Error(t, scanned.Scan(42))
}

func TestFromInterface(t *testing.T) {
	v, err := FromInterface(map[string]interface{}{
		"n": 3,
		"f": 2.5,
		"s": []interface{}{"x", nil},
	})
	require.NoError(t, err)
	assert.Equal(t, Mapping{
		"n": Number("3"),
		"f": Number("2.5"),
		"s": Sequence{String("x"), Null{}},
	}, v)

	_, err = FromInterface(struct{}{})
	assert.Error(t, err)
}
