package pgrecord

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON_DateRange(t *testing.T) {
	spec, err := Declare("date_range", Timestamp("start"), Timestamp("end"))
	require.NoError(t, err)

	v, err := spec.DecodeJSON([]byte(`{"start": "2020-01-01T00:00:00", "end": "2020-01-02T00:00:00"}`))
	require.NoError(t, err)

	want, err := spec.New(
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	assert.True(t, v.Equal(want))
}

func TestDecodeJSON_BadJSON(t *testing.T) {
	spec, err := Declare("date_range2", Timestamp("start"), Timestamp("end"))
	require.NoError(t, err)

	for _, input := range []string{`"not json"`, `not json at all`, `[1, 2]`} {
		_, err := spec.DecodeJSON([]byte(input))
		require.Error(t, err, "input %q", input)
		assert.True(t, IsValidationError(err))
		assert.Equal(t, "bad_json", ValidationCode(err))
	}
}

func TestDecodeJSON_AbsentKeyIsNull(t *testing.T) {
	spec, err := Declare("opt_range",
		Timestamp("start"),
		Timestamp("end").AsNullable(),
	)
	require.NoError(t, err)

	v, err := spec.DecodeJSON([]byte(`{"start": "2020-01-01T00:00:00"}`))
	require.NoError(t, err)
	assert.Nil(t, v.MustGet("end"))

	// Nullability still applies to absent keys.
	_, err = spec.DecodeJSON([]byte(`{"end": "2020-01-01T00:00:00"}`))
	require.Error(t, err)
	assert.Equal(t, "required", ValidationCode(err))
	assert.Contains(t, err.Error(), "start: ")
}

func TestDecodeJSON_FieldErrorsArePrefixed(t *testing.T) {
	spec := mustSimpleType(t)

	_, err := spec.DecodeJSON([]byte(`{"a": "NaN", "b": "ok", "c": "2020-01-01T00:00:00"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: ")

	_, box := mustPointAndBox(t)
	_, err = box.DecodeJSON([]byte(`{"top_left": {"x": 1, "y": true}, "bottom_right": {"x": 0, "y": 0}}`))
	require.Error(t, err)
	// Nested errors carry the full field path.
	assert.Contains(t, err.Error(), "top_left: y: ")
}

func TestMarshalJSON_RoundTrip(t *testing.T) {
	spec := mustSimpleType(t)
	v, err := spec.New(1, "b", time.Date(1985, 10, 26, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1, "b": "b", "c": "1985-10-26T09:00:00"}`, string(data))

	back, err := spec.DecodeJSON(data)
	require.NoError(t, err)
	assert.True(t, v.Equal(back))
}

func TestMarshalJSON_NestedAndNull(t *testing.T) {
	point, err := Declare("jpoint", Int("x"), Int("y"))
	require.NoError(t, err)
	box, err := Declare("jbox",
		Composite("top_left", point),
		Composite("bottom_right", point).AsNullable(),
	)
	require.NoError(t, err)

	p, err := point.New(1, 2)
	require.NoError(t, err)
	b, err := box.New(p, nil)
	require.NoError(t, err)

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"top_left": {"x": 1, "y": 2}, "bottom_right": null}`, string(data))

	back, err := box.DecodeJSON(data)
	require.NoError(t, err)
	assert.True(t, b.Equal(back))
}
