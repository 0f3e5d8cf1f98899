package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		kind    ValueKind
		bound   any
		wantErr bool
	}{
		{name: "string", input: `"Bio"`, kind: KindString, bound: "Bio"},
		{name: "integer", input: `42`, kind: KindNumber, bound: int64(42)},
		{name: "negative integer", input: `-3`, kind: KindNumber, bound: int64(-3)},
		{name: "decimal", input: `2.5`, kind: KindNumber, bound: 2.5},
		{name: "exponent", input: `1e2`, kind: KindNumber, bound: 100.0},
		{name: "boolean", input: `true`, kind: KindBool, bound: true},
		{name: "null", input: `null`, kind: KindNone, bound: nil},
		{name: "mixed array", input: `["wheat", 3, 4.5]`, kind: KindList, bound: []any{"wheat", int64(3), 4.5}},
		{name: "empty array", input: `[]`, kind: KindList, bound: []any{}},
		{name: "object", input: `{"a":1}`, wantErr: true},
		{name: "nested array", input: `[[1]]`, wantErr: true},
		{name: "array of booleans", input: `[true]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			err := json.Unmarshal([]byte(tt.input), &v)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.bound, v.Bind())
		})
	}
}

func TestFilterConditionWithoutValue(t *testing.T) {
	var cond FilterCondition
	require.NoError(t, json.Unmarshal([]byte(`{"field":"drained","operator":"isNull"}`), &cond))

	assert.Equal(t, "drained", cond.Field)
	assert.Equal(t, OpIsNull, cond.Operator)
	assert.True(t, cond.Value.IsZero())
}

func TestValueMarshalRoundTrip(t *testing.T) {
	data, err := json.Marshal(List(String("Bio"), Int(7), Float(0.25)))
	require.NoError(t, err)
	assert.JSONEq(t, `["Bio", 7, 0.25]`, string(data))

	data, err = json.Marshal(Int(9007199254740993))
	require.NoError(t, err)
	assert.Equal(t, "9007199254740993", string(data))
}

func TestFloatKeepsIntegralNumbersExact(t *testing.T) {
	assert.Equal(t, int64(3), Float(3.0).Bind())
	assert.Equal(t, 3.5, Float(3.5).Bind())
}

func TestFromAny(t *testing.T) {
	v, err := FromAny([]any{"a", 1})
	require.NoError(t, err)
	items, ok := v.Items()
	require.True(t, ok)
	assert.Len(t, items, 2)

	_, err = FromAny(map[string]any{})
	assert.Error(t, err)
}

func TestOperatorNames(t *testing.T) {
	assert.Equal(t,
		[]string{"eq", "neq", "gt", "gte", "lt", "lte", "like", "in", "isNull", "isNotNull"},
		OperatorNames())
}
