package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a Value
type ValueKind int

const (
	KindNone ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
)

// String returns the JSON-ish name of the kind, used in error messages
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindList:
		return "array"
	default:
		return "none"
	}
}

// Value is the filter operand: a string, a number, a boolean or an array of
// strings and numbers. The zero Value means "absent" (omitted or JSON null).
type Value struct {
	kind  ValueKind
	str   string
	num   float64
	isInt bool
	i     int64
	b     bool
	list  []Value
}

// String builds a string value
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int builds an integral number value
func Int(i int64) Value { return Value{kind: KindNumber, num: float64(i), isInt: true, i: i} }

// Float builds a number value, kept integral when it has no fractional part
func Float(f float64) Value {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return Int(int64(f))
	}

	return Value{kind: KindNumber, num: f}
}

// Bool builds a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List builds an array value
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}

	return Value{kind: KindList, list: items}
}

// Kind reports the variant held
func (v Value) Kind() ValueKind { return v.kind }

// IsZero reports whether no value was given
func (v Value) IsZero() bool { return v.kind == KindNone }

// IsScalar reports whether the value is a string, number or boolean
func (v Value) IsScalar() bool {
	return v.kind == KindString || v.kind == KindNumber || v.kind == KindBool
}

// Str returns the string payload and whether the value is a string
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Items returns the elements of an array value
func (v Value) Items() ([]Value, bool) { return v.list, v.kind == KindList }

// Bind returns the driver argument for the value. Integral numbers bind as
// int64 so integer columns compare exactly.
func (v Value) Bind() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if v.isInt {
			return v.i
		}

		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Bind()
		}

		return out
	default:
		return nil
	}
}

// UnmarshalJSON decodes the accepted operand shapes and rejects objects and
// nested arrays.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("invalid filter value: %w", err)
	}

	parsed, err := fromRaw(raw, true)
	if err != nil {
		return err
	}

	*v = parsed

	return nil
}

// MarshalJSON encodes the value back to its JSON form
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindNumber && v.isInt {
		return []byte(strconv.FormatInt(v.i, 10)), nil
	}

	return json.Marshal(v.Bind())
}

// FromAny converts a decoded JSON or YAML scalar/array into a Value
func FromAny(raw any) (Value, error) {
	return fromRaw(raw, true)
}

func fromRaw(raw any, allowList bool) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case json.Number:
		return parseNumber(x.String())
	case float64:
		return Float(x), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case []any:
		if !allowList {
			return Value{}, fmt.Errorf("invalid filter value: nested arrays are not supported")
		}

		items := make([]Value, 0, len(x))

		for _, elem := range x {
			item, err := fromRaw(elem, false)
			if err != nil {
				return Value{}, err
			}

			if item.kind != KindString && item.kind != KindNumber {
				return Value{}, fmt.Errorf("invalid filter value: array elements must be strings or numbers, got %s", item.kind)
			}

			items = append(items, item)
		}

		return List(items...), nil
	default:
		return Value{}, fmt.Errorf("invalid filter value: unsupported type %T", raw)
	}
}

func parseNumber(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("invalid filter value: %q is not a number", s)
	}

	return Value{kind: KindNumber, num: f}, nil
}
