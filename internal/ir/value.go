package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the canonical value types.
// Only Null, String, Int, Float, Bool, Array, and Object implement it.
//
// Floats are permitted but must be finite; NaN and ±Inf have no canonical
// form and are rejected at marshal time.
type Value interface {
	value() // sealed
}

// Null represents an explicit JSON null.
//
// Null is a real value, distinct from an absent field: a payload carrying
// {"target_category": null} canonicalizes differently from one without the
// key at all, and both forms survive round trips unchanged.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// String represents a string value.
type String string

func (String) value() {}

// Int represents an integer value. Always int64 on the wire.
type Int int64

func (Int) value() {}

// Float represents a floating-point value. Must be finite.
type Float float64

func (Float) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// Array represents an ordered sequence of Values.
type Array []Value

func (Array) value() {}

// Object represents a string-keyed mapping of Values.
// Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// SortedKeys returns keys ordered by UTF-16 code units.
// This matches RFC 8785 canonical ordering; Go's default string
// comparison is UTF-8 byte order, which differs for supplementary-plane
// characters versus the private use area.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 compares strings by UTF-16 code units, surrogates included.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// FromGo converts a plain Go value (as produced by encoding/json or
// yaml decoding) into a Value. Supported inputs: nil, bool, string,
// int, int64, float32, float64, json.Number, []any, map[string]any,
// and Values themselves. Non-finite floats fail with SerializationError.
func FromGo(v any) (Value, error) {
	return fromGo(v, "")
}

func fromGo(v any, path string) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float32:
		return floatValue(float64(val), path)
	case float64:
		return floatValue(val, path)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, serErr(path, "number out of range: %s", val)
		}
		return floatValue(f, path)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			iv, err := fromGo(elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			arr[i] = iv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			iv, err := fromGo(elem, joinPath(path, k))
			if err != nil {
				return nil, err
			}
			obj[k] = iv
		}
		return obj, nil
	default:
		return nil, serErr(path, "unsupported type %T", v)
	}
}

// floatValue validates finiteness before admitting a float into the model.
func floatValue(f float64, path string) (Value, error) {
	if err := checkFinite(f, path); err != nil {
		return nil, err
	}
	return Float(f), nil
}

// Interface converts a Value back to a plain Go value (nil, bool, string,
// int64, float64, []any, map[string]any). Inverse of FromGo up to
// int/int64 widening.
func Interface(v Value) any {
	switch val := v.(type) {
	case Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Interface(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Interface(elem)
		}
		return out
	default:
		return nil
	}
}

// UnmarshalValue decodes JSON bytes into a Value. Numbers without a
// fraction or exponent become Int; others become Float. Uses UseNumber
// so integer precision is not lost through float64.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromGo(raw)
}

// MarshalJSON implements json.Marshaler for Object with UTF-16 sorted keys.
// This is display serialization, not canonical form: strings go through
// the standard encoder. Use MarshalCanonical for hashing.
func (obj Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := MarshalValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	v, err := FromGo(raw)
	if err != nil {
		return err
	}
	o, ok := v.(Object)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*obj = o
	return nil
}

// MarshalValue marshals any Value to display JSON (non-canonical).
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	case Float:
		if err := checkFinite(float64(val), ""); err != nil {
			return nil, err
		}
		return json.Marshal(float64(val))
	case Bool:
		return json.Marshal(bool(val))
	case Array:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := MarshalValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case Object:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}
