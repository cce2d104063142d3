package ir

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical byte form used for all
// content-addressed identity in the system. This is the ONLY serialization
// that may feed a hash: two payloads with the same logical content always
// produce identical bytes here, regardless of key insertion order, host,
// or process.
//
// Canonical form rules:
//  1. Object keys sorted by UTF-16 code units
//  2. Strings NFC normalized, minimal escaping, no HTML escaping
//  3. No insignificant whitespace
//  4. Integers printed in base 10; floats in shortest round-trip form
//  5. NaN and ±Inf rejected with SerializationError
//
// Accepts Values and plain Go values (via FromGo).
func MarshalCanonical(v any) ([]byte, error) {
	val, err := FromGo(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, val, ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v Value, path string) error {
	switch val := v.(type) {
	case Null:
		buf.WriteString("null")
		return nil
	case String:
		writeCanonicalString(buf, string(val))
		return nil
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		return nil
	case Float:
		return writeCanonicalFloat(buf, float64(val), path)
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case Object:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k], joinPath(path, k)); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return serErr(path, "unsupported Value type %T", v)
	}
}

// writeCanonicalString writes a JSON string with minimal escaping.
// Strings are NFC normalized first so that composed and decomposed
// Unicode spellings of the same text hash identically.
//
// Escaping: only the quote, backslash, and control characters U+0000–U+001F
// are escaped. U+2028/U+2029 and the HTML-sensitive <, >, & are written
// literally — Go's standard encoder escapes those for JavaScript/HTML
// embedding, which would make the canonical form depend on encoder policy.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)

	buf.WriteByte('"')
	for _, b := range []byte(s) {
		switch b {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if b < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, b)
			} else {
				buf.WriteByte(b)
			}
		}
	}
	buf.WriteByte('"')
}

// writeCanonicalFloat writes a float in its canonical form.
// Integral values in the exact-integer range print without a decimal
// point or exponent, so 12.0 and the integer 12 canonicalize identically.
// Everything else uses the shortest representation that round-trips.
func writeCanonicalFloat(buf *bytes.Buffer, f float64, path string) error {
	if err := checkFinite(f, path); err != nil {
		return err
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		buf.WriteString(strconv.FormatInt(int64(f), 10))
		return nil
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

// checkFinite rejects the float values that have no canonical form.
func checkFinite(f float64, path string) error {
	if math.IsNaN(f) {
		return serErr(path, "NaN has no canonical form")
	}
	if math.IsInf(f, 0) {
		return serErr(path, "infinity has no canonical form")
	}
	return nil
}
