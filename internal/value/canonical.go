package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"unicode/utf16"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON for template data so the same
// data always hashes to the same digest in the render journal.
//
// Differences from json.Marshal:
//   - object keys sorted by UTF-16 code units
//   - strings NFC normalized, no HTML escaping
//   - numbers printed the way interpolation prints them
//   - functions are encoded as the string "function" (they carry no data)
//   - undefined is encoded as null
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil, NullValue:
		buf.WriteString("null")
		return nil
	case string:
		return marshalCanonicalString(buf, val)
	case bool:
		buf.WriteString(String(val))
		return nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("non-finite number %v has no canonical form", val)
		}
		buf.WriteString(formatNumber(val))
		return nil
	case int, int64:
		buf.WriteString(String(val))
		return nil
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]any:
		return marshalCanonicalObject(buf, val)
	case *linkedhashmap.Map:
		keys, vals, _ := Entries(val)
		obj := make(map[string]any, len(keys))
		for i, k := range keys {
			obj[k] = vals[i]
		}
		return marshalCanonicalObject(buf, obj)
	}
	if reflect.TypeOf(v).Kind() == reflect.Func {
		return marshalCanonicalString(buf, "function")
	}
	return fmt.Errorf("unsupported type for canonical JSON: %T", v)
}

func marshalCanonicalObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalCanonicalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := marshalCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func marshalCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	// json.Encoder adds a trailing newline
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
	return nil
}

// compareKeysUTF16 orders keys by UTF-16 code units, which differs from
// Go's byte-wise string ordering for characters outside the BMP.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	for i := 0; i < min(len(a16), len(b16)); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}
