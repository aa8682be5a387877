package value

import (
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// NullValue is the explicit null of template data.
// A Go nil stands for "undefined" (a missing parameter, an absent key).
type NullValue struct{}

// Null is the single null value.
var Null = NullValue{}

// String converts v to the text that interpolation and attribute
// bindings write into the tree.
//
// Integral numbers print without a decimal point, nil prints as
// "undefined" and arrays join their elements with commas.
func String(v any) string {
	switch val := v.(type) {
	case nil:
		return "undefined"
	case NullValue:
		return "null"
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return formatNumber(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			if elem == nil || elem == Null {
				continue
			}
			parts[i] = String(elem)
		}
		return strings.Join(parts, ",")
	case map[string]any, *linkedhashmap.Map:
		return "[object Object]"
	}
	if reflect.TypeOf(v).Kind() == reflect.Func {
		return "function"
	}
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return "[object Object]"
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Truthy reports whether v counts as true in a condition.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil, NullValue:
		return false
	case bool:
		return val
	case float64:
		return val != 0 && !math.IsNaN(val)
	case int:
		return val != 0
	case int64:
		return val != 0
	case string:
		return val != ""
	}
	return true
}

// ToNumber converts v to a number using the loose numeric rules of
// template expressions. Non-numeric input yields NaN.
func ToNumber(v any) float64 {
	switch val := v.(type) {
	case nil:
		return math.NaN()
	case NullValue:
		return 0
	case bool:
		if val {
			return 1
		}
		return 0
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case []any:
		switch len(val) {
		case 0:
			return 0
		case 1:
			return ToNumber(val[0])
		}
	}
	return math.NaN()
}

// TypeOf returns the typeof name of v.
func TypeOf(v any) string {
	switch v.(type) {
	case nil:
		return "undefined"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case string:
		return "string"
	case NullValue:
		return "object"
	}
	if reflect.TypeOf(v).Kind() == reflect.Func {
		return "function"
	}
	return "object"
}

// StrictEqual implements ===.
func StrictEqual(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		return ToNumber(a) == ToNumber(b)
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case NullValue:
		_, ok := b.(NullValue)
		return ok
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return sameReference(a, b)
}

// LooseEqual implements ==: null and undefined are equal to each other,
// and mixed number/string/bool operands compare numerically.
func LooseEqual(a, b any) bool {
	if isNullish(a) || isNullish(b) {
		return isNullish(a) && isNullish(b)
	}
	if TypeOf(a) == TypeOf(b) {
		return StrictEqual(a, b)
	}
	if isPrimitive(a) && isPrimitive(b) {
		return ToNumber(a) == ToNumber(b)
	}
	return false
}

// Compare orders two operands for <, <=, > and >=.
// ok is false when the comparison is undefined (NaN involved).
func Compare(a, b any) (cmp int, ok bool) {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	x, y := ToNumber(a), ToNumber(b)
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

// Keys returns the enumerable keys of v in iteration order: insertion
// order for ordered objects, sorted order for plain maps and indexes for
// arrays and strings.
func Keys(v any) ([]string, bool) {
	switch val := v.(type) {
	case *linkedhashmap.Map:
		keys := make([]string, 0, val.Size())
		for _, k := range val.Keys() {
			keys = append(keys, String(k))
		}
		return keys, true
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys, true
	case []any:
		keys := make([]string, len(val))
		for i := range val {
			keys[i] = strconv.Itoa(i)
		}
		return keys, true
	case string:
		keys := make([]string, len([]rune(val)))
		for i := range keys {
			keys[i] = strconv.Itoa(i)
		}
		return keys, true
	case nil, NullValue:
		return nil, true
	}
	return nil, false
}

// Elements returns the values iterated by `of`: array elements, string
// characters, or the values of an object in key order.
func Elements(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case string:
		out := make([]any, 0, len(val))
		for _, r := range val {
			out = append(out, string(r))
		}
		return out, true
	case *linkedhashmap.Map:
		return val.Values(), true
	case map[string]any:
		keys, _ := Keys(val)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = val[k]
		}
		return out, true
	}
	return nil, false
}

// Entries flattens a mapping into key/value pairs in iteration order.
func Entries(v any) ([]string, []any, bool) {
	switch val := v.(type) {
	case map[string]any:
		keys, _ := Keys(val)
		vals := make([]any, len(keys))
		for i, k := range keys {
			vals[i] = val[k]
		}
		return keys, vals, true
	case *linkedhashmap.Map:
		keys := make([]string, 0, val.Size())
		vals := make([]any, 0, val.Size())
		it := val.Iterator()
		for it.Next() {
			keys = append(keys, String(it.Key()))
			vals = append(vals, it.Value())
		}
		return keys, vals, true
	}
	return nil, nil, false
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, int, int64:
		return true
	}
	return false
}

func isNullish(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(NullValue)
	return ok
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case float64, int, int64, string, bool:
		return true
	}
	return false
}

func sameReference(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() != rb.Kind() {
		return false
	}
	switch ra.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Func, reflect.Slice:
		return ra.Pointer() == rb.Pointer()
	}
	return false
}
