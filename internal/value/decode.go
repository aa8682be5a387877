package value

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"
)

// Normalize converts data decoded by encoding/json, yaml.v3 or the CUE
// SDK into template values: every number becomes a float64, null becomes
// Null and nested maps become map[string]any.
func Normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return Null, nil
	case string, bool, float64, NullValue:
		return val, nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case float32:
		return float64(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", val, err)
		}
		return f, nil
	case *big.Int:
		f, _ := new(big.Float).SetInt(val).Float64()
		return f, nil
	case *big.Float:
		f, _ := val.Float64()
		return f, nil
	case time.Time:
		return val.Format(time.RFC3339), nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			n, err := Normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		return NormalizeObject(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			key, ok := k.(string)
			if !ok {
				key = String(k)
			}
			n, err := Normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", key, err)
			}
			out[key] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported data type %T", v)
	}
}

// NormalizeObject normalizes every value of a decoded mapping.
func NormalizeObject(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, elem := range m {
		n, err := Normalize(elem)
		if err != nil {
			return nil, fmt.Errorf("[%q]: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}
