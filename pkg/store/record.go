package store

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Normalize converts loosely-typed decoded values into the canonical record
// value kinds. json.Number becomes int64 when integral and float64
// otherwise; nested maps and slices are normalized recursively.
func Normalize(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case float64:
		// Plain json.Unmarshal without UseNumber produces float64 for every
		// number; keep whole values as int64 so ids survive round-trips.
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	default:
		return v
	}
}

// NormalizeRecord normalizes every field of a record in place semantics
// (a new map is returned; the input is not modified).
func NormalizeRecord(rec Record) Record {
	if rec == nil {
		return nil
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = Normalize(v)
	}
	return out
}

// Stringify renders a field value the way filters and id comparisons see
// it. Nil renders as the empty string.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// cloneRecord returns a copy of rec with nested maps and slices copied as
// well, so callers cannot mutate stored state through returned records.
func cloneRecord(rec Record) Record {
	if rec == nil {
		return nil
	}
	return cloneValue(rec).(Record)
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
