package params

import (
	"reflect"
	"strings"
)

// Payload is one request body for the ad platform.
type Payload map[string]any

// Strip removes every value the platform would reject or misread: nil,
// blank strings, numeric zero, and slices or maps that end up empty after
// their own contents were stripped. Booleans are kept as they are.
func Strip(payload Payload) Payload {
	out := Payload{}
	for key, value := range payload {
		if cleaned, keep := stripValue(value); keep {
			out[key] = cleaned
		}
	}
	return out
}

func stripValue(value any) (any, bool) {
	switch typed := value.(type) {
	case nil:
		return nil, false
	case string:
		if strings.TrimSpace(typed) == "" {
			return nil, false
		}
		return typed, true
	case bool:
		return typed, true
	case Payload:
		cleaned := Strip(typed)
		return cleaned, len(cleaned) > 0
	case map[string]any:
		cleaned := Strip(Payload(typed))
		return map[string]any(cleaned), len(cleaned) > 0
	case []any:
		items := make([]any, 0, len(typed))
		for _, item := range typed {
			if cleaned, keep := stripValue(item); keep {
				items = append(items, cleaned)
			}
		}
		return items, len(items) > 0
	case []string:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			if strings.TrimSpace(item) != "" {
				items = append(items, item)
			}
		}
		return items, len(items) > 0
	case []Payload:
		items := make([]Payload, 0, len(typed))
		for _, item := range typed {
			if cleaned := Strip(item); len(cleaned) > 0 {
				items = append(items, cleaned)
			}
		}
		return items, len(items) > 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value, rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value, rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return value, rv.Float() != 0
	case reflect.Slice, reflect.Array:
		return value, rv.Len() > 0
	case reflect.Map:
		return value, rv.Len() > 0
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, false
		}
		return stripValue(rv.Elem().Interface())
	}
	return value, true
}

// Clone deep-copies nested payloads and slices so variant deltas never leak
// into the base payload.
func Clone(payload Payload) Payload {
	if payload == nil {
		return nil
	}
	out := make(Payload, len(payload))
	for key, value := range payload {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case Payload:
		return Clone(typed)
	case map[string]any:
		return map[string]any(Clone(Payload(typed)))
	case []any:
		items := make([]any, len(typed))
		for i, item := range typed {
			items[i] = cloneValue(item)
		}
		return items
	case []string:
		return append([]string(nil), typed...)
	case []int:
		return append([]int(nil), typed...)
	case []Payload:
		items := make([]Payload, len(typed))
		for i, item := range typed {
			items[i] = Clone(item)
		}
		return items
	default:
		return value
	}
}
