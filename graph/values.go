package graph

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// NormalizeValue converts a driver-native result value into plain Go data.
// Nodes and relationships become maps carrying elementId, labels/type and
// properties; temporal values become ISO-8601 strings; lists and maps are
// normalized recursively. Scalar values pass through unchanged — the driver
// returns all integers as int64 and all floats as float64 already.
func NormalizeValue(value any) any {
	switch v := value.(type) {
	case dbtype.Node:
		return map[string]any{
			"elementId":  v.ElementId,
			"labels":     append([]string(nil), v.Labels...),
			"properties": NormalizeProperties(v.Props),
		}
	case dbtype.Relationship:
		return map[string]any{
			"elementId":          v.ElementId,
			"startNodeElementId": v.StartElementId,
			"endNodeElementId":   v.EndElementId,
			"type":               v.Type,
			"properties":         NormalizeProperties(v.Props),
		}
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case dbtype.Date:
		return v.String()
	case dbtype.LocalDateTime:
		return v.String()
	case dbtype.LocalTime:
		return v.String()
	case dbtype.Time:
		return v.String()
	case dbtype.Duration:
		return v.String()
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = NormalizeValue(elem)
		}
		return out
	case map[string]any:
		return NormalizeProperties(v)
	default:
		return value
	}
}

// NormalizeProperties normalizes every value of a property map.
func NormalizeProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = NormalizeValue(v)
	}
	return out
}

// AsString converts a normalized result value to a string.
func AsString(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", value)
	}
	return s, nil
}

// AsInt64 converts a normalized result value to an int64. The driver
// returns every integer as int64, but plain ints from test fakes are
// accepted too.
func AsInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", value)
	}
}

// AsStringSlice converts a normalized result value to a []string.
// Nil input yields an empty slice.
func AsStringSlice(value any) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("expected string list element, got %T", elem)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to []string", value)
	}
}

// AsTime parses a normalized result value into a time.Time. Temporal
// properties are stored as RFC 3339 strings; values that are still
// time.Time (from test fakes) pass through.
func AsTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("cannot parse %q as RFC 3339 time: %w", v, err)
		}
		return ts, nil
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to time", value)
	}
}
