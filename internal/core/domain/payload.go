package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseIndices decodes an index payload into a list of indices.
//
// Accepted forms: a number, a numeric string, a list of either, or a JSON
// string holding any of those (older clients stringified the payload).
// A scalar index is coerced to a one-element list.
func ParseIndices(raw json.RawMessage) ([]int, error) {
	v, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok {
		out := make([]int, 0, len(list))
		for _, elem := range list {
			idx, err := toIndex(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, idx)
		}
		return out, nil
	}
	idx, err := toIndex(v)
	if err != nil {
		return nil, err
	}
	return []int{idx}, nil
}

// ParseIndexValues decodes the values of a set-index payload and aligns
// them with indices.
//
// For a single index the payload is the value itself. For several
// indices it is either a list (positional) or an object keyed by index.
func ParseIndexValues(indices []int, raw json.RawMessage) ([]any, error) {
	v, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}
	if len(indices) == 1 {
		if obj, ok := v.(map[string]any); ok {
			if elem, ok := obj[strconv.Itoa(indices[0])]; ok {
				return []any{elem}, nil
			}
		}
		return []any{v}, nil
	}
	switch vals := v.(type) {
	case []any:
		if len(vals) != len(indices) {
			return nil, ErrMalformedRequest.WithDetails("index and value counts differ")
		}
		return vals, nil
	case map[string]any:
		out := make([]any, len(indices))
		for i, idx := range indices {
			elem, ok := vals[strconv.Itoa(idx)]
			if !ok {
				return nil, ErrMalformedRequest.WithDetails("no value for index " + strconv.Itoa(idx))
			}
			out[i] = elem
		}
		return out, nil
	default:
		return nil, ErrMalformedRequest.WithDetails("values must be a list or an object keyed by index")
	}
}

// ParseAppendValues decodes an append payload. A scalar is coerced to a
// one-element list; a list appends each element.
func ParseAppendValues(raw json.RawMessage) ([]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrMalformedRequest.WithDetails("empty value")
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, ErrMalformedRequest.WithCause(err)
	}
	if list, ok := v.([]any); ok {
		return list, nil
	}
	return []any{v}, nil
}

// decodePayload unmarshals raw JSON and, when the result is a string that
// itself parses as JSON, unwraps it once.
func decodePayload(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrMalformedRequest.WithDetails("empty payload")
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, ErrMalformedRequest.WithCause(err)
	}
	if s, ok := v.(string); ok {
		var inner any
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			return inner, nil
		}
	}
	return v, nil
}

func toIndex(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, ErrMalformedRequest.WithDetails("index must be an integer")
		}
		return int(n), nil
	case string:
		idx, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, ErrMalformedRequest.WithCause(err)
		}
		return idx, nil
	default:
		return 0, ErrMalformedRequest.WithDetails("index must be a number")
	}
}
