package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// MarshalCanonical encodes v deterministically: the value is canonicalized
// first, mapping keys are sorted lexicographically, separators are compact
// with no insignificant whitespace, and non-ASCII characters are preserved
// literally.
func (e *Encoder) MarshalCanonical(v any) ([]byte, error) {
	c, err := e.Canonicalize(v)
	if err != nil {
		return nil, err
	}
	return appendCanonical(nil, c)
}

// MarshalCanonical encodes v deterministically using the default encoder.
func MarshalCanonical(v any) ([]byte, error) {
	return defaultEncoder.MarshalCanonical(v)
}

// appendCanonical appends the canonical encoding of an already-canonical
// value. It accepts only the canonical primitive shapes.
func appendCanonical(dst []byte, v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return append(dst, "null"...), nil

	case bool:
		if val {
			return append(dst, "true"...), nil
		}
		return append(dst, "false"...), nil

	case int64:
		return strconv.AppendInt(dst, val, 10), nil

	case uint64:
		return strconv.AppendUint(dst, val, 10), nil

	case float64:
		return appendCanonicalFloat(dst, val)

	case string:
		return appendCanonicalString(dst, val)

	case []any:
		dst = append(dst, '[')
		for i, item := range val {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			dst, err = appendCanonical(dst, item)
			if err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		dst = append(dst, '{')
		for i, k := range keys {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			dst, err = appendCanonicalString(dst, k)
			if err != nil {
				return nil, err
			}
			dst = append(dst, ':')
			dst, err = appendCanonical(dst, val[k])
			if err != nil {
				return nil, err
			}
		}
		return append(dst, '}'), nil

	default:
		return nil, fmt.Errorf("canonical: value of type %T is not in canonical form", v)
	}
}

// appendCanonicalFloat renders a float deterministically. Integral floats
// keep a trailing ".0" so they never alias the equal integer.
func appendCanonicalFloat(dst []byte, f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("canonical: cannot encode non-finite float %v", f)
	}
	start := len(dst)
	dst = strconv.AppendFloat(dst, f, 'g', -1, 64)
	if !bytes.ContainsAny(dst[start:], ".eE") {
		dst = append(dst, ".0"...)
	}
	return dst, nil
}

// appendCanonicalString renders a string with JSON escaping but without
// HTML escaping, keeping non-ASCII characters literal.
func appendCanonicalString(dst []byte, s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	// Encode appends a newline; strip it.
	raw := bytes.TrimRight(buf.Bytes(), "\n")
	return append(dst, raw...), nil
}
