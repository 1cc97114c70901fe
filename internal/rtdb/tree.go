package rtdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
)

// Decode parses exactly one JSON value from data, keeping numbers as
// json.Number so they survive a round trip unchanged.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

// Normalize returns v as the database would store and return it:
// null children and empty containers are dropped, arrays and objects with
// array-like integer keys become arrays, and numbers are canonicalised.
// The input is not modified.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			if nc := Normalize(child); nc != nil {
				out[k] = nc
			}
		}
		return collapse(out)
	case []any:
		out := make(map[string]any, len(t))
		for i, child := range t {
			if nc := Normalize(child); nc != nil {
				out[strconv.Itoa(i)] = nc
			}
		}
		return collapse(out)
	case json.Number:
		return canonicalNumber(t)
	case float64:
		return canonicalNumber(json.Number(strconv.FormatFloat(t, 'g', -1, 64)))
	default:
		return v
	}
}

// Equal reports whether a and b hold the same data once normalised.
func Equal(a, b any) bool {
	return reflect.DeepEqual(Normalize(a), Normalize(b))
}

// collapse turns an empty map into nil and an array-like map into a slice.
// A map is array-like when every key is a non-negative integer and more
// than half of the indexes up to the largest key are present.
func collapse(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}

	maxIdx := -1
	for k := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || strconv.Itoa(i) != k {
			return m
		}
		if i > maxIdx {
			maxIdx = i
		}
	}
	if len(m)*2 <= maxIdx+1 {
		return m
	}

	arr := make([]any, maxIdx+1)
	for k, child := range m {
		i, _ := strconv.Atoi(k)
		arr[i] = child
	}
	return arr
}

// maxExactInt is the largest magnitude a float64 holds without rounding.
const maxExactInt = 1 << 53

// canonicalNumber maps numbers to the value the database keeps, which is a
// float64. Integral values within maxExactInt come back as int64; larger
// integers are rounded to the nearest float64 first.
func canonicalNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil && i >= -maxExactInt && i <= maxExactInt {
		return i
	}
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	if f == math.Trunc(f) && math.Abs(f) <= maxExactInt {
		return int64(f)
	}
	return f
}
