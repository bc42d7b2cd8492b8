// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"encoding/base64"
	"encoding/json"
	"math"

	"github.com/pkg/errors"
)

// Coerce converts loosely typed field data, such as the output of
// encoding/json or yaml.v3, into a Value holding the exact Go types the type
// declares. Numbers must be representable in their field's kind; byte arrays
// also accept base64 strings. Unknown field names are rejected.
func (t *Type) Coerce(in map[string]any) (Value, error) {
	return t.coerce(in, 0)
}

func (t *Type) coerce(in map[string]any, depth int) (Value, error) {
	if depth >= t.reg.maxDepth {
		return nil, errors.WithMessagef(ErrNestingDepth, "%s at depth %d", t.name, depth)
	}
	out := make(Value, len(in))
	for name, x := range in {
		f, ok := t.byName[name]
		if !ok {
			return nil, errors.WithMessagef(ErrInvalidValue, "%s has no field %q", t.name, name)
		}
		if x == nil {
			continue
		}
		v, err := f.coerce(x, depth)
		if err != nil {
			return nil, t.fieldError(f, err)
		}
		out[name] = v
	}
	return out, nil
}

func (f *field) coerce(x any, depth int) (any, error) {
	switch f.Rank() {
	case 0:
		return f.coerceElem(x, depth)
	case 1:
		return f.coerceList(x, depth)
	}
	if f.msg == nil {
		if _, ok := f.prim.rows(x); ok {
			return x, nil
		}
	} else if m, ok := x.([][]Value); ok {
		return m, nil
	}
	outer, ok := x.([]any)
	if !ok {
		return nil, errors.WithMessagef(ErrInvalidValue, "holds %T, want a list of lists", x)
	}
	if f.msg != nil {
		m := make([][]Value, len(outer))
		for i, r := range outer {
			row, err := f.coerceList(r, depth)
			if err != nil {
				return nil, errors.WithMessagef(err, "row %d", i)
			}
			m[i] = row.([]Value)
		}
		return m, nil
	}
	rows := make([]any, len(outer))
	for i, r := range outer {
		row, err := f.coerceList(r, depth)
		if err != nil {
			return nil, errors.WithMessagef(err, "row %d", i)
		}
		rows[i] = row
	}
	return f.prim.matrix(rows), nil
}

func (f *field) coerceList(x any, depth int) (any, error) {
	if f.msg == nil {
		if vals, _, ok := f.prim.slice(x); ok {
			return vals, nil
		}
		if s, ok := x.(string); ok && f.Kind == KindByte {
			b, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, errors.WithMessagef(ErrInvalidValue, "byte array: %v", err)
			}
			return b, nil
		}
	} else if vs, ok := x.([]Value); ok {
		return vs, nil
	}

	list, ok := x.([]any)
	if !ok {
		return nil, errors.WithMessagef(ErrInvalidValue, "holds %T, want a list", x)
	}
	elems := make([]any, len(list))
	for i, e := range list {
		v, err := f.coerceElem(e, depth)
		if err != nil {
			return nil, errors.WithMessagef(err, "element %d", i)
		}
		elems[i] = v
	}
	if f.msg != nil {
		vs := make([]Value, len(elems))
		for i, e := range elems {
			vs[i] = e.(Value)
		}
		return vs, nil
	}
	return f.prim.collect(elems), nil
}

func (f *field) coerceElem(x any, depth int) (any, error) {
	if f.msg == nil {
		return coerceScalar(f.Kind, x)
	}
	switch m := x.(type) {
	case Value:
		return f.msg.coerce(m, depth+1)
	case map[string]any:
		return f.msg.coerce(m, depth+1)
	case nil:
		return Value{}, nil
	}
	return nil, errors.WithMessagef(ErrInvalidValue, "holds %T, want an object", x)
}

// coerceScalar converts x to the Go type of kind k.
func coerceScalar(k Kind, x any) (any, error) {
	switch k {
	case KindBoolean:
		if b, ok := x.(bool); ok {
			return b, nil
		}
		return nil, errors.WithMessagef(ErrInvalidValue, "holds %T, want bool", x)
	case KindString:
		if s, ok := x.(string); ok {
			return s, nil
		}
		return nil, errors.WithMessagef(ErrInvalidValue, "holds %T, want string", x)
	}

	i, fl, isInt, ok := number(x)
	if !ok {
		return nil, errors.WithMessagef(ErrInvalidValue, "holds %T, want %s", x, k)
	}
	switch k {
	case KindFloat32:
		if isInt {
			return float32(i), nil
		}
		return float32(fl), nil
	case KindFloat64:
		if isInt {
			return float64(i), nil
		}
		return fl, nil
	}

	if !isInt {
		if fl != math.Trunc(fl) || fl < math.MinInt64 || fl >= math.MaxInt64 {
			return nil, errors.WithMessagef(ErrInvalidValue, "%v is not a %s", fl, k)
		}
		i = int64(fl)
	}
	lo, hi := intRange(k)
	if i < lo || i > hi {
		return nil, errors.WithMessagef(ErrInvalidValue, "%d out of range for %s", i, k)
	}
	switch k {
	case KindInt8:
		return int8(i), nil
	case KindInt16:
		return int16(i), nil
	case KindInt32:
		return int32(i), nil
	case KindByte:
		return byte(i), nil
	}
	return i, nil
}

func intRange(k Kind) (int64, int64) {
	switch k {
	case KindInt8:
		return math.MinInt8, math.MaxInt8
	case KindInt16:
		return math.MinInt16, math.MaxInt16
	case KindInt32:
		return math.MinInt32, math.MaxInt32
	case KindByte:
		return 0, math.MaxUint8
	}
	return math.MinInt64, math.MaxInt64
}

// number splits a numeric value into its integer or floating form.
func number(x any) (i int64, f float64, isInt, ok bool) {
	switch v := x.(type) {
	case int:
		return int64(v), 0, true, true
	case int8:
		return int64(v), 0, true, true
	case int16:
		return int64(v), 0, true, true
	case int32:
		return int64(v), 0, true, true
	case int64:
		return v, 0, true, true
	case uint8:
		return int64(v), 0, true, true
	case uint16:
		return int64(v), 0, true, true
	case uint32:
		return int64(v), 0, true, true
	case uint64:
		if v > math.MaxInt64 {
			return 0, float64(v), false, true
		}
		return int64(v), 0, true, true
	case float32:
		return 0, float64(v), false, true
	case float64:
		return 0, v, false, true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, 0, true, true
		}
		if fl, err := v.Float64(); err == nil {
			return 0, fl, false, true
		}
	}
	return 0, 0, false, false
}
