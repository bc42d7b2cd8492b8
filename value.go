// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"math"

	"github.com/pkg/errors"
)

// Value holds the fields of one message keyed by field name.
//
// Each field holds the Go type matching its kind: int8, int16, int32, int64,
// float32, float64, byte, bool, string, or a nested Value. Rank-1 fields hold
// a slice of that type and rank-2 fields a slice of slices. A missing
// primitive field encodes as its zero value, a missing array as empty, and a
// missing nested message as a message of zero values.
//
// Count fields may be left out; encoding derives them from the arrays they
// govern. When present they may hold any Go integer type and must agree with
// every array they govern.
type Value map[string]any

// primCodec is the per-kind bridge between untyped field values and the
// generic primitive codec.
type primCodec interface {
	encode(buf []byte, offset, maxlen int, vals any) (int, error)
	decode(buf []byte, offset, maxlen, count int) (any, int, error)
	size(vals any) (int, error)

	// one wraps a scalar (or nil, for the zero value) into a 1-element slice.
	one(x any) (any, bool)
	first(vals any) any
	slice(x any) (vals any, n int, ok bool)
	rows(x any) ([]any, bool)
	matrix(rows []any) any
	collect(elems []any) any
}

type prim[T Primitive] struct{}

var prims = [...]primCodec{
	KindInt8:    prim[int8]{},
	KindInt16:   prim[int16]{},
	KindInt32:   prim[int32]{},
	KindInt64:   prim[int64]{},
	KindFloat32: prim[float32]{},
	KindFloat64: prim[float64]{},
	KindByte:    prim[byte]{},
	KindBoolean: prim[bool]{},
	KindString:  prim[string]{},
	KindMessage: nil,
}

func (prim[T]) encode(buf []byte, offset, maxlen int, vals any) (int, error) {
	return EncodeArray(buf, offset, maxlen, vals.([]T))
}

func (prim[T]) decode(buf []byte, offset, maxlen, count int) (any, int, error) {
	vs, n, err := DecodeArray[T](buf, offset, maxlen, count)
	if err != nil {
		return nil, n, err
	}
	return vs, n, nil
}

func (prim[T]) size(vals any) (int, error) {
	return encodedArraySize(vals.([]T))
}

func (prim[T]) one(x any) (any, bool) {
	if x == nil {
		return make([]T, 1), true
	}
	v, ok := x.(T)
	return []T{v}, ok
}

func (prim[T]) first(vals any) any {
	return vals.([]T)[0]
}

func (prim[T]) slice(x any) (any, int, bool) {
	if x == nil {
		return []T(nil), 0, true
	}
	vs, ok := x.([]T)
	return vs, len(vs), ok
}

func (prim[T]) rows(x any) ([]any, bool) {
	if x == nil {
		return nil, true
	}
	m, ok := x.([][]T)
	if !ok {
		return nil, false
	}
	out := make([]any, len(m))
	for i, r := range m {
		out[i] = r
	}
	return out, true
}

func (prim[T]) matrix(rows []any) any {
	out := make([][]T, len(rows))
	for i, r := range rows {
		out[i] = r.([]T)
	}
	return out
}

func (prim[T]) collect(elems []any) any {
	out := make([]T, len(elems))
	for i, e := range elems {
		out[i] = e.(T)
	}
	return out
}

// intValue reads a count held in any Go integer type.
func intValue(x any) (int, error) {
	switch v := x.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		if v > math.MaxInt || v < math.MinInt {
			return 0, errors.WithMessagef(ErrInvalidLength, "count %d overflows int", v)
		}
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		if v > math.MaxInt {
			return 0, errors.WithMessagef(ErrInvalidLength, "count %d overflows int", v)
		}
		return int(v), nil
	case uint:
		if v > math.MaxInt {
			return 0, errors.WithMessagef(ErrInvalidLength, "count %d overflows int", v)
		}
		return int(v), nil
	}
	return 0, errors.WithMessagef(ErrInvalidValue, "count holds %T", x)
}

// intSlice boxes n as a 1-element slice of the count field's kind.
func intSlice(k Kind, n int) any {
	switch k {
	case KindInt8:
		return []int8{int8(n)}
	case KindInt16:
		return []int16{int16(n)}
	case KindInt32:
		return []int32{int32(n)}
	}
	return []int64{int64(n)}
}

// fitsKind reports whether a non-negative count is representable in k.
func fitsKind(k Kind, n int) bool {
	switch k {
	case KindInt8:
		return n <= math.MaxInt8
	case KindInt16:
		return n <= math.MaxInt16
	case KindInt32:
		return n <= math.MaxInt32
	}
	return true
}
