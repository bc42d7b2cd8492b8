// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Primitive is the set of Go types that carry a primitive field kind.
type Primitive interface {
	int8 | int16 | int32 | int64 | float32 | float64 | byte | bool | string
}

// maxStringLen is the largest string the 4-byte signed length prefix can carry.
const maxStringLen = math.MaxInt32

// EncodeArray writes values big-endian into buf starting at offset, using at
// most maxlen bytes. Nothing is written unless every element fits. It returns
// the number of bytes written.
func EncodeArray[T Primitive](buf []byte, offset, maxlen int, values []T) (int, error) {
	size, err := encodedArraySize(values)
	if err != nil {
		return 0, err
	}
	if avail := available(buf, offset, maxlen); avail < size {
		return 0, errors.WithMessagef(ErrBufferTooSmall, "encode %d bytes at offset %d, %d available", size, offset, avail)
	}
	if size == 0 {
		return 0, nil
	}
	b := buf[offset : offset+size]

	switch vs := any(values).(type) {
	case []int8:
		for i, v := range vs {
			b[i] = byte(v)
		}
	case []byte:
		copy(b, vs)
	case []bool:
		for i, v := range vs {
			b[i] = 0
			if v {
				b[i] = 1
			}
		}
	case []int16:
		for i, v := range vs {
			binary.BigEndian.PutUint16(b[2*i:], uint16(v))
		}
	case []int32:
		for i, v := range vs {
			binary.BigEndian.PutUint32(b[4*i:], uint32(v))
		}
	case []int64:
		for i, v := range vs {
			binary.BigEndian.PutUint64(b[8*i:], uint64(v))
		}
	case []float32:
		for i, v := range vs {
			binary.BigEndian.PutUint32(b[4*i:], math.Float32bits(v))
		}
	case []float64:
		for i, v := range vs {
			binary.BigEndian.PutUint64(b[8*i:], math.Float64bits(v))
		}
	case []string:
		pos := 0
		for _, s := range vs {
			binary.BigEndian.PutUint32(b[pos:], uint32(len(s)))
			pos += 4
			pos += copy(b[pos:], s)
		}
	}
	return size, nil
}

// DecodeArray reads count elements from buf starting at offset, reading at
// most maxlen bytes. The returned slice has exactly count elements; it is
// allocated only after the fixed-width part of the read is known to fit.
func DecodeArray[T Primitive](buf []byte, offset, maxlen, count int) ([]T, int, error) {
	if count < 0 {
		return nil, 0, errors.WithMessagef(ErrInvalidLength, "negative count %d", count)
	}
	w := width[T]()
	avail := available(buf, offset, maxlen)
	if count > avail/w {
		return nil, 0, errors.WithMessagef(ErrBufferTooSmall, "decode %d x %d bytes at offset %d, %d available", count, w, offset, avail)
	}

	out := make([]T, count)
	if count == 0 {
		return out, 0, nil
	}
	b := buf[offset : offset+avail]
	n := count * w

	switch vs := any(out).(type) {
	case []int8:
		for i := range vs {
			vs[i] = int8(b[i])
		}
	case []byte:
		copy(vs, b[:n])
	case []bool:
		for i := range vs {
			vs[i] = b[i] != 0
		}
	case []int16:
		for i := range vs {
			vs[i] = int16(binary.BigEndian.Uint16(b[2*i:]))
		}
	case []int32:
		for i := range vs {
			vs[i] = int32(binary.BigEndian.Uint32(b[4*i:]))
		}
	case []int64:
		for i := range vs {
			vs[i] = int64(binary.BigEndian.Uint64(b[8*i:]))
		}
	case []float32:
		for i := range vs {
			vs[i] = math.Float32frombits(binary.BigEndian.Uint32(b[4*i:]))
		}
	case []float64:
		for i := range vs {
			vs[i] = math.Float64frombits(binary.BigEndian.Uint64(b[8*i:]))
		}
	case []string:
		pos := 0
		for i := range vs {
			if len(b)-pos < 4 {
				return nil, pos, errors.WithMessagef(ErrBufferTooSmall, "string %d length prefix at offset %d", i, offset+pos)
			}
			l := int32(binary.BigEndian.Uint32(b[pos:]))
			pos += 4
			if l < 0 || int(l) > len(b)-pos {
				return nil, pos, errors.WithMessagef(ErrMalformedString, "string %d declares %d bytes, %d remain", i, l, len(b)-pos)
			}
			vs[i] = string(b[pos : pos+int(l)])
			pos += int(l)
		}
		n = pos
	}
	return out, n, nil
}

// EncodedArraySize returns the number of bytes EncodeArray writes for values.
func EncodedArraySize[T Primitive](values []T) int {
	size, _ := encodedArraySize(values)
	return size
}

func encodedArraySize[T Primitive](values []T) (int, error) {
	ss, ok := any(values).([]string)
	if !ok {
		return len(values) * width[T](), nil
	}
	size := 0
	for i, s := range ss {
		if len(s) > maxStringLen {
			return 0, errors.WithMessagef(ErrMalformedString, "string %d is %d bytes", i, len(s))
		}
		size += 4 + len(s)
	}
	return size, nil
}

// width is the fixed element size of T; for strings, the length prefix.
func width[T Primitive]() int {
	var zero T
	switch any(zero).(type) {
	case int8, byte, bool:
		return 1
	case int16:
		return 2
	case int32, float32, string:
		return 4
	}
	return 8
}

// available clamps maxlen to what buf actually holds past offset.
func available(buf []byte, offset, maxlen int) int {
	if offset < 0 || offset > len(buf) || maxlen <= 0 {
		return 0
	}
	return min(maxlen, len(buf)-offset)
}
