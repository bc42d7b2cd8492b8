// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

var testSchemas = []Schema{
	{Name: "command", Fields: []Field{
		Scalar("utime", KindInt64),
		Scalar("num_joints", KindInt32),
		Array("joint_position", KindFloat64, "num_joints"),
		Scalar("num_torques", KindInt32),
		Array("joint_torque", KindFloat64, "num_torques"),
	}},
	{Name: "wrench", Fields: []Field{
		Scalar("fx", KindFloat64),
		Scalar("fy", KindFloat64),
		Scalar("fz", KindFloat64),
	}},
	{Name: "finger", Fields: []Field{
		Scalar("num_joints", KindInt16),
		Array("position", KindFloat32, "num_joints"),
		Array("velocity", KindFloat32, "num_joints"),
		Nested("force", "wrench"),
	}},
	{Name: "status", Fields: []Field{
		Scalar("utime", KindInt64),
		Scalar("num_fingers", KindInt8),
		NestedArray("fingers", "finger", "num_fingers"),
		Scalar("label", KindString),
		Scalar("ok", KindBoolean),
	}},
	{Name: "grid", Fields: []Field{
		Scalar("rows", KindInt32),
		Scalar("cols", KindInt32),
		Matrix("cells", KindInt16, "rows", "cols"),
		Scalar("n", KindInt8),
		Array("names", KindString, "n"),
		Array("raw", KindByte, "n"),
		Array("flags", KindBoolean, "n"),
	}},
	{Name: "tiles", Fields: []Field{
		Scalar("rows", KindInt8),
		Scalar("cols", KindInt8),
		NestedArray("tiles", "wrench", "rows", "cols"),
	}},
	{Name: "node", Fields: []Field{
		Scalar("value", KindInt32),
		Scalar("n", KindInt32),
		NestedArray("children", "node", "n"),
	}},
	{Name: "loop", Fields: []Field{
		Scalar("value", KindInt32),
		Nested("next", "loop"),
	}},
}

func testRegistry(t *testing.T, opts ...RegistryOption) *Registry {
	t.Helper()
	reg, err := NewRegistry(testSchemas, opts...)
	require.NoError(t, err)
	return reg
}

func TestEncodeCommandLayout(t *testing.T) {
	require := require.New(t)

	typ := testRegistry(t).MustType("command")
	v := Value{
		"utime":          int64(42),
		"joint_position": []float64{1.0, 2.0},
		"joint_torque":   []float64{},
	}

	size, err := typ.EncodedSize(v)
	require.NoError(err)
	require.Equal(40, size)

	data, err := typ.Encode(v)
	require.NoError(err)
	require.Len(data, 40)
	require.Equal(typ.Fingerprint(), binary.BigEndian.Uint64(data[:8]))
	require.Equal(int64(42), int64(binary.BigEndian.Uint64(data[8:16])))
	require.Equal(int32(2), int32(binary.BigEndian.Uint32(data[16:20])))
	require.Equal(2.0, math.Float64frombits(binary.BigEndian.Uint64(data[28:36])))
	require.Equal(int32(0), int32(binary.BigEndian.Uint32(data[36:40])))

	got, err := typ.Decode(data)
	require.NoError(err)
	require.Equal(Value{
		"utime":          int64(42),
		"num_joints":     int32(2),
		"joint_position": []float64{1.0, 2.0},
		"num_torques":    int32(0),
		"joint_torque":   []float64{},
	}, got)
}

func TestRoundTrip(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		typ string
		in  Value
	}{
		{"wrench", Value{"fx": 1.5, "fy": -2.0, "fz": math.MaxFloat64}},
		{"finger", Value{
			"num_joints": int16(2),
			"position":   []float32{0.5, 1},
			"velocity":   []float32{-3, 3},
			"force":      Value{"fx": 1.0, "fy": 2.0, "fz": 3.0},
		}},
		{"status", Value{
			"utime":       int64(-7),
			"num_fingers": int8(2),
			"fingers": []Value{
				{"num_joints": int16(1), "position": []float32{1}, "velocity": []float32{2}, "force": Value{"fx": 0.0, "fy": 0.0, "fz": 0.0}},
				{"num_joints": int16(0), "position": []float32{}, "velocity": []float32{}, "force": Value{"fx": 4.0, "fy": 5.0, "fz": 6.0}},
			},
			"label": "gripper ü",
			"ok":    true,
		}},
		{"grid", Value{
			"rows":  int32(2),
			"cols":  int32(3),
			"cells": [][]int16{{1, 2, 3}, {-4, -5, -6}},
			"n":     int8(2),
			"names": []string{"", "b"},
			"raw":   []byte{0xde, 0xad},
			"flags": []bool{true, false},
		}},
		{"tiles", Value{
			"rows": int8(1),
			"cols": int8(2),
			"tiles": [][]Value{{
				{"fx": 1.0, "fy": 2.0, "fz": 3.0},
				{"fx": 4.0, "fy": 5.0, "fz": 6.0},
			}},
		}},
		{"node", Value{
			"value": int32(1),
			"n":     int32(2),
			"children": []Value{
				{"value": int32(2), "n": int32(0), "children": []Value{}},
				{"value": int32(3), "n": int32(1), "children": []Value{
					{"value": int32(4), "n": int32(0), "children": []Value{}},
				}},
			},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			require := require.New(t)
			typ := reg.MustType(tt.typ)

			data, err := typ.Encode(tt.in)
			require.NoError(err)
			size, err := typ.EncodedSize(tt.in)
			require.NoError(err)
			require.Len(data, size)

			got, err := typ.Decode(data)
			require.NoError(err)
			require.Equal(tt.in, got)
		})
	}
}

func TestEncodeDefaults(t *testing.T) {
	require := require.New(t)
	reg := testRegistry(t)

	typ := reg.MustType("status")
	data, err := typ.Encode(Value{})
	require.NoError(err)
	// fingerprint, utime, num_fingers, label length, ok
	require.Len(data, 8+8+1+4+1)
	require.Equal(typ.MinEncodedSize()+FingerprintSize, len(data))

	got, err := typ.Decode(data)
	require.NoError(err)
	require.Equal(Value{
		"utime":       int64(0),
		"num_fingers": int8(0),
		"fingers":     []Value{},
		"label":       "",
		"ok":          false,
	}, got)

	// a missing nested message is encoded as zero values
	data, err = reg.MustType("finger").Encode(Value{})
	require.NoError(err)
	got, err = reg.MustType("finger").Decode(data)
	require.NoError(err)
	require.Equal(Value{"fx": 0.0, "fy": 0.0, "fz": 0.0}, got["force"])
}

func TestEncodeEmptyMatrix(t *testing.T) {
	require := require.New(t)

	typ := testRegistry(t).MustType("grid")
	data, err := typ.Encode(Value{"cells": [][]int16{}, "cols": int32(5)})
	require.NoError(err)

	got, err := typ.Decode(data)
	require.NoError(err)
	require.Equal(int32(0), got["rows"])
	require.Equal(int32(5), got["cols"])
	require.Equal([][]int16{}, got["cells"])
}

func TestEncodeCountMismatch(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name string
		typ  string
		in   Value
	}{
		{"explicit count", "command", Value{"num_joints": int32(3), "joint_position": []float64{1}}},
		{"shared count", "finger", Value{"position": []float32{1, 2}, "velocity": []float32{1}}},
		{"jagged matrix", "grid", Value{"cells": [][]int16{{1, 2}, {3}}}},
		{"negative count", "command", Value{"num_joints": -1}},
		{"count overflows kind", "status", Value{"fingers": make([]Value, 200)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.MustType(tt.typ).Encode(tt.in)
			require.ErrorIs(t, err, ErrInvalidLength)
			_, err = reg.MustType(tt.typ).EncodedSize(tt.in)
			require.ErrorIs(t, err, ErrInvalidLength)
		})
	}
}

func TestEncodeInvalidValue(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name string
		typ  string
		in   Value
	}{
		{"scalar type", "command", Value{"utime": 42}},
		{"array type", "command", Value{"joint_position": []float32{1}}},
		{"nested type", "finger", Value{"force": map[string]any{"fx": 1.0}}},
		{"nested array type", "status", Value{"fingers": []map[string]any{}}},
		{"count type", "command", Value{"num_joints": "two"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.MustType(tt.typ).Encode(tt.in)
			require.ErrorIs(t, err, ErrInvalidValue)
		})
	}
}

func TestEncodeCountAnyInteger(t *testing.T) {
	typ := testRegistry(t).MustType("command")
	data, err := typ.Encode(Value{"num_joints": 2, "joint_position": []float64{1, 2}})
	require.NoError(t, err)
	require.Len(t, data, 8+8+4+16+4)
}

func TestEncodeDoesNotMutateInput(t *testing.T) {
	typ := testRegistry(t).MustType("command")
	in := Value{"joint_position": []float64{1, 2}}
	_, err := typ.Encode(in)
	require.NoError(t, err)
	require.Equal(t, Value{"joint_position": []float64{1, 2}}, in)
}

func TestEncodeToBufferTooSmall(t *testing.T) {
	require := require.New(t)

	typ := testRegistry(t).MustType("command")
	v := Value{"joint_position": []float64{1, 2}}
	size, err := typ.EncodedSize(v)
	require.NoError(err)

	for maxlen := 0; maxlen < size; maxlen++ {
		buf := make([]byte, size)
		_, err := typ.EncodeTo(buf, 0, maxlen, v)
		require.ErrorIs(err, ErrBufferTooSmall, "maxlen %d", maxlen)
	}

	buf := make([]byte, size+3)
	n, err := typ.EncodeTo(buf, 3, size, v)
	require.NoError(err)
	require.Equal(size, n)

	got, read, err := typ.DecodeFrom(buf, 3, size)
	require.NoError(err)
	require.Equal(size, read)
	require.Equal([]float64{1, 2}, got["joint_position"])
}

func TestDecodeTruncated(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		typ string
		in  Value
	}{
		{"command", Value{"utime": int64(1), "joint_position": []float64{1, 2}, "joint_torque": []float64{3}}},
		{"tiles", Value{"tiles": [][]Value{{{"fx": 1.0}, {"fy": 2.0}}}}},
		{"node", Value{"children": []Value{{"children": []Value{{}}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			typ := reg.MustType(tt.typ)
			data, err := typ.Encode(tt.in)
			require.NoError(t, err)
			for n := 0; n < len(data); n++ {
				_, err := typ.Decode(data[:n])
				require.ErrorIs(t, err, ErrBufferTooSmall, "prefix of %d bytes", n)
			}
		})
	}
}

func TestDecodeSchemaMismatch(t *testing.T) {
	require := require.New(t)
	reg := testRegistry(t)

	data, err := reg.MustType("wrench").Encode(Value{"fx": 1.0})
	require.NoError(err)

	_, err = reg.MustType("command").Decode(data)
	require.ErrorIs(err, ErrSchemaMismatch)

	// only the fingerprint is read, so a short body still reports the mismatch
	junk := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	_, err = reg.MustType("status").Decode(junk)
	require.ErrorIs(err, ErrSchemaMismatch)
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	typ := testRegistry(t).MustType("wrench")
	data, err := typ.Encode(Value{"fx": 1.0})
	require.NoError(t, err)

	v, n, err := typ.DecodeFrom(append(data, 0xff, 0xff), 0, len(data)+2)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, 1.0, v["fx"])
}

func TestDecodeNegativeCount(t *testing.T) {
	typ := testRegistry(t).MustType("command")
	data, err := typ.Encode(Value{})
	require.NoError(t, err)
	binary.BigEndian.PutUint32(data[16:20], 0xffffffff)

	_, err = typ.Decode(data)
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestDecodeHugeCount(t *testing.T) {
	require := require.New(t)

	typ := testRegistry(t).MustType("command")
	data, err := typ.Encode(Value{})
	require.NoError(err)
	binary.BigEndian.PutUint32(data[16:20], math.MaxInt32)

	_, err = typ.Decode(data)
	require.ErrorIs(err, ErrInvalidLength)

	unlimited := testRegistry(t, WithMaxArrayLen(math.MaxInt)).MustType("command")
	_, err = unlimited.Decode(data)
	require.ErrorIs(err, ErrBufferTooSmall)
}

func TestMaxArrayLen(t *testing.T) {
	typ := testRegistry(t, WithMaxArrayLen(2)).MustType("command")
	data, err := typ.Encode(Value{"joint_position": []float64{1, 2, 3}})
	require.NoError(t, err)

	_, err = typ.Decode(data)
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestNestingDepth(t *testing.T) {
	require := require.New(t)

	typ := testRegistry(t, WithMaxDepth(3)).MustType("node")
	deep := Value{"children": []Value{{"children": []Value{{"children": []Value{{}}}}}}}
	_, err := typ.Encode(deep)
	require.ErrorIs(err, ErrNestingDepth)

	shallow := Value{"children": []Value{{"children": []Value{{}}}}}
	_, err = typ.Encode(shallow)
	require.NoError(err)

	// a scalar self-reference can never terminate
	_, err = testRegistry(t).MustType("loop").Encode(Value{})
	require.ErrorIs(err, ErrNestingDepth)
}

func TestDecodeDepthLimit(t *testing.T) {
	deep := Value{"children": []Value{{"children": []Value{{"children": []Value{{}}}}}}}
	data, err := testRegistry(t).MustType("node").Encode(deep)
	require.NoError(t, err)

	_, err = testRegistry(t, WithMaxDepth(3)).MustType("node").Decode(data)
	require.ErrorIs(t, err, ErrNestingDepth)
}

func TestDecodeMatrixRowsBounded(t *testing.T) {
	reg, err := NewRegistry([]Schema{
		{Name: "wide", Fields: []Field{
			Scalar("rows", KindInt64),
			Scalar("cols", KindInt32),
			Matrix("cells", KindInt16, "rows", "cols"),
		}},
		{Name: "narrow", Fields: []Field{
			Scalar("rows", KindInt32),
			Scalar("cols", KindInt32),
			Matrix("cells", KindInt16, "rows", "cols"),
		}},
	}, WithMaxArrayLen(1000))
	require.NoError(t, err)

	// zero columns consume no input, so the row count alone must be capped
	wide := reg.MustType("wide")
	data := binary.BigEndian.AppendUint64(nil, wide.Fingerprint())
	data = binary.BigEndian.AppendUint64(data, 1<<60)
	data = binary.BigEndian.AppendUint32(data, 0)
	require.Len(t, data, 20)
	_, err = wide.Decode(data)
	require.ErrorIs(t, err, ErrInvalidLength)

	narrow := reg.MustType("narrow")
	data = binary.BigEndian.AppendUint64(nil, narrow.Fingerprint())
	data = binary.BigEndian.AppendUint32(data, 5_000_000)
	data = binary.BigEndian.AppendUint32(data, 0)
	_, err = narrow.Decode(data)
	require.ErrorIs(t, err, ErrInvalidLength)

	data = binary.BigEndian.AppendUint64(nil, narrow.Fingerprint())
	data = binary.BigEndian.AppendUint32(data, 3)
	data = binary.BigEndian.AppendUint32(data, 0)
	v, err := narrow.Decode(data)
	require.NoError(t, err)
	require.Equal(t, [][]int16{{}, {}, {}}, v["cells"])
}

func TestDecodeEmptyElementsBounded(t *testing.T) {
	require := require.New(t)

	reg, err := NewRegistry([]Schema{
		{Name: "empty"},
		{Name: "holder", Fields: []Field{
			Scalar("n", KindInt32),
			NestedArray("items", "empty", "n"),
		}},
	})
	require.NoError(err)
	typ := reg.MustType("holder")

	data := binary.BigEndian.AppendUint64(nil, typ.Fingerprint())
	data = binary.BigEndian.AppendUint32(data, 1<<24)
	_, err = typ.Decode(data)
	require.ErrorIs(err, ErrBufferTooSmall)

	data = binary.BigEndian.AppendUint64(nil, typ.Fingerprint())
	data = binary.BigEndian.AppendUint32(data, 0)
	v, err := typ.Decode(data)
	require.NoError(err)
	require.Empty(v["items"])
}
