// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRegistryInvalidSchema(t *testing.T) {
	tests := []struct {
		name    string
		schemas []Schema
		want    error
	}{
		{"empty type name", []Schema{{}}, ErrInvalidSchema},
		{"empty field name", []Schema{{Name: "a", Fields: []Field{Scalar("", KindInt8)}}}, ErrInvalidSchema},
		{"duplicate field", []Schema{{Name: "a", Fields: []Field{Scalar("x", KindInt8), Scalar("x", KindInt16)}}}, ErrInvalidSchema},
		{"duplicate type", []Schema{{Name: "a"}, {Name: "a"}}, ErrInvalidSchema},
		{"invalid kind", []Schema{{Name: "a", Fields: []Field{{Name: "x"}}}}, ErrInvalidSchema},
		{"message without type", []Schema{{Name: "a", Fields: []Field{{Name: "x", Kind: KindMessage}}}}, ErrInvalidSchema},
		{"primitive with type", []Schema{{Name: "a", Fields: []Field{{Name: "x", Kind: KindInt8, Type: "b"}}}}, ErrInvalidSchema},
		{"rank three", []Schema{{Name: "a", Fields: []Field{
			Scalar("n", KindInt32),
			{Name: "x", Kind: KindInt8, Dims: []string{"n", "n", "n"}},
		}}}, ErrInvalidSchema},
		{"count declared later", []Schema{{Name: "a", Fields: []Field{
			Array("x", KindInt8, "n"),
			Scalar("n", KindInt32),
		}}}, ErrInvalidSchema},
		{"count not integer", []Schema{{Name: "a", Fields: []Field{
			Scalar("n", KindFloat64),
			Array("x", KindInt8, "n"),
		}}}, ErrInvalidSchema},
		{"count is array", []Schema{{Name: "a", Fields: []Field{
			Scalar("m", KindInt32),
			Array("n", KindInt32, "m"),
			Array("x", KindInt8, "n"),
		}}}, ErrInvalidSchema},
		{"unknown nested type", []Schema{{Name: "a", Fields: []Field{Nested("b", "missing")}}}, ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.schemas)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMustRegistryPanics(t *testing.T) {
	require.Panics(t, func() {
		MustRegistry([]Schema{{Name: "a", Fields: []Field{Nested("b", "missing")}}})
	})
}

func TestRegistryLookup(t *testing.T) {
	require := require.New(t)
	reg := testRegistry(t)

	typ, err := reg.Type("command")
	require.NoError(err)
	require.Equal("command", typ.Name())

	_, err = reg.Type("missing")
	require.ErrorIs(err, ErrUnknownType)
	require.Panics(func() { reg.MustType("missing") })

	var names []string
	for _, typ := range reg.Types() {
		names = append(names, typ.Name())
	}
	require.Equal([]string{"command", "finger", "grid", "loop", "node", "status", "tiles", "wrench"}, names)
}

func TestTypeSchemaIsCopy(t *testing.T) {
	typ := testRegistry(t).MustType("command")
	s := typ.Schema()
	s.Fields[2].Dims[0] = "changed"
	s.Fields[0].Name = "changed"

	again := typ.Schema()
	require.Equal(t, "num_joints", again.Fields[2].Dims[0])
	require.Equal(t, "utime", again.Fields[0].Name)
}

func TestMinEncodedSize(t *testing.T) {
	reg := testRegistry(t)
	require.Equal(t, 8+4+4, reg.MustType("command").MinEncodedSize())
	require.Equal(t, 24, reg.MustType("wrench").MinEncodedSize())
	require.Equal(t, 2+24, reg.MustType("finger").MinEncodedSize())
	require.Equal(t, 4, reg.MustType("loop").MinEncodedSize())
}

func TestFieldString(t *testing.T) {
	require.Equal(t, "double q[n]", Array("q", KindFloat64, "n").String())
	require.Equal(t, "int16_t m[rows][cols]", Matrix("m", KindInt16, "rows", "cols").String())
	require.Equal(t, "wrench force", Nested("force", "wrench").String())
	require.Equal(t, "boolean ok", Scalar("ok", KindBoolean).String())
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"int8_t":  KindInt8,
		"int16_t": KindInt16,
		"int32_t": KindInt32,
		"int64_t": KindInt64,
		"float":   KindFloat32,
		"double":  KindFloat64,
		"byte":    KindByte,
		"boolean": KindBoolean,
		"string":  KindString,
		"int64":   KindInt64,
		"float64": KindFloat64,
		"bool":    KindBoolean,
		"wrench":  KindMessage,
	}
	for name, want := range tests {
		require.Equal(t, want, ParseKind(name), name)
	}
}

func TestKindWidth(t *testing.T) {
	require.Equal(t, 1, KindBoolean.Width())
	require.Equal(t, 2, KindInt16.Width())
	require.Equal(t, 4, KindString.Width())
	require.Equal(t, 8, KindFloat64.Width())
	require.Zero(t, KindMessage.Width())
	require.False(t, KindInvalid.Valid())
	require.False(t, KindFloat32.IsInteger())
	require.Equal(t, "kind(200)", Kind(200).String())
}
