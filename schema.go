// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"strings"

	"github.com/pkg/errors"
)

// MaxRank is the highest array rank a field may declare.
const MaxRank = 2

// Schema declares the ordered field layout of one message type.
//
// Seed, when non-zero, is used as the type's base hash instead of the value
// derived from its field kinds. It lets hand-declared tables match peers built
// by a generator that baked its own constants into each type.
type Schema struct {
	Name   string
	Seed   uint64
	Fields []Field
}

// Field describes one field of a message. Dims names, per array dimension,
// the earlier integer field holding that dimension's length; a scalar field
// has no Dims.
type Field struct {
	Name string
	Kind Kind
	Type string // message type name, KindMessage only
	Dims []string
}

// Scalar declares a single primitive field.
func Scalar(name string, kind Kind) Field {
	return Field{Name: name, Kind: kind}
}

// Array declares a variable-length primitive array whose length is held by count.
func Array(name string, kind Kind, count string) Field {
	return Field{Name: name, Kind: kind, Dims: []string{count}}
}

// Matrix declares a rows x cols primitive array.
func Matrix(name string, kind Kind, rows, cols string) Field {
	return Field{Name: name, Kind: kind, Dims: []string{rows, cols}}
}

// Nested declares a single nested message field.
func Nested(name, typ string) Field {
	return Field{Name: name, Kind: KindMessage, Type: typ}
}

// NestedArray declares an array of nested messages with one count per dimension.
func NestedArray(name, typ string, dims ...string) Field {
	return Field{Name: name, Kind: KindMessage, Type: typ, Dims: dims}
}

// Rank is the number of array dimensions.
func (f Field) Rank() int { return len(f.Dims) }

// String renders the field in schema-language form, e.g. "double q[num_joints]".
func (f Field) String() string {
	var b strings.Builder
	if f.Kind == KindMessage {
		b.WriteString(f.Type)
	} else {
		b.WriteString(f.Kind.String())
	}
	b.WriteByte(' ')
	b.WriteString(f.Name)
	for _, d := range f.Dims {
		b.WriteByte('[')
		b.WriteString(d)
		b.WriteByte(']')
	}
	return b.String()
}

// validate checks the constraints that need nothing outside the schema itself.
func (s Schema) validate() error {
	if s.Name == "" {
		return errors.WithMessage(ErrInvalidSchema, "type with empty name")
	}
	seen := make(map[string]Field, len(s.Fields))
	for i, f := range s.Fields {
		if f.Name == "" {
			return errors.WithMessagef(ErrInvalidSchema, "%s: field %d has no name", s.Name, i)
		}
		if _, dup := seen[f.Name]; dup {
			return errors.WithMessagef(ErrInvalidSchema, "%s.%s: duplicate field", s.Name, f.Name)
		}
		if !f.Kind.Valid() {
			return errors.WithMessagef(ErrInvalidSchema, "%s.%s: invalid kind %s", s.Name, f.Name, f.Kind)
		}
		if f.Kind == KindMessage && f.Type == "" {
			return errors.WithMessagef(ErrInvalidSchema, "%s.%s: message field without a type", s.Name, f.Name)
		}
		if f.Kind != KindMessage && f.Type != "" {
			return errors.WithMessagef(ErrInvalidSchema, "%s.%s: %s field names type %q", s.Name, f.Name, f.Kind, f.Type)
		}
		if f.Rank() > MaxRank {
			return errors.WithMessagef(ErrInvalidSchema, "%s.%s: rank %d exceeds %d", s.Name, f.Name, f.Rank(), MaxRank)
		}
		for _, d := range f.Dims {
			c, ok := seen[d]
			switch {
			case !ok:
				return errors.WithMessagef(ErrInvalidSchema, "%s.%s: count field %q is not declared before it", s.Name, f.Name, d)
			case c.Rank() != 0 || !c.Kind.IsInteger():
				return errors.WithMessagef(ErrInvalidSchema, "%s.%s: count field %q is not an integer scalar", s.Name, f.Name, d)
			}
		}
		seen[f.Name] = f
	}
	return nil
}
