// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Limits applied when decoding untrusted input.
const (
	DefaultMaxArrayLen = 1 << 24
	DefaultMaxDepth    = 64
)

// Registry is an immutable set of linked message types. Every message field
// of every schema must resolve to a type in the same registry.
type Registry struct {
	types       map[string]*Type
	log         zerolog.Logger
	maxArrayLen int
	maxDepth    int
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	logger      zerolog.Logger
	maxArrayLen int
	maxDepth    int
}

// WithLogger sets the logger used while building the registry.
func WithLogger(l zerolog.Logger) RegistryOption {
	return func(o *registryOptions) { o.logger = l }
}

// WithMaxArrayLen caps the element count a decoded count field may demand.
func WithMaxArrayLen(n int) RegistryOption {
	return func(o *registryOptions) { o.maxArrayLen = n }
}

// WithMaxDepth caps message nesting during encode and decode.
func WithMaxDepth(n int) RegistryOption {
	return func(o *registryOptions) { o.maxDepth = n }
}

// Type is a linked, immutable message type. It is safe for concurrent use.
type Type struct {
	name    string
	base    uint64
	schema  Schema
	fields  []*field
	byName  map[string]*field
	arrays  bool
	minSize int
	reg     *Registry

	fpOnce sync.Once
	fp     uint64
}

// field is a Field bound to its codec and, for messages, its linked type.
type field struct {
	Field
	prim  primCodec
	msg   *Type
	count bool // governs the length of at least one array
}

// NewRegistry validates schemas and links their message references. Types may
// reference each other in any order, including cyclically.
func NewRegistry(schemas []Schema, opts ...RegistryOption) (*Registry, error) {
	o := &registryOptions{
		logger:      zerolog.Nop(),
		maxArrayLen: DefaultMaxArrayLen,
		maxDepth:    DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(o)
	}

	r := &Registry{
		types:       make(map[string]*Type, len(schemas)),
		log:         o.logger.With().Str("component", "lcm_registry").Logger(),
		maxArrayLen: o.maxArrayLen,
		maxDepth:    o.maxDepth,
	}

	for _, s := range schemas {
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.types[s.Name]; dup {
			return nil, errors.WithMessagef(ErrInvalidSchema, "duplicate type %q", s.Name)
		}
		r.types[s.Name] = newType(r, s)
	}

	for _, t := range r.types {
		for _, f := range t.fields {
			if f.Kind != KindMessage {
				continue
			}
			nested, ok := r.types[f.Type]
			if !ok {
				return nil, errors.WithMessagef(ErrUnknownType, "%s.%s references %q", t.name, f.Name, f.Type)
			}
			f.msg = nested
		}
	}

	for _, t := range r.types {
		t.minSize = t.computeMinSize(nil)
		r.log.Debug().
			Str("type", t.name).
			Int("fields", len(t.fields)).
			Int("min_size", t.minSize).
			Msg("registered message type")
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error. It is meant for
// package-level tables declared at init time.
func MustRegistry(schemas []Schema, opts ...RegistryOption) *Registry {
	r, err := NewRegistry(schemas, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Type returns the named message type.
func (r *Registry) Type(name string) (*Type, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, errors.WithMessagef(ErrUnknownType, "%q", name)
	}
	return t, nil
}

// MustType is like Type but panics when the type is unknown.
func (r *Registry) MustType(name string) *Type {
	t, err := r.Type(name)
	if err != nil {
		panic(err)
	}
	return t
}

// Types returns every registered type sorted by name.
func (r *Registry) Types() []*Type {
	out := make([]*Type, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func newType(r *Registry, s Schema) *Type {
	t := &Type{
		name:   s.Name,
		schema: s,
		byName: make(map[string]*field, len(s.Fields)),
		reg:    r,
	}
	t.base = s.Seed
	if t.base == 0 {
		t.base = baseHash(s.Fields)
	}
	for _, sf := range s.Fields {
		f := &field{Field: sf}
		if sf.Kind != KindMessage {
			f.prim = prims[sf.Kind]
		}
		t.fields = append(t.fields, f)
		t.byName[sf.Name] = f
	}
	for _, f := range t.fields {
		for _, d := range f.Dims {
			t.byName[d].count = true
			t.arrays = true
		}
	}
	return t
}

// Name returns the type's name as carried in schemas.
func (t *Type) Name() string { return t.name }

// Schema returns a copy of the declaration the type was built from.
func (t *Type) Schema() Schema {
	s := t.schema
	s.Fields = make([]Field, len(t.schema.Fields))
	for i, f := range t.schema.Fields {
		f.Dims = append([]string(nil), f.Dims...)
		s.Fields[i] = f
	}
	return s
}

// MinEncodedSize is the smallest payload, excluding the fingerprint, any
// value of this type encodes to.
func (t *Type) MinEncodedSize() int { return t.minSize }

// computeMinSize sums the fixed part of the layout. Arrays can be empty and
// contribute nothing; a type already on the path contributes nothing either.
func (t *Type) computeMinSize(path []*Type) int {
	for _, p := range path {
		if p == t {
			return 0
		}
	}
	path = append(path[:len(path):len(path)], t)
	size := 0
	for _, f := range t.fields {
		switch {
		case f.Rank() > 0:
		case f.msg != nil:
			size += f.msg.computeMinSize(path)
		default:
			size += f.Kind.Width()
		}
	}
	return size
}
