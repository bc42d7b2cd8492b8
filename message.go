// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"github.com/pkg/errors"
)

// Encode returns the fingerprint followed by the fields of v, in a buffer
// sized exactly by EncodedSize.
func (t *Type) Encode(v Value) ([]byte, error) {
	size, err := t.EncodedSize(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	n, err := t.EncodeTo(buf, 0, size, v)
	if err != nil {
		return nil, err
	}
	if n != size {
		return nil, errors.Errorf("lcm: %s encoded %d bytes but sized %d", t.name, n, size)
	}
	return buf, nil
}

// EncodeTo writes the encoded message into buf at offset, using at most maxlen
// bytes, and returns the number of bytes written. On error buf may hold a
// partial message and should be discarded.
func (t *Type) EncodeTo(buf []byte, offset, maxlen int, v Value) (int, error) {
	e := &encoder{buf: buf, pos: offset, end: offset + available(buf, offset, maxlen)}
	if err := e.put(prims[KindInt64], []int64{int64(t.Fingerprint())}); err != nil {
		return 0, errors.WithMessagef(err, "%s fingerprint", t.name)
	}
	if err := t.encodeFields(e, v, 0); err != nil {
		return 0, err
	}
	return e.pos - offset, nil
}

// EncodedSize returns the exact number of bytes Encode produces for v. It
// validates v the same way Encode does.
func (t *Type) EncodedSize(v Value) (int, error) {
	e := &encoder{sizing: true}
	e.pos = FingerprintSize
	if err := t.encodeFields(e, v, 0); err != nil {
		return 0, err
	}
	return e.pos, nil
}

// Decode checks the fingerprint at the front of data and decodes the fields
// that follow into a fresh Value. Bytes past the end of the message are
// ignored.
func (t *Type) Decode(data []byte) (Value, error) {
	v, _, err := t.DecodeFrom(data, 0, len(data))
	return v, err
}

// DecodeFrom decodes a message from buf at offset, reading at most maxlen
// bytes, and returns the number of bytes consumed. A fingerprint that does not
// match the type stops the decode with ErrSchemaMismatch.
func (t *Type) DecodeFrom(buf []byte, offset, maxlen int) (Value, int, error) {
	d := &decoder{buf: buf, pos: offset, end: offset + available(buf, offset, maxlen)}
	fp, n, err := DecodeArray[int64](buf, d.pos, d.remaining(), 1)
	if err != nil {
		return nil, 0, errors.WithMessagef(err, "%s fingerprint", t.name)
	}
	if got, want := uint64(fp[0]), t.Fingerprint(); got != want {
		return nil, 0, errors.WithMessagef(ErrSchemaMismatch, "%s: got %#016x, want %#016x", t.name, got, want)
	}
	d.pos += n

	v, err := t.decodeFields(d, 0)
	if err != nil {
		return nil, 0, err
	}
	return v, d.pos - offset, nil
}

// encoder walks values either writing into buf or, when sizing, only
// advancing pos. Both modes share one walk so the size always agrees with
// what is written.
type encoder struct {
	buf    []byte
	pos    int
	end    int
	sizing bool
}

func (e *encoder) put(p primCodec, vals any) error {
	var (
		n   int
		err error
	)
	if e.sizing {
		n, err = p.size(vals)
	} else {
		n, err = p.encode(e.buf, e.pos, e.end-e.pos, vals)
	}
	if err != nil {
		return err
	}
	e.pos += n
	return nil
}

type decoder struct {
	buf []byte
	pos int
	end int
}

func (d *decoder) remaining() int { return d.end - d.pos }

func (t *Type) encodeFields(e *encoder, v Value, depth int) error {
	if depth >= t.reg.maxDepth {
		return errors.WithMessagef(ErrNestingDepth, "%s at depth %d", t.name, depth)
	}
	counts, err := t.counts(v)
	if err != nil {
		return err
	}
	for _, f := range t.fields {
		if err := t.encodeField(e, f, v[f.Name], counts, depth); err != nil {
			return t.fieldError(f, err)
		}
	}
	return nil
}

func (t *Type) encodeField(e *encoder, f *field, x any, counts map[string]int, depth int) error {
	switch {
	case f.count:
		return e.put(f.prim, intSlice(f.Kind, counts[f.Name]))

	case f.Rank() == 0 && f.msg != nil:
		nested, ok := x.(Value)
		if !ok && x != nil {
			return errors.WithMessagef(ErrInvalidValue, "holds %T, want lcm.Value", x)
		}
		return f.msg.encodeFields(e, nested, depth+1)

	case f.Rank() == 0:
		vals, ok := f.prim.one(x)
		if !ok {
			return errors.WithMessagef(ErrInvalidValue, "holds %T, want %s", x, f.Kind)
		}
		return e.put(f.prim, vals)

	case f.Rank() == 1:
		if counts[f.Dims[0]] == 0 {
			return nil
		}
		if f.msg != nil {
			for _, el := range x.([]Value) {
				if err := f.msg.encodeFields(e, el, depth+1); err != nil {
					return err
				}
			}
			return nil
		}
		vals, _, _ := f.prim.slice(x)
		return e.put(f.prim, vals)

	default:
		if counts[f.Dims[0]] == 0 || counts[f.Dims[1]] == 0 {
			return nil
		}
		if f.msg != nil {
			for _, row := range x.([][]Value) {
				for _, el := range row {
					if err := f.msg.encodeFields(e, el, depth+1); err != nil {
						return err
					}
				}
			}
			return nil
		}
		rows, _ := f.prim.rows(x)
		for _, r := range rows {
			if err := e.put(f.prim, r); err != nil {
				return err
			}
		}
		return nil
	}
}

// counts resolves every count field of v: explicit values first, then the
// lengths of the arrays they govern, which must all agree.
func (t *Type) counts(v Value) (map[string]int, error) {
	if !t.arrays {
		return nil, nil
	}
	counts := make(map[string]int, 2)
	for _, f := range t.fields {
		if !f.count {
			continue
		}
		x, ok := v[f.Name]
		if !ok || x == nil {
			continue
		}
		n, err := intValue(x)
		if err != nil {
			return nil, t.fieldError(f, err)
		}
		if n < 0 {
			return nil, t.fieldError(f, errors.WithMessagef(ErrInvalidLength, "negative count %d", n))
		}
		counts[f.Name] = n
	}

	check := func(f *field, dim string, n int) error {
		if c, ok := counts[dim]; ok && c != n {
			return t.fieldError(f, errors.WithMessagef(ErrInvalidLength, "has %d elements, count field %q is %d", n, dim, c))
		}
		counts[dim] = n
		return nil
	}

	for _, f := range t.fields {
		switch f.Rank() {
		case 1:
			n, err := f.length(v[f.Name])
			if err != nil {
				return nil, t.fieldError(f, err)
			}
			if err := check(f, f.Dims[0], n); err != nil {
				return nil, err
			}
		case 2:
			rows, cols, err := f.shape(v[f.Name])
			if err != nil {
				return nil, t.fieldError(f, err)
			}
			if err := check(f, f.Dims[0], rows); err != nil {
				return nil, err
			}
			if rows == 0 {
				if _, ok := counts[f.Dims[1]]; !ok {
					counts[f.Dims[1]] = 0
				}
				continue
			}
			if err := check(f, f.Dims[1], cols); err != nil {
				return nil, err
			}
		}
	}

	for name, n := range counts {
		if cf := t.byName[name]; !fitsKind(cf.Kind, n) {
			return nil, t.fieldError(cf, errors.WithMessagef(ErrInvalidLength, "count %d overflows %s", n, cf.Kind))
		}
	}
	return counts, nil
}

// length is the element count of a rank-1 field value.
func (f *field) length(x any) (int, error) {
	if f.msg != nil {
		if x == nil {
			return 0, nil
		}
		vs, ok := x.([]Value)
		if !ok {
			return 0, errors.WithMessagef(ErrInvalidValue, "holds %T, want []lcm.Value", x)
		}
		return len(vs), nil
	}
	_, n, ok := f.prim.slice(x)
	if !ok {
		return 0, errors.WithMessagef(ErrInvalidValue, "holds %T, want []%s", x, f.Kind)
	}
	return n, nil
}

// shape is the rows x cols extent of a rank-2 field value. Rows of differing
// lengths are rejected.
func (f *field) shape(x any) (rows, cols int, err error) {
	var lens []int
	if f.msg != nil {
		if x != nil {
			m, ok := x.([][]Value)
			if !ok {
				return 0, 0, errors.WithMessagef(ErrInvalidValue, "holds %T, want [][]lcm.Value", x)
			}
			for _, r := range m {
				lens = append(lens, len(r))
			}
		}
	} else {
		rs, ok := f.prim.rows(x)
		if !ok {
			return 0, 0, errors.WithMessagef(ErrInvalidValue, "holds %T, want [][]%s", x, f.Kind)
		}
		for _, r := range rs {
			_, n, _ := f.prim.slice(r)
			lens = append(lens, n)
		}
	}
	if len(lens) == 0 {
		return 0, 0, nil
	}
	for i, n := range lens {
		if n != lens[0] {
			return 0, 0, errors.WithMessagef(ErrInvalidLength, "row %d has %d elements, row 0 has %d", i, n, lens[0])
		}
	}
	return len(lens), lens[0], nil
}

func (t *Type) decodeFields(d *decoder, depth int) (Value, error) {
	if depth >= t.reg.maxDepth {
		return nil, errors.WithMessagef(ErrNestingDepth, "%s at depth %d", t.name, depth)
	}
	out := make(Value, len(t.fields))
	for _, f := range t.fields {
		x, err := t.decodeField(d, f, out, depth)
		if err != nil {
			return nil, t.fieldError(f, err)
		}
		out[f.Name] = x
	}
	return out, nil
}

func (t *Type) decodeField(d *decoder, f *field, out Value, depth int) (any, error) {
	switch f.Rank() {
	case 0:
		if f.msg != nil {
			return f.msg.decodeFields(d, depth+1)
		}
		vals, n, err := f.prim.decode(d.buf, d.pos, d.remaining(), 1)
		if err != nil {
			return nil, err
		}
		d.pos += n
		return f.prim.first(vals), nil

	case 1:
		n, err := t.dimension(out, f.Dims[0])
		if err != nil {
			return nil, err
		}
		if err := t.reserve(d, f, n); err != nil {
			return nil, err
		}
		return t.decodeRow(d, f, n, depth)

	default:
		rows, err := t.dimension(out, f.Dims[0])
		if err != nil {
			return nil, err
		}
		cols, err := t.dimension(out, f.Dims[1])
		if err != nil {
			return nil, err
		}
		if rows > t.reg.maxArrayLen || cols > t.reg.maxArrayLen {
			return nil, errors.WithMessagef(ErrInvalidLength, "%d x %d dimension exceeds limit %d", rows, cols, t.reg.maxArrayLen)
		}
		if cols > 0 && rows > t.reg.maxArrayLen/cols {
			return nil, errors.WithMessagef(ErrInvalidLength, "%d x %d elements exceeds limit %d", rows, cols, t.reg.maxArrayLen)
		}
		if err := t.reserve(d, f, rows*cols); err != nil {
			return nil, err
		}
		if f.msg != nil {
			m := make([][]Value, rows)
			for i := range m {
				r, err := t.decodeRow(d, f, cols, depth)
				if err != nil {
					return nil, err
				}
				m[i] = r.([]Value)
			}
			return m, nil
		}
		rs := make([]any, rows)
		for i := range rs {
			r, err := t.decodeRow(d, f, cols, depth)
			if err != nil {
				return nil, err
			}
			rs[i] = r
		}
		return f.prim.matrix(rs), nil
	}
}

// decodeRow decodes n consecutive elements of f. A zero count yields an empty
// slice without touching the buffer.
func (t *Type) decodeRow(d *decoder, f *field, n, depth int) (any, error) {
	if f.msg != nil {
		vs := make([]Value, n)
		for i := range vs {
			el, err := f.msg.decodeFields(d, depth+1)
			if err != nil {
				return nil, errors.WithMessagef(err, "element %d", i)
			}
			vs[i] = el
		}
		return vs, nil
	}
	vals, read, err := f.prim.decode(d.buf, d.pos, d.remaining(), n)
	if err != nil {
		return nil, err
	}
	d.pos += read
	return vals, nil
}

// dimension reads an already decoded count field.
func (t *Type) dimension(out Value, name string) (int, error) {
	n, err := intValue(out[name])
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.WithMessagef(ErrInvalidLength, "count field %q is %d", name, n)
	}
	return n, nil
}

// reserve rejects element counts the remaining input cannot possibly hold,
// before anything is allocated for them. Elements that encode to nothing are
// charged one byte each so a bare count cannot demand unbounded allocation.
func (t *Type) reserve(d *decoder, f *field, n int) error {
	if n > t.reg.maxArrayLen {
		return errors.WithMessagef(ErrInvalidLength, "%d elements exceeds limit %d", n, t.reg.maxArrayLen)
	}
	least := f.Kind.Width()
	if f.msg != nil {
		least = f.msg.minSize
	}
	least = max(least, 1)
	if n > d.remaining()/least {
		return errors.WithMessagef(ErrBufferTooSmall, "%d elements of at least %d bytes, %d available", n, least, d.remaining())
	}
	return nil
}

func (t *Type) fieldError(f *field, err error) error {
	return errors.WithMessagef(err, "%s.%s", t.name, f.Name)
}
