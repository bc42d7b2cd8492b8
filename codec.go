// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"github.com/pkg/errors"
)

// Message pairs a value with the type it is encoded as.
type Message struct {
	Type  *Type
	Value Value
}

// Codec encodes and decodes messages for a transport.
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, v interface{}) error
}

// BinaryCodec encodes Message values with their type's wire layout and
// passes raw bytes through unchanged.
type BinaryCodec struct{}

func (BinaryCodec) Encode(v interface{}) ([]byte, error) {
	switch m := v.(type) {
	case *Message:
		if m == nil || m.Type == nil {
			return nil, errors.WithMessage(ErrInvalidValue, "message without a type")
		}
		return m.Type.Encode(m.Value)
	case Message:
		return BinaryCodec{}.Encode(&m)
	case []byte:
		return m, nil
	case *[]byte:
		return *m, nil
	}
	return nil, errors.WithMessagef(ErrInvalidValue, "cannot encode %T", v)
}

// Decode fills a *Message whose Type is already set, or copies data into a
// *[]byte.
func (BinaryCodec) Decode(data []byte, v interface{}) error {
	switch m := v.(type) {
	case *Message:
		if m == nil || m.Type == nil {
			return errors.WithMessage(ErrInvalidValue, "message without a type")
		}
		val, err := m.Type.Decode(data)
		if err != nil {
			return err
		}
		m.Value = val
		return nil
	case *[]byte:
		*m = append((*m)[:0], data...)
		return nil
	}
	return errors.WithMessagef(ErrInvalidValue, "cannot decode into %T", v)
}

// Binary is the codec every transport uses for message payloads.
var Binary Codec = BinaryCodec{}
