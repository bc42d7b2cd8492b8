// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import "fmt"

// Kind identifies the primitive or nested-message type of a field.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindByte
	KindBoolean
	KindString
	KindMessage
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindInt8:    "int8_t",
	KindInt16:   "int16_t",
	KindInt32:   "int32_t",
	KindInt64:   "int64_t",
	KindFloat32: "float",
	KindFloat64: "double",
	KindByte:    "byte",
	KindBoolean: "boolean",
	KindString:  "string",
	KindMessage: "message",
}

// String returns the schema-language spelling of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k > KindInvalid && k <= KindMessage
}

// Width is the encoded size of one element. Strings report their minimum
// (the length prefix) and messages report zero.
func (k Kind) Width() int {
	switch k {
	case KindInt8, KindByte, KindBoolean:
		return 1
	case KindInt16:
		return 2
	case KindInt32, KindFloat32, KindString:
		return 4
	case KindInt64, KindFloat64:
		return 8
	}
	return 0
}

// IsInteger reports whether fields of this kind can act as count fields.
func (k Kind) IsInteger() bool {
	return k >= KindInt8 && k <= KindInt64
}

// ParseKind maps a schema-language primitive name to its Kind. Any name that
// is not a primitive is reported as KindMessage.
func ParseKind(name string) Kind {
	for k := KindInt8; k < KindMessage; k++ {
		if kindNames[k] == name {
			return k
		}
	}
	if k, ok := kindAliases[name]; ok {
		return k
	}
	return KindMessage
}

// Go spellings accepted alongside the schema-language names.
var kindAliases = map[string]Kind{
	"int8":    KindInt8,
	"int16":   KindInt16,
	"int32":   KindInt32,
	"int64":   KindInt64,
	"float32": KindFloat32,
	"float64": KindFloat64,
	"bool":    KindBoolean,
}
