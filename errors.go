// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"github.com/pkg/errors"
)

// Codec errors. Callers match them with errors.Is; the returned errors carry
// the type and field path of the failure as message context.
var (
	ErrBufferTooSmall  = errors.New("lcm: buffer too small")
	ErrSchemaMismatch  = errors.New("lcm: fingerprint mismatch")
	ErrInvalidLength   = errors.New("lcm: invalid array length")
	ErrMalformedString = errors.New("lcm: malformed string")
	ErrInvalidValue    = errors.New("lcm: invalid field value")
	ErrNestingDepth    = errors.New("lcm: nesting too deep")
)

// Schema errors, returned while building a Registry.
var (
	ErrInvalidSchema = errors.New("lcm: invalid schema")
	ErrUnknownType   = errors.New("lcm: unknown message type")
)

// Bus errors.
var (
	ErrBusClosed      = errors.New("lcm: bus closed")
	ErrBusInvalidResp = errors.New("lcm: invalid bus response")
	ErrNotSupported   = errors.New("lcm: operation not supported by transport")
)
