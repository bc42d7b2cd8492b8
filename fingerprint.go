// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"hash/fnv"
	"math/bits"

	"github.com/pkg/errors"
)

// FingerprintSize is the number of bytes the fingerprint occupies on the wire.
const FingerprintSize = 8

// Fingerprint returns the 64-bit structural hash stamped at the front of every
// encoded message of this type. It is computed on first use and cached.
func (t *Type) Fingerprint() uint64 {
	t.fpOnce.Do(func() {
		t.fp = t.computeHash(nil)
	})
	return t.fp
}

// computeHash folds the hashes of nested message fields into the type's base
// hash. visiting holds the types being hashed further up the call stack;
// reaching one of them again contributes zero. Array fields contribute once
// per declaration, not per element.
func (t *Type) computeHash(visiting []*Type) uint64 {
	for _, v := range visiting {
		if v == t {
			return 0
		}
	}
	visiting = append(visiting[:len(visiting):len(visiting)], t)

	h := t.base
	for _, f := range t.fields {
		if f.msg != nil {
			h += f.msg.computeHash(visiting)
		}
	}
	return bits.RotateLeft64(h, 1)
}

// baseHash derives a type's base hash from the ordered (kind, rank) pairs of
// its fields with FNV-1a. Field names and nested type names do not take part.
func baseHash(fields []Field) uint64 {
	h := fnv.New64a()
	for _, f := range fields {
		h.Write([]byte{byte(f.Kind), byte(f.Rank())})
	}
	return h.Sum64()
}

// PeekFingerprint reads the fingerprint at the front of an encoded message
// without decoding the rest.
func PeekFingerprint(data []byte) (uint64, error) {
	fp, _, err := DecodeArray[int64](data, 0, len(data), 1)
	if err != nil {
		return 0, errors.WithMessage(err, "fingerprint")
	}
	return uint64(fp[0]), nil
}
