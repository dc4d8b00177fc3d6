// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpa

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

// Key is the per-archive XOR key. It is 32 bits on the wire but is
// applied to 64-bit offsets and lengths, so the high half of every
// obfuscated value is stored in the clear.
type Key uint32

// Span is a de-obfuscated (offset, length) pair describing where an
// entry's bytes live in the data region.
type Span struct {
	Offset int64
	Length int64
}

// ObfuscatedSpan is the (offset ^ key, length ^ key) pair as stored in
// the pickled index.
type ObfuscatedSpan struct {
	Offset uint64
	Length uint64
}

// Obfuscate produces the on-disk form of a span.
func (k Key) Obfuscate(span Span) ObfuscatedSpan {
	return ObfuscatedSpan{
		Offset: uint64(span.Offset) ^ uint64(k),
		Length: uint64(span.Length) ^ uint64(k),
	}
}

// Deobfuscate recovers a span from its on-disk form. Values that do
// not fit a non-negative int64 after XOR are rejected rather than
// wrapped.
func (k Key) Deobfuscate(raw ObfuscatedSpan) (Span, error) {
	offset := raw.Offset ^ uint64(k)
	length := raw.Length ^ uint64(k)
	if offset > math.MaxInt64 || length > math.MaxInt64 {
		return Span{}, fmt.Errorf("span (%#x, %#x) out of range", offset, length)
	}
	return Span{Offset: int64(offset), Length: int64(length)}, nil
}

// RandomKey returns a fresh key from the system CSPRNG. Used when a
// writer has no input archive whose key it can reuse.
func RandomKey() (Key, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("generating archive key: %w", err)
	}
	return Key(binary.LittleEndian.Uint32(buf[:])), nil
}
