// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpa

import (
	"errors"
	"fmt"
	"strconv"
)

// HeaderSize is the fixed size of the RPA-3.0 header region.
const HeaderSize = 40

const magic = "RPA-3.0 "

// headerLineSize is the length of the significant header line. The
// engine starts entry data right after it.
const headerLineSize = 34

// ErrNotArchive is returned when the first bytes of a file are not an
// RPA-3.0 header.
var ErrNotArchive = errors.New("not an RPA-3.0 archive")

// Header is the decoded 40-byte archive header.
type Header struct {
	// IndexOffset is the absolute file offset of the zlib index.
	IndexOffset int64

	// Key is the XOR obfuscation key applied to every offset and
	// length in the index.
	Key Key
}

// ParseHeader decodes an RPA-3.0 header. Only the first line is
// significant: archives written by the engine place data immediately
// after the newline, so the padding bytes are not checked.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header is %d bytes", ErrNotArchive, len(data))
	}
	if string(data[:len(magic)]) != magic {
		return Header{}, ErrNotArchive
	}
	// "RPA-3.0 " + 16 hex + " " + 8 hex + "\n"
	if data[24] != ' ' || data[33] != '\n' {
		return Header{}, fmt.Errorf("%w: malformed header line", ErrNotArchive)
	}
	offset, err := strconv.ParseUint(string(data[8:24]), 16, 64)
	if err != nil {
		return Header{}, fmt.Errorf("%w: index offset: %v", ErrNotArchive, err)
	}
	if offset > 1<<62 {
		return Header{}, fmt.Errorf("%w: index offset %#x out of range", ErrNotArchive, offset)
	}
	key, err := strconv.ParseUint(string(data[25:33]), 16, 32)
	if err != nil {
		return Header{}, fmt.Errorf("%w: key: %v", ErrNotArchive, err)
	}
	return Header{IndexOffset: int64(offset), Key: Key(key)}, nil
}

// Bytes encodes the header into its 40-byte wire form.
func (h Header) Bytes() [HeaderSize]byte {
	var out [HeaderSize]byte
	line := fmt.Sprintf("%s%016x %08x\n", magic, uint64(h.IndexOffset), uint32(h.Key))
	copy(out[:], line)
	return out
}
