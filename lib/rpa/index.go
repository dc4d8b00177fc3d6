// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpa

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"unicode/utf8"

	pickle "github.com/kisielk/og-rek"
	"github.com/klauspost/compress/zlib"
)

// ErrCorruptIndex is returned when the index trailer cannot be
// decompressed or does not have the expected pickled shape.
var ErrCorruptIndex = errors.New("corrupt archive index")

// maxIndexSize bounds the decompressed index. A real index is a few
// bytes per entry; anything near this size is a zip bomb.
const maxIndexSize = 1 << 30

// rawEntry is one decoded index record before bounds checking.
type rawEntry struct {
	name   string
	span   ObfuscatedSpan
	prefix []byte
}

// decodeIndex decompresses and unpickles an index trailer. Entries
// whose value list is empty are skipped, matching the engine.
func decodeIndex(compressed io.Reader) ([]rawEntry, error) {
	inflater, err := zlib.NewReader(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: zlib: %v", ErrCorruptIndex, err)
	}
	defer inflater.Close()

	data, err := io.ReadAll(io.LimitReader(inflater, maxIndexSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: zlib: %v", ErrCorruptIndex, err)
	}
	if len(data) > maxIndexSize {
		return nil, fmt.Errorf("%w: index exceeds %d bytes", ErrCorruptIndex, maxIndexSize)
	}

	value, err := pickle.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: pickle: %v", ErrCorruptIndex, err)
	}

	table, ok := value.(map[interface{}]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: index is %T, want dict", ErrCorruptIndex, value)
	}

	entries := make([]rawEntry, 0, len(table))
	for rawName, rawValue := range table {
		name, ok := rawName.(string)
		if !ok {
			return nil, fmt.Errorf("%w: entry name is %T", ErrCorruptIndex, rawName)
		}
		records, ok := asSequence(rawValue)
		if !ok {
			return nil, fmt.Errorf("%w: entry %q: value is %T, want list", ErrCorruptIndex, name, rawValue)
		}
		if len(records) == 0 {
			continue
		}
		fields, ok := asSequence(records[0])
		if !ok || (len(fields) != 2 && len(fields) != 3) {
			return nil, fmt.Errorf("%w: entry %q: malformed record %v", ErrCorruptIndex, name, records[0])
		}
		offset, err := asUint64(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q offset: %v", ErrCorruptIndex, name, err)
		}
		length, err := asUint64(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q length: %v", ErrCorruptIndex, name, err)
		}
		var prefix []byte
		if len(fields) == 3 {
			prefix, err = asPrefix(fields[2])
			if err != nil {
				return nil, fmt.Errorf("%w: entry %q prefix: %v", ErrCorruptIndex, name, err)
			}
		}
		entries = append(entries, rawEntry{
			name:   name,
			span:   ObfuscatedSpan{Offset: offset, Length: length},
			prefix: prefix,
		})
	}
	return entries, nil
}

func asSequence(value interface{}) ([]interface{}, bool) {
	switch typed := value.(type) {
	case []interface{}:
		return typed, true
	case pickle.Tuple:
		return typed, true
	default:
		return nil, false
	}
}

func asUint64(value interface{}) (uint64, error) {
	switch typed := value.(type) {
	case int64:
		if typed < 0 {
			return 0, fmt.Errorf("negative value %d", typed)
		}
		return uint64(typed), nil
	case int:
		if typed < 0 {
			return 0, fmt.Errorf("negative value %d", typed)
		}
		return uint64(typed), nil
	case *big.Int:
		if typed.Sign() < 0 || typed.BitLen() > 64 {
			return 0, fmt.Errorf("value %s out of range", typed)
		}
		return typed.Uint64(), nil
	default:
		return 0, fmt.Errorf("got %T, want int", value)
	}
}

// asPrefix accepts every prefix form the engine has written over the
// years: None, bytes, latin-1 str, and the protocol 2 encodings of
// bytes as a _codecs.encode or bytes() call.
func asPrefix(value interface{}) ([]byte, error) {
	switch typed := value.(type) {
	case nil, pickle.None:
		return nil, nil
	case pickle.Bytes:
		return []byte(typed), nil
	case string:
		return latin1(typed)
	case pickle.Call:
		return callPrefix(typed)
	default:
		return nil, fmt.Errorf("unsupported prefix type %T", value)
	}
}

func callPrefix(call pickle.Call) ([]byte, error) {
	switch call.Callable {
	case pickle.Class{Module: "__builtin__", Name: "bytes"}, pickle.Class{Module: "builtins", Name: "bytes"}:
		if len(call.Args) == 0 {
			return nil, nil
		}
	case pickle.Class{Module: "_codecs", Name: "encode"}:
		if len(call.Args) == 2 {
			text, textOK := call.Args[0].(string)
			encoding, encodingOK := call.Args[1].(string)
			if textOK && encodingOK && (encoding == "latin1" || encoding == "latin-1") {
				return latin1(text)
			}
		}
	}
	return nil, fmt.Errorf("unsupported prefix call %s.%s%v", call.Callable.Module, call.Callable.Name, call.Args)
}

func latin1(text string) ([]byte, error) {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		if r > 0xff {
			return nil, fmt.Errorf("rune %U outside latin-1", r)
		}
		out = append(out, byte(r))
	}
	return out, nil
}

// Pickle opcodes emitted by encodeIndex. Protocol 2 is the newest
// protocol both the Python 2 and Python 3 builds of the engine load.
const (
	opProto      = 0x80
	opEmptyDict  = '}'
	opMark       = '('
	opBinUnicode = 'X'
	opEmptyList  = ']'
	opBinInt1    = 'K'
	opBinInt2    = 'M'
	opBinInt     = 'J'
	opLong1      = 0x8a
	opGlobal     = 'c'
	opBinPut     = 'q'
	opBinGet     = 'h'
	opEmptyTuple = ')'
	opReduce     = 'R'
	opTuple3     = 0x87
	opAppend     = 'a'
	opSetItems   = 'u'
	opStop       = '.'
)

// indexRecord is one entry as the writer lays it out.
type indexRecord struct {
	name string
	span ObfuscatedSpan
}

// encodeIndex pickles records as dict[str, [(offset, length, b"")]]
// with protocol 2, preserving record order. The empty prefix is
// written the way CPython writes b"" at protocol 2: a memoized
// __builtin__.bytes global called with no arguments.
func encodeIndex(records []indexRecord) ([]byte, error) {
	var out bytes.Buffer
	out.Write([]byte{opProto, 2, opEmptyDict})
	if len(records) > 0 {
		out.WriteByte(opMark)
	}
	for i, record := range records {
		if !utf8.ValidString(record.name) {
			return nil, fmt.Errorf("entry name %q is not valid UTF-8", record.name)
		}
		out.WriteByte(opBinUnicode)
		var size [4]byte
		binary.LittleEndian.PutUint32(size[:], uint32(len(record.name)))
		out.Write(size[:])
		out.WriteString(record.name)
		out.WriteByte(opEmptyList)
		writePickleInt(&out, record.span.Offset)
		writePickleInt(&out, record.span.Length)
		if i == 0 {
			out.WriteByte(opGlobal)
			out.WriteString("__builtin__\nbytes\n")
			out.Write([]byte{opBinPut, 0})
		} else {
			out.Write([]byte{opBinGet, 0})
		}
		out.Write([]byte{opEmptyTuple, opReduce, opTuple3, opAppend})
	}
	if len(records) > 0 {
		out.WriteByte(opSetItems)
	}
	out.WriteByte(opStop)
	return out.Bytes(), nil
}

// writePickleInt writes a non-negative integer in the smallest opcode
// CPython would pick for it.
func writePickleInt(out *bytes.Buffer, value uint64) {
	switch {
	case value < 1<<8:
		out.Write([]byte{opBinInt1, byte(value)})
	case value < 1<<16:
		out.Write([]byte{opBinInt2, byte(value), byte(value >> 8)})
	case value < 1<<31:
		var raw [4]byte
		binary.LittleEndian.PutUint32(raw[:], uint32(value))
		out.WriteByte(opBinInt)
		out.Write(raw[:])
	default:
		// LONG1: little-endian two's complement, with a trailing zero
		// byte when the top bit would otherwise read as a sign.
		var raw [9]byte
		binary.LittleEndian.PutUint64(raw[:8], value)
		n := 8
		for n > 1 && raw[n-1] == 0 {
			n--
		}
		if raw[n-1]&0x80 != 0 {
			n++
		}
		out.Write([]byte{opLong1, byte(n)})
		out.Write(raw[:n])
	}
}

// compressIndex zlib-compresses a pickled index at the default level.
func compressIndex(pickled []byte) ([]byte, error) {
	var out bytes.Buffer
	deflater, err := zlib.NewWriterLevel(&out, zlib.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := deflater.Write(pickled); err != nil {
		return nil, err
	}
	if err := deflater.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
