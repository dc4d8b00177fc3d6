// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpa

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// indexVectors mirror the vectors in testdata/generate.py. Each golden
// file was checked against CPython's unpickler when it was generated.
var indexVectors = []struct {
	file    string
	key     Key
	entries []struct {
		name           string
		offset, length int64
	}
}{
	{
		file: "index_small.pickle",
		key:  0,
		entries: []struct {
			name           string
			offset, length int64
		}{{"a.txt", 40, 5}, {"images/bg.png", 300, 70000}},
	},
	{
		file: "index_keyed.pickle",
		key:  0xDEADBEEF,
		entries: []struct {
			name           string
			offset, length int64
		}{{"script.rpy", 40, 24}, {"images/bg.png", 64, 15}},
	},
	{
		file: "index_empty.pickle",
		key:  0x1234,
	},
}

func TestEncodeIndexGolden(t *testing.T) {
	for _, vector := range indexVectors {
		t.Run(vector.file, func(t *testing.T) {
			want, err := os.ReadFile(filepath.Join("testdata", vector.file))
			if err != nil {
				t.Fatalf("reading golden: %v", err)
			}
			var records []indexRecord
			for _, entry := range vector.entries {
				records = append(records, indexRecord{
					name: entry.name,
					span: vector.key.Obfuscate(Span{Offset: entry.offset, Length: entry.length}),
				})
			}
			got, err := encodeIndex(records)
			if err != nil {
				t.Fatalf("encodeIndex failed: %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("encodeIndex mismatch\n got: %x\nwant: %x", got, want)
			}
		})
	}
}

func TestDecodeIndexReadsEncoderOutput(t *testing.T) {
	for _, vector := range indexVectors {
		t.Run(vector.file, func(t *testing.T) {
			pickled, err := os.ReadFile(filepath.Join("testdata", vector.file))
			if err != nil {
				t.Fatalf("reading golden: %v", err)
			}
			compressed, err := compressIndex(pickled)
			if err != nil {
				t.Fatalf("compressIndex failed: %v", err)
			}
			entries, err := decodeIndex(bytes.NewReader(compressed))
			if err != nil {
				t.Fatalf("decodeIndex failed: %v", err)
			}
			if len(entries) != len(vector.entries) {
				t.Fatalf("decoded %d entries, want %d", len(entries), len(vector.entries))
			}
			byName := make(map[string]rawEntry)
			for _, entry := range entries {
				byName[entry.name] = entry
			}
			for _, want := range vector.entries {
				got, ok := byName[want.name]
				if !ok {
					t.Fatalf("entry %q missing", want.name)
				}
				span, err := vector.key.Deobfuscate(got.span)
				if err != nil {
					t.Fatalf("Deobfuscate(%q) failed: %v", want.name, err)
				}
				if span.Offset != want.offset || span.Length != want.length {
					t.Errorf("%q span = %+v, want (%d, %d)", want.name, span, want.offset, want.length)
				}
				if len(got.prefix) != 0 {
					t.Errorf("%q prefix = %q, want empty", want.name, got.prefix)
				}
			}
		})
	}
}

func TestDecodeIndexRejectsGarbage(t *testing.T) {
	notPickle, err := compressIndex([]byte("this is not a pickle"))
	if err != nil {
		t.Fatalf("compressIndex failed: %v", err)
	}
	// A pickled list instead of a dict.
	notDict, err := compressIndex([]byte{opProto, 2, opEmptyList, opStop})
	if err != nil {
		t.Fatalf("compressIndex failed: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"not zlib", []byte("definitely not zlib")},
		{"not pickle", notPickle},
		{"not a dict", notDict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeIndex(bytes.NewReader(tt.data))
			if !errors.Is(err, ErrCorruptIndex) {
				t.Fatalf("decodeIndex error = %v, want ErrCorruptIndex", err)
			}
		})
	}
}

func TestEncodeIndexRejectsInvalidName(t *testing.T) {
	_, err := encodeIndex([]indexRecord{{name: "bad\xffname"}})
	if err == nil {
		t.Fatal("expected error for invalid UTF-8 name")
	}
}

func TestWritePickleIntWidths(t *testing.T) {
	tests := []struct {
		value uint64
		want  []byte
	}{
		{0, []byte{opBinInt1, 0}},
		{255, []byte{opBinInt1, 0xff}},
		{256, []byte{opBinInt2, 0x00, 0x01}},
		{70000, []byte{opBinInt, 0x70, 0x11, 0x01, 0x00}},
		{1<<31 - 1, []byte{opBinInt, 0xff, 0xff, 0xff, 0x7f}},
		{1 << 31, []byte{opLong1, 5, 0x00, 0x00, 0x00, 0x80, 0x00}},
		{0x1_0000_0000, []byte{opLong1, 5, 0x00, 0x00, 0x00, 0x00, 0x01}},
		{1<<64 - 1, []byte{opLong1, 9, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		writePickleInt(&out, tt.value)
		if !bytes.Equal(out.Bytes(), tt.want) {
			t.Errorf("writePickleInt(%d) = %x, want %x", tt.value, out.Bytes(), tt.want)
		}
	}
}
