// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"bytes"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("sequences/op_intro "), 500)
	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(string(compression), func(t *testing.T) {
			body, err := compress(payload, compression)
			if err != nil {
				t.Fatalf("compress: %v", err)
			}
			got, err := decompress(body, compression, len(payload))
			if err != nil {
				t.Fatalf("decompress: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Fatal("round trip changed the payload")
			}
		})
	}
}

func TestCompressAutoSelection(t *testing.T) {
	if _, compression := compressAuto(bytes.Repeat([]byte{7}, 10000)); compression != CompressionZstd {
		t.Errorf("repetitive payload stored as %s, want zstd", compression)
	}
	if body, compression := compressAuto(noise(10000)); compression != CompressionNone || len(body) != 10000 {
		t.Errorf("noise stored as %s (%d bytes), want none", compression, len(body))
	}
	if _, compression := compressAuto(nil); compression != CompressionNone {
		t.Errorf("empty payload stored as %s", compression)
	}
}

func TestDecompressSizeMismatch(t *testing.T) {
	payload := bytes.Repeat([]byte("abc"), 100)
	for _, compression := range []Compression{CompressionNone, CompressionZstd} {
		body, err := compress(payload, compression)
		if err != nil {
			t.Fatalf("compress: %v", err)
		}
		if _, err := decompress(body, compression, len(payload)+1); err == nil {
			t.Errorf("%s: size mismatch not detected", compression)
		}
	}
}

func TestParseCompression(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd"} {
		if _, err := ParseCompression(name); err != nil {
			t.Errorf("ParseCompression(%q): %v", name, err)
		}
	}
	if _, err := ParseCompression("bg4_lz4"); err == nil {
		t.Error("ParseCompression accepted an unknown name")
	}
}
