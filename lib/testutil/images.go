// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// GradientImage returns a width×height opaque image in which
// neighbouring pixels differ. Different seeds give different images.
func GradientImage(width, height, seed int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x + seed),
				G: uint8(y*3 + seed),
				B: uint8(x ^ y),
				A: 255,
			})
		}
	}
	return img
}

// GradientPNG returns GradientImage encoded as PNG.
func GradientPNG(t testing.TB, width, height, seed int) []byte {
	t.Helper()
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, GradientImage(width, height, seed)); err != nil {
		t.Fatalf("encoding gradient PNG: %v", err)
	}
	return buffer.Bytes()
}

// ForgedPNG returns a 1×1 PNG whose IHDR claims width×height. The
// pixel data does not match the header, so only the header can be read.
func ForgedPNG(t testing.TB, width, height uint32) []byte {
	t.Helper()
	data := bytes.Clone(GradientPNG(t, 1, 1, 0))
	// Signature (8), IHDR length (4) and type (4) precede the 13-byte
	// IHDR body, which is followed by its CRC over type and body.
	const ihdr = 16
	if string(data[12:ihdr]) != "IHDR" {
		t.Fatalf("unexpected PNG layout: chunk %q", data[12:ihdr])
	}
	binary.BigEndian.PutUint32(data[ihdr:], width)
	binary.BigEndian.PutUint32(data[ihdr+4:], height)
	binary.BigEndian.PutUint32(data[ihdr+13:], crc32.ChecksumIEEE(data[12:ihdr+13]))
	return data
}
