// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imagecodec

import (
	"image"
	"image/color"
	"testing"
)

// gradient returns a deterministic image whose every pixel differs
// from its neighbours, with the given seed mixed in so frames differ.
func gradient(width, height, seed int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x*7 + seed),
				G: uint8(y*5 + seed*3),
				B: uint8((x + y) * 3),
				A: uint8(255 - (x+y+seed)%64),
			})
		}
	}
	return img
}

func rawCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := New(RawBackendName, DefaultParams, StandardColor)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return codec
}

func assertSameImage(t *testing.T, got, want *image.NRGBA) {
	t.Helper()
	if got.Rect.Dx() != want.Rect.Dx() || got.Rect.Dy() != want.Rect.Dy() {
		t.Fatalf("size = %dx%d, want %dx%d", got.Rect.Dx(), got.Rect.Dy(), want.Rect.Dx(), want.Rect.Dy())
	}
	for y := 0; y < want.Rect.Dy(); y++ {
		for x := 0; x < want.Rect.Dx(); x++ {
			g := got.NRGBAAt(got.Rect.Min.X+x, got.Rect.Min.Y+y)
			w := want.NRGBAAt(want.Rect.Min.X+x, want.Rect.Min.Y+y)
			if g != w {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, g, w)
			}
		}
	}
}
