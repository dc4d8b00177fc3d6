// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"testing"
)

// testGIF encodes a frames-long 12×10 animation whose frames cover the
// whole screen.
func testGIF(t *testing.T, frames int) []byte {
	t.Helper()
	animation := &gif.GIF{Config: image.Config{Width: 12, Height: 10, ColorModel: color.Palette(palette.Plan9)}}
	for frame := range frames {
		paletted := image.NewPaletted(image.Rect(0, 0, 12, 10), palette.Plan9)
		for y := range 10 {
			for x := range 12 {
				paletted.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 25), B: uint8(frame * 60), A: 255})
			}
		}
		animation.Image = append(animation.Image, paletted)
		animation.Delay = append(animation.Delay, 10)
		animation.Disposal = append(animation.Disposal, gif.DisposalNone)
	}
	var buffer bytes.Buffer
	if err := gif.EncodeAll(&buffer, animation); err != nil {
		t.Fatalf("encoding GIF: %v", err)
	}
	return buffer.Bytes()
}
