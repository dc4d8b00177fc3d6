// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imagecodec

import (
	"image"
)

// BlockSize is the alignment every encoded plane is padded to.
const BlockSize = 8

// MaxDimension bounds each side of an encoded frame. It matches the
// default image size limit of libavif so both backends accept the same
// inputs.
const MaxDimension = 16384

// paddedSize rounds n up to a multiple of BlockSize.
func paddedSize(n int) int {
	return (n + BlockSize - 1) / BlockSize * BlockSize
}

// checkDimensions rejects empty or oversized frames.
func checkDimensions(op string, width, height int) error {
	if width <= 0 || height <= 0 {
		return codecError(ReasonDimensionOverflow, op, "empty frame %dx%d", width, height)
	}
	if width > MaxDimension || height > MaxDimension {
		return codecError(ReasonDimensionOverflow, op,
			"frame %dx%d exceeds %d pixels per side", width, height, MaxDimension)
	}
	return nil
}

// pad returns img extended to block-aligned dimensions by replicating
// the last column and row. Replication keeps the padded region close
// to the boundary pixels so lossy backends do not bleed a hard edge
// back into the visible area. A block-aligned image is copied so the
// caller's buffer is never aliased.
func pad(img *image.NRGBA) *image.NRGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, paddedSize(width), paddedSize(height)))

	for y := 0; y < out.Rect.Dy(); y++ {
		sourceY := min(y, height-1)
		sourceRow := img.Pix[img.PixOffset(bounds.Min.X, bounds.Min.Y+sourceY):]
		destRow := out.Pix[y*out.Stride : y*out.Stride+out.Rect.Dx()*4]
		copy(destRow, sourceRow[:width*4])
		last := sourceRow[(width-1)*4 : width*4]
		for x := width; x < out.Rect.Dx(); x++ {
			copy(destRow[x*4:x*4+4], last)
		}
	}
	return out
}

// crop returns the top-left width×height region of img as a fresh,
// zero-origin image.
func crop(img *image.NRGBA, width, height int) *image.NRGBA {
	if img.Rect.Min == (image.Point{}) && img.Rect.Dx() == width && img.Rect.Dy() == height {
		return img
	}
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		start := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(out.Pix[y*out.Stride:], img.Pix[start:start+width*4])
	}
	return out
}
