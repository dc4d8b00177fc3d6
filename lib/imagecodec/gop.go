// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imagecodec

import "image"

// Residuals are computed against the reconstructed keyframe, not the
// source keyframe, so encoder and decoder agree on the reference even
// when the backend is lossy.

// residual returns the delta plane for frame against key. Both planes
// have identical bounds and zero origin.
func residual(frame, key *image.NRGBA, lossless bool) *image.NRGBA {
	out := image.NewNRGBA(frame.Rect)
	if lossless {
		for i := range out.Pix {
			out.Pix[i] = frame.Pix[i] - key.Pix[i]
		}
		return out
	}
	for i := range out.Pix {
		difference := (int(frame.Pix[i]) - int(key.Pix[i])) >> 1
		out.Pix[i] = clampByte(difference + 128)
	}
	return out
}

// reconstruct inverts residual.
func reconstruct(delta, key *image.NRGBA, lossless bool) *image.NRGBA {
	out := image.NewNRGBA(delta.Rect)
	if lossless {
		for i := range out.Pix {
			out.Pix[i] = key.Pix[i] + delta.Pix[i]
		}
		return out
	}
	for i := range out.Pix {
		out.Pix[i] = clampByte(int(key.Pix[i]) + 2*(int(delta.Pix[i])-128))
	}
	return out
}

func clampByte(value int) uint8 {
	switch {
	case value < 0:
		return 0
	case value > 255:
		return 255
	default:
		return uint8(value)
	}
}
