// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imagecodec

import "fmt"

// Params are the user-facing encode settings.
type Params struct {
	// Quality is 0 (smallest) to 100 (lossless-equivalent).
	Quality int `cbor:"quality"`

	// Speed is 0 (slowest, smallest) to 10 (fastest).
	Speed int `cbor:"speed"`
}

// DefaultParams match the reference builder's defaults.
var DefaultParams = Params{Quality: 60, Speed: 8}

// Validate rejects out-of-range settings.
func (p Params) Validate() error {
	if p.Quality < 0 || p.Quality > 100 {
		return fmt.Errorf("quality %d outside 0-100", p.Quality)
	}
	if p.Speed < 0 || p.Speed > 10 {
		return fmt.Errorf("speed %d outside 0-10", p.Speed)
	}
	return nil
}

// ColorDescriptor is the ITU-T H.273 color description written into
// every encoded frame.
type ColorDescriptor struct {
	Primaries uint16 `cbor:"primaries"`
	Transfer  uint16 `cbor:"transfer"`
	Matrix    uint16 `cbor:"matrix"`
	FullRange bool   `cbor:"full_range"`
}

// H.273 code points used by StandardColor.
const (
	PrimariesBT709 = 1
	TransferSRGB   = 13
	MatrixBT709    = 1
)

// StandardColor is the descriptor the engine's renderer expects: BT.709
// primaries, sRGB transfer, BT.709 matrix, full range. Leaving any of
// these to codec defaults yields washed-out or shifted colors.
var StandardColor = ColorDescriptor{
	Primaries: PrimariesBT709,
	Transfer:  TransferSRGB,
	Matrix:    MatrixBT709,
	FullRange: true,
}

// Validate rejects descriptors with unspecified (0 or 2) code points.
func (c ColorDescriptor) Validate() error {
	for _, field := range []struct {
		name  string
		value uint16
	}{
		{"primaries", c.Primaries},
		{"transfer", c.Transfer},
		{"matrix", c.Matrix},
	} {
		if field.value == 0 || field.value == 2 {
			return fmt.Errorf("color %s is unspecified (%d)", field.name, field.value)
		}
	}
	return nil
}
