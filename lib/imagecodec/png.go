// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imagecodec

import (
	"bytes"
	"image"
	"image/png"
)

var pngEncoder = png.Encoder{CompressionLevel: png.BestSpeed}

// EncodePNG serializes a decoded frame as PNG for consumers that can
// only load standard image files.
func EncodePNG(img *image.NRGBA) ([]byte, error) {
	var buffer bytes.Buffer
	if err := pngEncoder.Encode(&buffer, img); err != nil {
		return nil, codecError(ReasonBackend, "encode png", "%v", err)
	}
	return buffer.Bytes(), nil
}
