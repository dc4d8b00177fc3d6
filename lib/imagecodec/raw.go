// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imagecodec

import (
	"fmt"
	"image"

	"github.com/klauspost/compress/zstd"
)

// RawBackendName is the name of the lossless zstd backend.
const RawBackendName = "raw-zstd"

// rawBackend stores planes as filtered RGBA compressed with zstd.
// Each row is delta-coded against the row above before compression,
// which roughly halves the output for photographic content. Quality is
// ignored; speed selects the zstd level.
type rawBackend struct{}

func init() { register(rawBackend{}) }

func (rawBackend) Name() string    { return RawBackendName }
func (rawBackend) Version() string { return "1" }
func (rawBackend) Lossless() bool  { return true }

// rawLevel maps speed 0-10 onto zstd's four presets.
func rawLevel(speed int) zstd.EncoderLevel {
	switch {
	case speed <= 2:
		return zstd.SpeedBestCompression
	case speed <= 5:
		return zstd.SpeedBetterCompression
	case speed <= 8:
		return zstd.SpeedDefault
	default:
		return zstd.SpeedFastest
	}
}

func (rawBackend) NewEncoder(params Params, _ ColorDescriptor) (PlaneEncoder, error) {
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(rawLevel(params.Speed)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	return &rawEncoder{encoder: encoder}, nil
}

func (rawBackend) NewDecoder() (PlaneDecoder, error) {
	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(4*MaxDimension*MaxDimension),
	)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &rawDecoder{decoder: decoder}, nil
}

type rawEncoder struct {
	encoder *zstd.Encoder
	scratch []byte
}

func (e *rawEncoder) Encode(plane *image.NRGBA) ([]byte, error) {
	width, height := plane.Rect.Dx(), plane.Rect.Dy()
	rowBytes := width * 4
	if cap(e.scratch) < rowBytes*height {
		e.scratch = make([]byte, rowBytes*height)
	}
	filtered := e.scratch[:rowBytes*height]
	for y := 0; y < height; y++ {
		row := plane.Pix[y*plane.Stride : y*plane.Stride+rowBytes]
		dest := filtered[y*rowBytes : (y+1)*rowBytes]
		if y == 0 {
			copy(dest, row)
			continue
		}
		above := plane.Pix[(y-1)*plane.Stride : (y-1)*plane.Stride+rowBytes]
		for i := range dest {
			dest[i] = row[i] - above[i]
		}
	}
	return e.encoder.EncodeAll(filtered, nil), nil
}

func (e *rawEncoder) Close() error { return e.encoder.Close() }

type rawDecoder struct {
	decoder *zstd.Decoder
}

func (d *rawDecoder) Decode(body []byte, width, height int) (*image.NRGBA, error) {
	filtered, err := d.decoder.DecodeAll(body, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	rowBytes := width * 4
	if len(filtered) != rowBytes*height {
		return nil, fmt.Errorf("decoded %d bytes, want %d for %dx%d", len(filtered), rowBytes*height, width, height)
	}
	plane := image.NewNRGBA(image.Rect(0, 0, width, height))
	copy(plane.Pix, filtered[:rowBytes])
	for y := 1; y < height; y++ {
		row := plane.Pix[y*rowBytes : (y+1)*rowBytes]
		above := plane.Pix[(y-1)*rowBytes : y*rowBytes]
		source := filtered[y*rowBytes : (y+1)*rowBytes]
		for i := range row {
			row[i] = source[i] + above[i]
		}
	}
	return plane, nil
}

func (d *rawDecoder) Close() error {
	d.decoder.Close()
	return nil
}
