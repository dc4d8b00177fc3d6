// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imagecodec

import (
	"bytes"
	"image"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DecodeSource decodes a still image in any registered container
// format (PNG, JPEG, GIF, WebP, BMP) to non-premultiplied RGBA. The
// header dimensions are checked before any pixels are allocated.
func DecodeSource(data []byte) (*image.NRGBA, error) {
	if _, _, err := SourceConfig(data); err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, codecError(ReasonUnsupportedFormat, "decode source", "%v", err)
	}
	bounds := img.Bounds()
	if err := checkDimensions("decode source "+format, bounds.Dx(), bounds.Dy()); err != nil {
		return nil, err
	}
	return toNRGBA(img), nil
}

// SourceConfig reads and checks the dimensions of a still without
// decoding its pixels.
func SourceConfig(data []byte) (width, height int, err error) {
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, codecError(ReasonUnsupportedFormat, "decode source config", "%v", err)
	}
	if err := checkDimensions("decode source config "+format, config.Width, config.Height); err != nil {
		return 0, 0, err
	}
	return config.Width, config.Height, nil
}

// SequenceConfig reads the dimensions shared by every member of a
// numbered run. Members that disagree fail with ReasonFrameMismatch
// before any frame is decoded.
func SequenceConfig(members [][]byte) (width, height int, err error) {
	if len(members) == 0 {
		return 0, 0, codecError(ReasonFrameMismatch, "sequence config", "no frames")
	}
	for index, data := range members {
		w, h, err := SourceConfig(data)
		if err != nil {
			return 0, 0, err
		}
		if index == 0 {
			width, height = w, h
			continue
		}
		if w != width || h != height {
			return 0, 0, codecError(ReasonFrameMismatch, "sequence config",
				"frame %d is %dx%d, frame 0 is %dx%d", index, w, h, width, height)
		}
	}
	return width, height, nil
}

// Animation is a parsed GIF whose frames are still paletted. Parsing
// costs about one byte per pixel per frame; compositing to RGBA costs
// four, so callers can size memory reservations from FrameCount before
// calling Composite.
type Animation struct {
	gif    *gif.GIF
	screen image.Rectangle
}

// ParseAnimation parses a GIF without compositing its frames.
// The logical screen is checked before any frame is read; the gif
// decoder rejects frames that fall outside it.
func ParseAnimation(data []byte) (*Animation, error) {
	config, err := gif.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, codecError(ReasonUnsupportedFormat, "decode animation", "%v", err)
	}
	if err := checkDimensions("decode animation", config.Width, config.Height); err != nil {
		return nil, err
	}
	parsed, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, codecError(ReasonUnsupportedFormat, "decode animation", "%v", err)
	}
	if len(parsed.Image) == 0 {
		return nil, codecError(ReasonUnsupportedFormat, "decode animation", "no frames")
	}
	screen := image.Rect(0, 0, config.Width, config.Height)
	return &Animation{gif: parsed, screen: screen}, nil
}

// Width is the logical screen width.
func (a *Animation) Width() int { return a.screen.Dx() }

// Height is the logical screen height.
func (a *Animation) Height() int { return a.screen.Dy() }

// FrameCount is the number of frames.
func (a *Animation) FrameCount() int { return len(a.gif.Image) }

// Composite renders every frame onto the logical screen according to
// its disposal method and returns full-screen RGBA frames.
func (a *Animation) Composite() []*image.NRGBA {
	canvas := image.NewNRGBA(a.screen)
	frames := make([]*image.NRGBA, 0, len(a.gif.Image))
	for index, paletted := range a.gif.Image {
		disposal := byte(0)
		if index < len(a.gif.Disposal) {
			disposal = a.gif.Disposal[index]
		}

		var previous *image.NRGBA
		if disposal == gif.DisposalPrevious {
			previous = cloneNRGBA(canvas)
		}

		draw.Draw(canvas, paletted.Bounds(), paletted, paletted.Bounds().Min, draw.Over)
		frames = append(frames, cloneNRGBA(canvas))

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, paletted.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}
	return frames
}

// DecodeAnimation parses and composites a GIF in one step. A
// single-frame GIF yields one frame.
func DecodeAnimation(data []byte) ([]*image.NRGBA, error) {
	animation, err := ParseAnimation(data)
	if err != nil {
		return nil, err
	}
	return animation.Composite(), nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		return nrgba
	}
	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Rect, img, bounds.Min, draw.Src)
	return out
}

func cloneNRGBA(img *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(img.Rect)
	copy(out.Pix, img.Pix)
	return out
}
