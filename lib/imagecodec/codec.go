// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imagecodec

import (
	"errors"
	"fmt"
	"image"
)

// ErrDecoderClosed is returned by a Decoder after Close.
var ErrDecoderClosed = errors.New("imagecodec: decoder closed")

// Codec encodes images and sequences with one backend and fixed
// parameters. A Codec is immutable and safe for concurrent use; each
// encode call creates its own backend encoder.
type Codec struct {
	backend Backend
	params  Params
	color   ColorDescriptor
}

// New returns a Codec for the named backend. The color descriptor is
// required; pass StandardColor unless the target renderer is known to
// expect something else.
func New(backendName string, params Params, color ColorDescriptor) (*Codec, error) {
	backend, err := Lookup(backendName)
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, codecError(ReasonUnsupportedFormat, "new codec", "%v", err)
	}
	if err := color.Validate(); err != nil {
		return nil, codecError(ReasonColorPolicy, "new codec", "%v", err)
	}
	return &Codec{backend: backend, params: params, color: color}, nil
}

// Backend returns the backend this codec encodes with.
func (c *Codec) Backend() Backend { return c.backend }

// Params returns the encode parameters.
func (c *Codec) Params() Params { return c.params }

// Color returns the color descriptor written into every payload.
func (c *Codec) Color() ColorDescriptor { return c.color }

// EncodeImage encodes a still.
func (c *Codec) EncodeImage(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, codecError(ReasonUnsupportedFormat, "encode image", "nil image")
	}
	return c.encode(PayloadImage, []image.Image{img})
}

// EncodeSequence encodes frames as a star GOP. All frames must share
// the dimensions of frame 0.
func (c *Codec) EncodeSequence(frames []image.Image) ([]byte, error) {
	if len(frames) == 0 {
		return nil, codecError(ReasonFrameMismatch, "encode sequence", "no frames")
	}
	return c.encode(PayloadSequence, frames)
}

func (c *Codec) encode(kind PayloadKind, frames []image.Image) ([]byte, error) {
	op := "encode " + string(kind)

	first := frames[0].Bounds()
	width, height := first.Dx(), first.Dy()
	if err := checkDimensions(op, width, height); err != nil {
		return nil, err
	}
	for index, frame := range frames {
		if frame == nil {
			return nil, codecError(ReasonFrameMismatch, op, "frame %d is nil", index)
		}
		bounds := frame.Bounds()
		if bounds.Dx() != width || bounds.Dy() != height {
			return nil, codecError(ReasonFrameMismatch, op,
				"frame %d is %dx%d, frame 0 is %dx%d", index, bounds.Dx(), bounds.Dy(), width, height)
		}
	}

	encoder, err := c.backend.NewEncoder(c.params, c.color)
	if err != nil {
		return nil, wrapBackend(op, err)
	}
	defer encoder.Close()

	lossless := c.backend.Lossless()
	bodies := make([][]byte, 0, len(frames))
	records := make([]FrameRecord, 0, len(frames))

	key := pad(toNRGBA(frames[0]))
	keyBody, err := encoder.Encode(key)
	if err != nil {
		return nil, wrapBackend(op, err)
	}
	bodies = append(bodies, keyBody)
	records = append(records, FrameRecord{Type: FrameKey})

	if len(frames) > 1 && !lossless {
		key, err = c.reconstructKey(op, keyBody, key.Rect.Dx(), key.Rect.Dy())
		if err != nil {
			return nil, err
		}
	}

	for _, frame := range frames[1:] {
		delta := residual(pad(toNRGBA(frame)), key, lossless)
		body, err := encoder.Encode(delta)
		if err != nil {
			return nil, wrapBackend(op, err)
		}
		bodies = append(bodies, body)
		records = append(records, FrameRecord{Type: FrameDelta})
	}

	info := &Info{
		Version:        EnvelopeVersion,
		Kind:           kind,
		Backend:        c.backend.Name(),
		BackendVersion: c.backend.Version(),
		Lossless:       lossless,
		Width:          width,
		Height:         height,
		PaddedWidth:    paddedSize(width),
		PaddedHeight:   paddedSize(height),
		Color:          c.color,
		GOP:            GOPStar,
		Frames:         records,
	}
	return marshalEnvelope(info, bodies)
}

// reconstructKey decodes the keyframe body exactly as a runtime
// decoder will, so residuals reference what the decoder sees.
func (c *Codec) reconstructKey(op string, body []byte, width, height int) (*image.NRGBA, error) {
	decoder, err := c.backend.NewDecoder()
	if err != nil {
		return nil, wrapBackend(op, err)
	}
	defer decoder.Close()
	key, err := decoder.Decode(body, width, height)
	if err != nil {
		return nil, wrapBackend(op, err)
	}
	return key, nil
}

// Decoder gives random access to the frames of one payload. It holds
// the payload slice without copying; the caller must not modify it
// while the Decoder is open.
type Decoder struct {
	info   *Info
	bodies []byte
	plane  PlaneDecoder

	keyframe    *image.NRGBA
	bodyDecodes int
	closed      bool
}

// Open parses payload and prepares a decoder for its backend.
func Open(payload []byte) (*Decoder, error) {
	info, bodies, err := parseEnvelope(payload)
	if err != nil {
		return nil, err
	}
	backend, err := Lookup(info.Backend)
	if err != nil {
		return nil, err
	}
	plane, err := backend.NewDecoder()
	if err != nil {
		return nil, wrapBackend("open payload", err)
	}
	return &Decoder{info: info, bodies: bodies, plane: plane}, nil
}

// Info returns the payload header. The returned value must not be
// modified.
func (d *Decoder) Info() *Info { return d.info }

// BodyDecodes counts backend decode calls made so far. Decoding any
// frame after the keyframe is cached costs exactly one.
func (d *Decoder) BodyDecodes() int { return d.bodyDecodes }

// DecodeFrame returns frame index cropped to the original dimensions.
// Work is bounded by two body decodes regardless of index.
func (d *Decoder) DecodeFrame(index int) (*image.NRGBA, error) {
	const op = "decode frame"
	if d.closed {
		return nil, ErrDecoderClosed
	}
	if index < 0 || index >= len(d.info.Frames) {
		return nil, codecError(ReasonFrameIndex, op, "frame %d of %d", index, len(d.info.Frames))
	}

	key, err := d.key()
	if err != nil {
		return nil, err
	}
	if index == 0 {
		return crop(key, d.info.Width, d.info.Height), nil
	}

	delta, err := d.decodeBody(index)
	if err != nil {
		return nil, err
	}
	frame := reconstruct(delta, key, d.info.Lossless)
	return crop(frame, d.info.Width, d.info.Height), nil
}

func (d *Decoder) key() (*image.NRGBA, error) {
	if d.keyframe != nil {
		return d.keyframe, nil
	}
	key, err := d.decodeBody(0)
	if err != nil {
		return nil, err
	}
	d.keyframe = key
	return key, nil
}

func (d *Decoder) decodeBody(index int) (*image.NRGBA, error) {
	op := fmt.Sprintf("decode frame %d", index)
	record := d.info.Frames[index]
	body := d.bodies[record.Offset : record.Offset+record.Length]
	d.bodyDecodes++
	plane, err := d.plane.Decode(body, d.info.PaddedWidth, d.info.PaddedHeight)
	if err != nil {
		return nil, codecError(ReasonCorruptPayload, op, "%v", err)
	}
	if plane.Rect.Dx() != d.info.PaddedWidth || plane.Rect.Dy() != d.info.PaddedHeight {
		return nil, codecError(ReasonCorruptPayload, op, "backend returned %dx%d, header says %dx%d",
			plane.Rect.Dx(), plane.Rect.Dy(), d.info.PaddedWidth, d.info.PaddedHeight)
	}
	return toNRGBA(plane), nil
}

// Close releases backend state. Calling Close twice is harmless.
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.keyframe = nil
	return d.plane.Close()
}

// DecodeImage decodes frame 0 of payload. For still payloads this is
// the whole image.
func DecodeImage(payload []byte) (*image.NRGBA, error) {
	decoder, err := Open(payload)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()
	return decoder.DecodeFrame(0)
}
