// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imagecodec

import (
	"bytes"
	"encoding/binary"

	"github.com/bureau-foundation/renpak/lib/codec"
)

// EnvelopeVersion is the payload layout version. It participates in
// cache keys so a layout change invalidates every cached payload.
const EnvelopeVersion = 1

var envelopeMagic = [4]byte{'R', 'N', 'P', 'K'}

// envelopePrefixSize is magic, version byte, and header length.
const envelopePrefixSize = 4 + 1 + 4

// maxHeaderSize bounds the CBOR header so a corrupt length cannot
// trigger a huge allocation.
const maxHeaderSize = 16 << 20

// PayloadKind distinguishes stills from sequences.
type PayloadKind string

const (
	PayloadImage    PayloadKind = "image"
	PayloadSequence PayloadKind = "sequence"
)

// FrameType is the role of a frame body in the GOP.
type FrameType string

const (
	FrameKey   FrameType = "key"
	FrameDelta FrameType = "delta"
)

// GOPStar is the only GOP topology this package writes or reads.
const GOPStar = "star"

// FrameRecord locates one frame body relative to the end of the header.
type FrameRecord struct {
	Offset uint64    `cbor:"offset"`
	Length uint64    `cbor:"length"`
	Type   FrameType `cbor:"type"`
}

// Info describes a payload. Width and Height are the original
// dimensions; PaddedWidth and PaddedHeight are what the backend saw.
type Info struct {
	Version        int             `cbor:"version"`
	Kind           PayloadKind     `cbor:"kind"`
	Backend        string          `cbor:"backend"`
	BackendVersion string          `cbor:"backend_version"`
	Lossless       bool            `cbor:"lossless"`
	Width          int             `cbor:"width"`
	Height         int             `cbor:"height"`
	PaddedWidth    int             `cbor:"padded_width"`
	PaddedHeight   int             `cbor:"padded_height"`
	Color          ColorDescriptor `cbor:"color"`
	GOP            string          `cbor:"gop"`
	Frames         []FrameRecord   `cbor:"frames"`
}

// FrameCount is the number of frames in the payload.
func (i *Info) FrameCount() int { return len(i.Frames) }

// marshalEnvelope assembles a payload from its header and bodies,
// filling in frame offsets.
func marshalEnvelope(info *Info, bodies [][]byte) ([]byte, error) {
	var offset uint64
	for index, body := range bodies {
		info.Frames[index].Offset = offset
		info.Frames[index].Length = uint64(len(body))
		offset += uint64(len(body))
	}

	header, err := codec.Marshal(info)
	if err != nil {
		return nil, codecError(ReasonBackend, "marshal envelope", "%v", err)
	}

	var buffer bytes.Buffer
	buffer.Grow(envelopePrefixSize + len(header) + int(offset))
	buffer.Write(envelopeMagic[:])
	buffer.WriteByte(EnvelopeVersion)
	buffer.Write(binary.BigEndian.AppendUint32(nil, uint32(len(header))))
	buffer.Write(header)
	for _, body := range bodies {
		buffer.Write(body)
	}
	return buffer.Bytes(), nil
}

// parseEnvelope validates a payload and returns its header and the
// region holding the frame bodies.
func parseEnvelope(payload []byte) (*Info, []byte, error) {
	const op = "parse envelope"
	if len(payload) < envelopePrefixSize || !bytes.Equal(payload[:4], envelopeMagic[:]) {
		return nil, nil, codecError(ReasonCorruptPayload, op, "missing RNPK magic")
	}
	if payload[4] != EnvelopeVersion {
		return nil, nil, codecError(ReasonUnsupportedFormat, op,
			"envelope version %d, this build reads %d", payload[4], EnvelopeVersion)
	}
	headerLength := binary.BigEndian.Uint32(payload[5:envelopePrefixSize])
	if headerLength > maxHeaderSize || uint64(headerLength) > uint64(len(payload)-envelopePrefixSize) {
		return nil, nil, codecError(ReasonCorruptPayload, op, "header length %d exceeds payload", headerLength)
	}
	headerEnd := envelopePrefixSize + int(headerLength)

	var info Info
	if err := codec.Unmarshal(payload[envelopePrefixSize:headerEnd], &info); err != nil {
		return nil, nil, codecError(ReasonCorruptPayload, op, "header: %v", err)
	}
	if err := validateInfo(&info, uint64(len(payload)-headerEnd)); err != nil {
		return nil, nil, err
	}
	return &info, payload[headerEnd:], nil
}

func validateInfo(info *Info, bodyBytes uint64) error {
	const op = "parse envelope"
	if info.Version != EnvelopeVersion {
		return codecError(ReasonUnsupportedFormat, op, "header version %d", info.Version)
	}
	if info.Kind != PayloadImage && info.Kind != PayloadSequence {
		return codecError(ReasonUnsupportedFormat, op, "unknown payload kind %q", info.Kind)
	}
	if info.GOP != GOPStar {
		return codecError(ReasonUnsupportedFormat, op, "unsupported GOP %q", info.GOP)
	}
	if err := checkDimensions(op, info.Width, info.Height); err != nil {
		return err
	}
	if info.PaddedWidth != paddedSize(info.Width) || info.PaddedHeight != paddedSize(info.Height) {
		return codecError(ReasonCorruptPayload, op, "padded size %dx%d does not match %dx%d",
			info.PaddedWidth, info.PaddedHeight, info.Width, info.Height)
	}
	if err := info.Color.Validate(); err != nil {
		return codecError(ReasonColorPolicy, op, "%v", err)
	}
	if len(info.Frames) == 0 {
		return codecError(ReasonCorruptPayload, op, "no frames")
	}
	if info.Kind == PayloadImage && len(info.Frames) != 1 {
		return codecError(ReasonCorruptPayload, op, "image payload with %d frames", len(info.Frames))
	}
	for index, frame := range info.Frames {
		wantType := FrameDelta
		if index == 0 {
			wantType = FrameKey
		}
		if frame.Type != wantType {
			return codecError(ReasonCorruptPayload, op, "frame %d has type %q, want %q", index, frame.Type, wantType)
		}
		if frame.Offset > bodyBytes || frame.Length > bodyBytes-frame.Offset {
			return codecError(ReasonCorruptPayload, op, "frame %d body [%d,+%d) outside %d body bytes",
				index, frame.Offset, frame.Length, bodyBytes)
		}
	}
	return nil
}

// ReadInfo parses the header of a payload without decoding any frame.
func ReadInfo(payload []byte) (*Info, error) {
	info, _, err := parseEnvelope(payload)
	return info, err
}

// IsPayload reports whether data starts with the envelope magic.
func IsPayload(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], envelopeMagic[:])
}

// HeaderDiagnostic returns the payload's CBOR header in diagnostic
// notation, for inspection tools.
func HeaderDiagnostic(payload []byte) (string, error) {
	if _, _, err := parseEnvelope(payload); err != nil {
		return "", err
	}
	headerLength := binary.BigEndian.Uint32(payload[5:envelopePrefixSize])
	return codec.Diagnose(payload[envelopePrefixSize : envelopePrefixSize+int(headerLength)])
}
