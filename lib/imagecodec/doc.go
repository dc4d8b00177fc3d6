// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package imagecodec encodes stills and frame sequences into renpak
// payloads and decodes them back to RGBA.
//
// A payload is an envelope ("RNPK" magic, version byte, CBOR header)
// followed by one compressed body per frame. The pixel compression is
// delegated to a [Backend]: the libavif backend (built with the
// libavif tag) produces AV1 still bodies, and the always-available
// raw-zstd backend is lossless and serves tests and builds without
// the C library. The envelope records the backend so any decoder can
// open any payload it has a backend for.
//
// Three contracts are enforced here rather than left to backends:
//
//   - Color: every encode carries an explicit [ColorDescriptor] (BT.709
//     primaries, sRGB transfer, BT.709 matrix, full range). A zero
//     descriptor is rejected so a caller cannot fall back to codec
//     defaults by omission.
//   - Padding: frames are edge-padded to multiples of [BlockSize]
//     before encoding and the original size is stored; decode crops
//     back to it.
//   - Star GOP: frame 0 of a sequence is a keyframe and every other
//     frame is a residual against the reconstructed keyframe, so
//     [Decoder.DecodeFrame] reaches any index with two body decodes at
//     most, and one once the keyframe is cached.
//
// A [Decoder] owns its backend decoder state and keyframe cache. It
// must be used by one goroutine at a time; independent Decoders share
// nothing mutable and may run concurrently.
package imagecodec
