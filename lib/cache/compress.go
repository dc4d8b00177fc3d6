// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how an entry body is stored. The string form
// is what entry headers record.
type Compression string

const (
	// CompressionNone stores the payload as is. AV1 bodies are already
	// entropy coded and land here.
	CompressionNone Compression = "none"

	// CompressionLZ4 is LZ4 block mode, for payloads that shrink a
	// little.
	CompressionLZ4 Compression = "lz4"

	// CompressionZstd is zstd at the default level, for payloads that
	// shrink well.
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates a compression name from an entry header.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case CompressionNone, CompressionLZ4, CompressionZstd:
		return Compression(name), nil
	default:
		return "", fmt.Errorf("unknown cache compression %q", name)
	}
}

// zstdEncoder and zstdDecoder are shared; both are safe for concurrent
// use through EncodeAll and DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("cache: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("cache: zstd decoder initialization failed: " + err.Error())
	}
}

// errIncompressible means the compressed form was not smaller.
var errIncompressible = errors.New("payload is incompressible")

// compressAuto probes payload with zstd and picks the cheapest
// representation: zstd at 1.5x or better, LZ4 at 1.1x or better,
// otherwise stored.
func compressAuto(payload []byte) ([]byte, Compression) {
	if len(payload) == 0 {
		return payload, CompressionNone
	}
	probe := zstdEncoder.EncodeAll(payload, nil)
	ratio := float64(len(payload)) / float64(len(probe))
	switch {
	case ratio >= 1.5:
		return probe, CompressionZstd
	case ratio >= 1.1:
		if compressed, err := compressLZ4(payload); err == nil {
			return compressed, CompressionLZ4
		}
	}
	return payload, CompressionNone
}

// compress applies a specific algorithm.
func compress(payload []byte, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return payload, nil
	case CompressionLZ4:
		return compressLZ4(payload)
	case CompressionZstd:
		return zstdEncoder.EncodeAll(payload, nil), nil
	default:
		return nil, fmt.Errorf("unsupported cache compression %q", compression)
	}
}

// decompress inverts compress. size is the recorded payload length and
// is verified.
func decompress(body []byte, compression Compression, size int) ([]byte, error) {
	switch compression {
	case CompressionNone:
		if len(body) != size {
			return nil, fmt.Errorf("stored body is %d bytes, header says %d", len(body), size)
		}
		return body, nil

	case CompressionLZ4:
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(body, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return destination, nil

	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(body, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), size)
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unsupported cache compression %q", compression)
	}
}

func compressLZ4(payload []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(payload)))
	written, err := lz4.CompressBlock(payload, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock reports 0 for incompressible input.
	if written == 0 || written >= len(payload) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}
