// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imagecodec

import (
	"fmt"
	"image"
	"sort"
)

// Backend compresses single block-aligned RGBA planes. Backends know
// nothing about envelopes, padding, or GOP structure.
type Backend interface {
	// Name is recorded in every payload and selects the backend at
	// decode time.
	Name() string

	// Version changes whenever the backend's output bytes for the same
	// input and parameters may change. It participates in cache keys.
	Version() string

	// Lossless reports whether Decode(Encode(p)) == p for every plane.
	Lossless() bool

	NewEncoder(params Params, color ColorDescriptor) (PlaneEncoder, error)
	NewDecoder() (PlaneDecoder, error)
}

// PlaneEncoder encodes planes with fixed parameters. Not safe for
// concurrent use.
type PlaneEncoder interface {
	Encode(plane *image.NRGBA) ([]byte, error)
	Close() error
}

// PlaneDecoder decodes bodies produced by the matching PlaneEncoder.
// Not safe for concurrent use.
type PlaneDecoder interface {
	Decode(body []byte, width, height int) (*image.NRGBA, error)
	Close() error
}

// backends is populated from init functions only and read-only
// afterwards, so lookups need no lock.
var backends = map[string]Backend{}

// register adds a backend at package initialization.
func register(backend Backend) {
	if _, exists := backends[backend.Name()]; exists {
		panic(fmt.Sprintf("imagecodec: backend %q registered twice", backend.Name()))
	}
	backends[backend.Name()] = backend
}

// Lookup returns the backend registered under name.
func Lookup(name string) (Backend, error) {
	backend, ok := backends[name]
	if !ok {
		return nil, codecError(ReasonUnsupportedFormat, "lookup backend",
			"backend %q is not available in this build (have %v)", name, Backends())
	}
	return backend, nil
}

// Backends lists registered backend names in sorted order.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultBackend returns the preferred backend name for new builds:
// the AV1 backend when compiled in, otherwise raw-zstd.
func DefaultBackend() string {
	if _, ok := backends[AVIFBackendName]; ok {
		return AVIFBackendName
	}
	return RawBackendName
}

// AVIFBackendName is the name of the libavif backend. It is declared
// unconditionally so callers can refer to it in builds without cgo.
const AVIFBackendName = "avif"
