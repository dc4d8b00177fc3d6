// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"fmt"

	"github.com/bureau-foundation/renpak/lib/codec"
	"github.com/bureau-foundation/renpak/lib/imagecodec"
)

// Fingerprint is every encoder input other than the source bytes that
// can change the output payload.
type Fingerprint struct {
	Backend         string                     `cbor:"backend"`
	BackendVersion  string                     `cbor:"backend_version"`
	Kind            imagecodec.PayloadKind     `cbor:"kind"`
	Quality         int                        `cbor:"quality"`
	Speed           int                        `cbor:"speed"`
	Color           imagecodec.ColorDescriptor `cbor:"color"`
	EnvelopeVersion int                        `cbor:"envelope_version"`
}

// FingerprintOf describes what c produces for payloads of kind.
func FingerprintOf(c *imagecodec.Codec, kind imagecodec.PayloadKind) Fingerprint {
	params := c.Params()
	return Fingerprint{
		Backend:         c.Backend().Name(),
		BackendVersion:  c.Backend().Version(),
		Kind:            kind,
		Quality:         params.Quality,
		Speed:           params.Speed,
		Color:           c.Color(),
		EnvelopeVersion: imagecodec.EnvelopeVersion,
	}
}

// Key derives the cache key for content encoded under fingerprint.
// Deterministic CBOR makes the encoding canonical, so equal
// fingerprints always hash equally.
func Key(content Hash, fingerprint Fingerprint) (Hash, error) {
	encoded, err := codec.Marshal(fingerprint)
	if err != nil {
		return Hash{}, fmt.Errorf("encoding cache fingerprint: %w", err)
	}
	hasher := newHasher(keyDomainKey)
	hasher.Write(content[:])
	hasher.Write(encoded)
	return sum(hasher), nil
}
