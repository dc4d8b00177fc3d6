// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides renpak's standard CBOR encoding configuration.
//
// renpak uses two serialization formats with a clear boundary:
//
//   - JSON for anything the game runtime or a person reads: the
//     embedded manifest and CLI --json output.
//   - CBOR for internal binary records: recoded payload headers, cache
//     entry headers, and the parameter fingerprint hashed into cache
//     keys.
//
// Every package encodes CBOR through this one configuration so that the
// same logical value always produces the same bytes:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// # Struct Tag Rules
//
// Types that are only ever CBOR use `cbor` tags. Types that are also
// written as JSON use `json` tags, which fxamacker/cbor reads as a
// fallback. Never put both tags on one field.
package codec
