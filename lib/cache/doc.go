// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache is the content-addressed store of encoded payloads
// that makes builds resumable.
//
// A cache key is a keyed BLAKE3 hash over the source content hash and
// the canonical CBOR encoding of a [Fingerprint] (backend, backend
// version, payload kind, quality, speed, color descriptor, envelope
// version). Entry names never participate: a renamed asset with
// identical bytes hits, and any parameter change misses.
//
// Entries live at <dir>/<first two hex digits>/<64 hex digits>.rpkc.
// Each file is self-describing: it repeats the key, content hash and
// fingerprint it was stored under, and a checksum of the payload. Get
// verifies all of them, so a corrupt or colliding entry is reported as
// a miss and the caller re-encodes. Entries are immutable once
// written; Put publishes with rename so readers never see a partial
// file.
package cache
