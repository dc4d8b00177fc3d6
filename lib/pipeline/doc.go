// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline converts one RPA archive into another, re-encoding
// eligible images and frame sequences in parallel.
//
// [Build] runs in four phases:
//
//  1. Plan. Every input entry gets a slot in physical offset order.
//     The classifier decides which slots are passthroughs, stills,
//     animations, or grouped sequences. A recoded target that would
//     collide with an existing name falls back to passthrough.
//  2. Dispatch. Recode slots are queued to a fixed pool of workers.
//     Each job walks Queued, CacheCheck, then either CacheHit or
//     Decoding, Encoding and CacheStore, and reaches Ready. Identical
//     cache keys within one build are coalesced so each distinct
//     source is encoded once.
//  3. Write. A single writer walks the plan in order, streaming
//     passthrough entries from the input file and waiting on each
//     recode slot's handoff channel. Completion order never affects
//     output order.
//  4. Commit. The manifest is built from the recode results, embedded
//     as the last entry, and the temporary output is renamed over the
//     destination. Any failure or cancellation before the rename
//     removes the temporary file and leaves the destination untouched.
//
// Per-asset codec failures degrade the asset to passthrough unless
// Options.FailFast is set. I/O and format failures abort the build.
package pipeline
