// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rtabi implements the runtime decoder behind the renpak C
// ABI, in Go so its ownership rules can be tested without cgo.
//
// A host opens a payload and receives an opaque uint64 handle. Every
// decoded frame is written into a buffer obtained from an [Allocator]
// and recorded in the owning context's ledger; the host must hand the
// buffer back through [Table.FreeBuffer]. Releasing twice, releasing a
// buffer this package never issued, and closing a handle with buffers
// still outstanding are reported as distinct [Status] codes rather
// than crashing the host.
//
// Contexts are independent: decoding on one handle never waits for
// another. A single handle admits one decode at a time and reports
// [StatusBusy] to a second concurrent caller instead of blocking the
// host's loader thread.
//
// cmd/librenpak-rt exports this API as C functions.
package rtabi

// ABIVersion is bumped on any incompatible change to the exported
// functions or structs.
const ABIVersion = 1
