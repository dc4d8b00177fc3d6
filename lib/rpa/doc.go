// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpa reads and writes Ren'Py RPA-3.0 archives.
//
// An RPA-3.0 file has three regions:
//
//   - A 40-byte header: "RPA-3.0 " followed by the index offset as 16
//     lowercase hex digits, a space, the obfuscation key as 8 hex
//     digits, and a newline. The remainder of the 40 bytes is padding.
//   - The data region: entry bytes laid out back to back.
//   - The index: a zlib stream running from the index offset to the end
//     of the file, holding a pickled dict that maps each entry name to
//     a list whose first element is (offset ^ key, length ^ key) or
//     (offset ^ key, length ^ key, prefix).
//
// The engine's own loader reads this layout, so the byte format is a
// fixed external contract. Obfuscation lives in obfuscate.go, pickle
// handling in index.go; [Reader] and [Writer] never XOR inline.
//
// A [Reader] is safe for concurrent use: entry content is read with
// ReadAt and never moves a shared file position. A [Writer] is owned
// by a single goroutine and writes to a temporary file beside the
// destination, renaming it into place only when [Writer.Finish]
// succeeds, so an interrupted build never damages an existing archive.
package rpa
