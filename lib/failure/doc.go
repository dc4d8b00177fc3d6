// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package failure defines the error taxonomy shared by every renpak
// component.
//
// Errors that cross a component boundary are wrapped in an [Error]
// carrying a [Class]. The class decides how the failure is handled:
//
//   - [Format]: the input archive or manifest is malformed. The build
//     aborts before any output is committed.
//   - [Codec]: one asset could not be decoded or encoded. The pipeline
//     degrades the asset to passthrough unless fail-fast is enabled.
//   - [IO]: reading or writing a file failed. The build aborts and
//     removes its temporary output.
//   - [Cache]: a cache entry is unreadable or mismatched. Always
//     recovered as a cache miss, never fatal.
//   - [FFIContract]: a caller of the runtime C ABI broke the buffer or
//     handle contract. Reported as a status code, never a crash.
//
// [ExitCode] maps a returned error to the process exit code used by
// cmd/renpak so scripts can distinguish a corrupt input from a full
// disk without parsing messages.
package failure
