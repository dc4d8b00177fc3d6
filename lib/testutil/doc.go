// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by renpak's tests.
//
// [RequireReceive] and [RequireClosed] bound channel waits with a
// wall-clock timeout so a deadlocked test fails instead of hanging.
// They are the only real-clock waits in the test suite.
//
// [GradientImage] and [GradientPNG] produce deterministic pictures
// whose pixels all differ, which makes padding and crop mistakes
// visible. [Logger] routes slog output to t.Log so failing tests show
// what the code under test reported.
//
// All helpers call t.Fatalf on failure.
package testutil
