// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets time-dependent code run against a fake clock in
// tests.
//
// Progress reporting and build timing take a [Clock] instead of
// calling the time package directly. Production passes [Real]; tests
// pass [Fake] and move time with [FakeClock.Advance]:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	reporter := progress.New(fake, ...)
//	fake.WaitForTickers(1)
//	fake.Advance(time.Second)
package clock
