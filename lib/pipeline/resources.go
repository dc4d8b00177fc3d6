// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import "errors"

// errSpaceUnknown is returned by freeSpace on platforms without statfs.
var errSpaceUnknown = errors.New("free space query not supported on this platform")

const (
	// workerBaseline is the memory reserved per worker for codec state
	// and still-image buffers outside the sequence budget.
	workerBaseline = 200 << 20

	// minimumBudget is the floor of the derived sequence budget.
	minimumBudget = 1 << 30
)

// sequenceBudget derives the decoded-frame budget from available
// memory: half of it, minus a per-worker baseline, never below
// minimumBudget. A zero available figure means unknown.
func sequenceBudget(available uint64, workers int) int64 {
	budget := int64(available/2) - int64(workers)*workerBaseline
	if budget < minimumBudget {
		return minimumBudget
	}
	return budget
}
