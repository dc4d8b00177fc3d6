// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"time"

	"github.com/bureau-foundation/renpak/lib/cache"
	"github.com/bureau-foundation/renpak/lib/manifest"
)

// Report summarizes a committed build.
type Report struct {
	Input  string
	Output string

	// Entries counts output archive entries including the manifest.
	Entries int

	// Recoded counts manifest results produced by this build; Carried
	// counts those preserved from an embedded manifest in the input.
	Recoded int
	Carried int

	// Passthrough counts entries copied unchanged, degraded sources
	// included.
	Passthrough int

	Degraded []Degradation

	// CacheHits counts recodes served from the cache or from a
	// concurrent identical encode. Encodes counts codec invocations.
	CacheHits int
	Encodes   int

	// BytesIn and BytesOut are the input and output archive sizes.
	BytesIn  int64
	BytesOut int64

	Duration time.Duration
	Manifest *manifest.Manifest

	// Cache is the cache's cumulative statistics, zero without a
	// cache.
	Cache cache.Stats
}

// SavedPercent is the size reduction relative to the input, negative
// when the output grew.
func (r *Report) SavedPercent() float64 {
	if r.BytesIn == 0 {
		return 0
	}
	return 100 * float64(r.BytesIn-r.BytesOut) / float64(r.BytesIn)
}
