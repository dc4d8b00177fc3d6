// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/bureau-foundation/renpak/lib/cache"
	"github.com/bureau-foundation/renpak/lib/classify"
	"github.com/bureau-foundation/renpak/lib/clock"
	"github.com/bureau-foundation/renpak/lib/imagecodec"
	"github.com/bureau-foundation/renpak/lib/rpa"
)

// DefaultProgressInterval bounds how often Options.Progress is called.
const DefaultProgressInterval = 250 * time.Millisecond

// Options configures one Build.
type Options struct {
	// Input and Output are archive paths. They may be equal; the
	// output is staged beside the destination and renamed into place.
	Input  string
	Output string

	// Backend names the imagecodec backend. Empty selects
	// imagecodec.DefaultBackend().
	Backend string

	// Params are the encoder quality and speed.
	Params imagecodec.Params

	// Color is written into every payload. The zero value selects
	// imagecodec.StandardColor.
	Color imagecodec.ColorDescriptor

	// Workers is the encode pool size. 0 means one per CPU.
	Workers int

	// Rules are the classifier exclusions.
	Rules classify.Rules

	// SequenceThreshold is the minimum numbered run grouped into a
	// sequence. 0 selects classify.DefaultSequenceThreshold; values
	// below 0 disable grouping.
	SequenceThreshold int

	// FailFast aborts the build on the first codec failure. Without
	// it, the failing asset is written unchanged and reported as
	// degraded.
	FailFast bool

	// Cache stores encoded payloads across builds. Nil disables
	// caching.
	Cache *cache.Cache

	// Key is the obfuscation key of the output archive. Nil reuses the
	// input archive's key, which keeps repeated builds byte-identical.
	Key *rpa.Key

	// ManifestSidecar also writes the manifest to
	// Output + ".manifest.json" after the archive is committed.
	ManifestSidecar bool

	// MemoryBudget caps the bytes of decoded frames held by sequence
	// jobs at once. 0 derives it from available memory.
	MemoryBudget int64

	// SkipSpaceCheck disables the free-space preflight.
	SkipSpaceCheck bool

	// Progress, when set, receives snapshots at most once per
	// ProgressInterval and once more when the build ends.
	Progress         func(Snapshot)
	ProgressInterval time.Duration

	// Metrics, when set, records per-entry outcomes.
	Metrics *Metrics

	Logger *slog.Logger
	Clock  clock.Clock
}

// withDefaults fills zero fields and validates the rest.
func (o Options) withDefaults() (Options, error) {
	if o.Input == "" || o.Output == "" {
		return o, errors.New("input and output paths are required")
	}
	if err := o.Params.Validate(); err != nil {
		return o, err
	}
	if o.Backend == "" {
		o.Backend = imagecodec.DefaultBackend()
	}
	if o.Color == (imagecodec.ColorDescriptor{}) {
		o.Color = imagecodec.StandardColor
	}
	if o.Workers < 0 {
		return o, fmt.Errorf("worker count %d is negative", o.Workers)
	}
	if o.Workers == 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.SequenceThreshold == 0 {
		o.SequenceThreshold = classify.DefaultSequenceThreshold
	}
	if o.MemoryBudget < 0 {
		return o, fmt.Errorf("memory budget %d is negative", o.MemoryBudget)
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = DefaultProgressInterval
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	return o, nil
}
