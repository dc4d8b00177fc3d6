// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/bureau-foundation/renpak/lib/cache"
	"github.com/bureau-foundation/renpak/lib/classify"
	"github.com/bureau-foundation/renpak/lib/failure"
	"github.com/bureau-foundation/renpak/lib/imagecodec"
	"github.com/bureau-foundation/renpak/lib/manifest"
	"github.com/bureau-foundation/renpak/lib/rpa"
	"github.com/bureau-foundation/renpak/lib/version"
)

var (
	// ErrIncomplete is returned when a build is cancelled before
	// commit. The destination is left untouched.
	ErrIncomplete = errors.New("build incomplete")

	// ErrInsufficientSpace is returned by the preflight when the
	// output filesystem has less free space than the input archive
	// occupies.
	ErrInsufficientSpace = errors.New("insufficient free space")
)

// SidecarSuffix is appended to the output path for the manifest
// sidecar.
const SidecarSuffix = ".manifest.json"

// windowPerWorker sizes the reorder window: how many recode slots per
// worker may be dispatched ahead of the writer.
const windowPerWorker = 4

// Build converts options.Input into options.Output. On success the
// output is committed atomically and the returned Report describes it.
// On failure or cancellation nothing is published at options.Output.
func Build(ctx context.Context, options Options) (*Report, error) {
	options, err := options.withDefaults()
	if err != nil {
		return nil, err
	}
	logger := options.Logger
	start := options.Clock.Now()

	codec, err := imagecodec.New(options.Backend, options.Params, options.Color)
	if err != nil {
		return nil, err
	}

	reader, err := rpa.Open(options.Input)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	if err := preflight(options, reader.Size()); err != nil {
		return nil, err
	}

	planned, err := makePlan(reader, classify.New(options.Rules), options.SequenceThreshold)
	if err != nil {
		return nil, err
	}

	budget := options.MemoryBudget
	if budget == 0 {
		budget = sequenceBudget(availableMemory(), options.Workers)
	}

	tracker := newTracker(options.Clock, len(planned.slots))
	for _, s := range planned.slots {
		if s.kind != slotPassthrough {
			s.job = tracker.newJob(s.target)
		}
	}

	b := &builder{
		options: options,
		logger:  logger,
		reader:  reader,
		plan:    planned,
		codec:   codec,
		tracker: tracker,
		fingerprints: map[imagecodec.PayloadKind]cache.Fingerprint{
			imagecodec.PayloadImage:    cache.FingerprintOf(codec, imagecodec.PayloadImage),
			imagecodec.PayloadSequence: cache.FingerprintOf(codec, imagecodec.PayloadSequence),
		},
		memory: semaphore.NewWeighted(budget),
		budget: budget,
		window: semaphore.NewWeighted(int64(options.Workers * windowPerWorker)),
	}

	logger.Info("build planned",
		"input", options.Input,
		"output", options.Output,
		"entries", len(planned.slots),
		"recodes", planned.recodes,
		"carried", len(planned.carried),
		"backend", options.Backend,
		"workers", options.Workers,
		"memory_budget", humanize.IBytes(uint64(budget)),
	)

	key := reader.Key()
	if options.Key != nil {
		key = *options.Key
	}
	writer, err := rpa.Create(options.Output, key)
	if err != nil {
		return nil, err
	}

	reporter := startReporter(tracker, options.Clock, options.ProgressInterval, options.Progress)
	done, err := b.run(ctx, writer)
	if err == nil {
		err = ctx.Err()
	}
	var (
		document []byte
		size     int64
	)
	if err == nil {
		document, size, err = b.commit(writer, done)
	}
	reporter.stop()

	if err != nil {
		if abortErr := writer.Abort(); abortErr != nil {
			logger.Warn("discarding partial output failed", "path", writer.TempPath(), "error", abortErr)
		}
		if ctx.Err() != nil {
			logger.Info("build cancelled", "output", options.Output)
			return nil, fmt.Errorf("%w: %w", ErrIncomplete, ctx.Err())
		}
		return nil, err
	}

	report := &Report{
		Input:       options.Input,
		Output:      options.Output,
		Entries:     len(done.names) + 1,
		Recoded:     len(done.results),
		Carried:     len(planned.carried),
		Passthrough: done.passthrough,
		Degraded:    done.degraded,
		CacheHits:   int(tracker.cacheHits.Load()),
		Encodes:     int(b.encodes.Load()),
		BytesIn:     reader.Size(),
		BytesOut:    size,
		Duration:    options.Clock.Now().Sub(start),
		Manifest:    done.manifest,
	}
	if options.Cache != nil {
		report.Cache = options.Cache.Stats()
	}
	options.Metrics.build(report.Duration.Seconds())
	logger.Info("build committed",
		"output", options.Output,
		"entries", report.Entries,
		"recoded", report.Recoded,
		"degraded", len(report.Degraded),
		"cache_hits", report.CacheHits,
		"size", humanize.IBytes(uint64(size)),
		"saved", report.SavedPercent(),
		"duration", report.Duration,
	)

	if options.ManifestSidecar {
		sidecar := options.Output + SidecarSuffix
		if err := writeFileAtomic(sidecar, document); err != nil {
			return report, err
		}
	}
	return report, nil
}

// written accumulates what the writer put in the output archive.
type written struct {
	names       []string
	results     []manifest.Result
	degraded    []Degradation
	passthrough int
	manifest    *manifest.Manifest
}

// run dispatches recode slots to the worker pool and writes every slot
// in plan order. The first fatal error cancels the rest.
func (b *builder) run(ctx context.Context, writer *rpa.Writer) (*written, error) {
	group, groupCtx := errgroup.WithContext(ctx)
	queue := make(chan *slot)

	group.Go(func() error {
		defer close(queue)
		for _, s := range b.plan.slots {
			if s.kind == slotPassthrough {
				continue
			}
			if err := b.window.Acquire(groupCtx, 1); err != nil {
				return nil
			}
			select {
			case queue <- s:
			case <-groupCtx.Done():
				return nil
			}
		}
		return nil
	})

	for range b.options.Workers {
		group.Go(func() error {
			for s := range queue {
				o := b.process(groupCtx, s)
				s.done <- o
				if o.err != nil {
					return o.err
				}
			}
			return nil
		})
	}

	done := &written{}
	group.Go(func() error {
		return b.write(groupCtx, writer, done)
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return done, nil
}

// write streams slots into the output in plan order, waiting on each
// recode slot's handoff.
func (b *builder) write(ctx context.Context, writer *rpa.Writer, done *written) error {
	for _, s := range b.plan.slots {
		if s.kind == slotPassthrough {
			entry := s.sources[0]
			if err := b.copyEntry(writer, entry); err != nil {
				return err
			}
			done.names = append(done.names, entry.Name)
			done.passthrough++
			b.tracker.wrote(entry.Size(), entry.Size())
			b.options.Metrics.entry(OutcomePassthrough, entry.Size(), entry.Size())
			continue
		}

		var o outcome
		select {
		case o = <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		b.window.Release(1)
		if o.err != nil {
			return o.err
		}

		var out int64
		for _, w := range o.writes {
			if w.payload == nil {
				if err := b.copyEntry(writer, w.source); err != nil {
					return err
				}
				done.passthrough++
			} else if err := writer.Add(w.name, w.payload); err != nil {
				return err
			}
			done.names = append(done.names, w.name)
			out += w.size()
			b.options.Metrics.entry(w.outcome, w.in, w.size())
		}
		for _, j := range o.jobs {
			if j.current() == StateReady {
				j.advance(StateWritten)
			}
		}
		done.results = append(done.results, o.results...)
		done.degraded = append(done.degraded, o.degraded...)
		b.tracker.wrote(s.sourceBytes(), out)
	}
	return nil
}

func (b *builder) copyEntry(writer *rpa.Writer, entry rpa.Entry) error {
	source, err := b.reader.EntryReader(entry)
	if err != nil {
		return err
	}
	return writer.AddFrom(entry.Name, source, entry.Size())
}

// commit embeds the manifest as the last entry and publishes the
// archive. It returns the manifest document and the archive size.
func (b *builder) commit(writer *rpa.Writer, done *written) ([]byte, int64, error) {
	results := make([]manifest.Result, 0, len(b.plan.carried)+len(done.results))
	results = append(results, b.plan.carried...)
	results = append(results, done.results...)

	built, err := manifest.Build(done.names, results, version.Generator())
	if err != nil {
		return nil, 0, err
	}
	document, err := built.Marshal()
	if err != nil {
		return nil, 0, err
	}
	if err := writer.Add(manifest.FileName, document); err != nil {
		return nil, 0, err
	}
	size, err := writer.Finish()
	if err != nil {
		return nil, 0, err
	}
	done.manifest = built
	return document, size, nil
}

// preflight checks the output directory exists and, unless disabled,
// that its filesystem can hold a copy of the input.
func preflight(options Options, inputSize int64) error {
	directory := filepath.Dir(options.Output)
	info, err := os.Stat(directory)
	if err != nil {
		return failure.New(failure.IO, "preflight", directory, err)
	}
	if !info.IsDir() {
		return failure.New(failure.IO, "preflight", directory, errors.New("not a directory"))
	}
	if options.SkipSpaceCheck {
		return nil
	}
	free, err := freeSpace(directory)
	if errors.Is(err, errSpaceUnknown) {
		options.Logger.Debug("free space unknown, skipping check", "directory", directory)
		return nil
	}
	if err != nil {
		return failure.New(failure.IO, "preflight", directory, err)
	}
	if free < uint64(inputSize) {
		return failure.New(failure.IO, "preflight", directory, fmt.Errorf("%w: %s free, input is %s",
			ErrInsufficientSpace, humanize.IBytes(free), humanize.IBytes(uint64(inputSize))))
	}
	return nil
}

// writeFileAtomic replaces path with data via a synced temporary file
// in the same directory.
func writeFileAtomic(path string, data []byte) error {
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return failure.New(failure.IO, "write sidecar", path, err)
	}
	temporary := file.Name()
	_, writeErr := file.Write(data)
	if writeErr == nil {
		writeErr = file.Sync()
	}
	closeErr := file.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr == nil {
		writeErr = os.Chmod(temporary, 0o644)
	}
	if writeErr == nil {
		writeErr = os.Rename(temporary, path)
	}
	if writeErr != nil {
		os.Remove(temporary)
		return failure.New(failure.IO, "write sidecar", path, writeErr)
	}
	return nil
}
