// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"image"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/bureau-foundation/renpak/lib/cache"
	"github.com/bureau-foundation/renpak/lib/failure"
	"github.com/bureau-foundation/renpak/lib/imagecodec"
	"github.com/bureau-foundation/renpak/lib/manifest"
	"github.com/bureau-foundation/renpak/lib/rpa"
)

// Degradation records an asset written unchanged after its recode
// failed.
type Degradation struct {
	Target  string
	Sources []string
	Reason  imagecodec.Reason
	Err     error
}

// write is one output entry produced by a recode slot. A nil payload
// means the source entry is copied from the input unchanged.
type write struct {
	name    string
	payload []byte
	source  rpa.Entry
	outcome string

	// in is the source bytes this write replaces.
	in int64
}

func (w write) size() int64 {
	if w.payload == nil {
		return w.source.Size()
	}
	return int64(len(w.payload))
}

// outcome is what a worker hands the writer for one recode slot.
type outcome struct {
	writes   []write
	results  []manifest.Result
	jobs     []*job
	degraded []Degradation
	err      error
}

func (o outcome) fatal(err error) outcome {
	o.err = err
	return o
}

// builder holds the state shared by every worker in one build.
type builder struct {
	options Options
	logger  *slog.Logger
	reader  *rpa.Reader
	plan    *plan
	codec   *imagecodec.Codec
	tracker *tracker

	fingerprints map[imagecodec.PayloadKind]cache.Fingerprint

	// flight collapses concurrent encodes of identical content.
	flight singleflight.Group

	// memory bounds decoded sequence frames held at once; budget is
	// its capacity.
	memory *semaphore.Weighted
	budget int64

	// window bounds recode slots dispatched but not yet written, so
	// finished payloads cannot pile up behind a slow early slot.
	window *semaphore.Weighted

	encodes atomic.Int64
}

// process runs the job for one recode slot. It never blocks on the
// writer.
func (b *builder) process(ctx context.Context, s *slot) outcome {
	var o outcome
	switch s.kind {
	case slotImage:
		o = b.image(ctx, s.job, s.target, s.sources[0])
	case slotAnimation:
		o = b.animation(ctx, s.job, s.target, s.sources[0])
	case slotSequence:
		o = b.sequence(ctx, s.job, s)
	}
	if o.err != nil {
		for _, j := range o.jobs {
			j.fail()
		}
	}
	return o
}

func (b *builder) image(ctx context.Context, j *job, target string, entry rpa.Entry) outcome {
	o := outcome{jobs: []*job{j}}
	if err := ctx.Err(); err != nil {
		return o.fatal(err)
	}
	j.advance(StateCacheCheck)
	data, err := b.reader.ReadEntry(entry)
	if err != nil {
		return o.fatal(err)
	}

	sources := []rpa.Entry{entry}
	payload, err := b.encodeCached(ctx, j, imagecodec.PayloadImage, cache.ContentHash(data), func() ([]byte, error) {
		j.advance(StateDecoding)
		img, err := imagecodec.DecodeSource(data)
		if err != nil {
			return nil, err
		}
		j.advance(StateEncoding)
		return b.codec.EncodeImage(img)
	})
	if err != nil {
		return b.degrade(o, j, target, sources, err)
	}
	return b.finish(o, j, manifest.KindImage, target, sources, payload)
}

func (b *builder) animation(ctx context.Context, j *job, target string, entry rpa.Entry) outcome {
	o := outcome{jobs: []*job{j}}
	if err := ctx.Err(); err != nil {
		return o.fatal(err)
	}
	j.advance(StateCacheCheck)
	data, err := b.reader.ReadEntry(entry)
	if err != nil {
		return o.fatal(err)
	}

	sources := []rpa.Entry{entry}
	payload, err := b.encodeCached(ctx, j, imagecodec.PayloadSequence, cache.ContentHash(data), func() ([]byte, error) {
		j.advance(StateDecoding)
		animation, err := imagecodec.ParseAnimation(data)
		if err != nil {
			return nil, err
		}
		weight := b.reservation(animation.Width(), animation.Height(), animation.FrameCount())
		if err := b.memory.Acquire(ctx, weight); err != nil {
			return nil, err
		}
		defer b.memory.Release(weight)

		frames := animation.Composite()
		j.advance(StateEncoding)
		return b.codec.EncodeSequence(asImages(frames))
	})
	if err != nil {
		return b.degrade(o, j, target, sources, err)
	}
	return b.finish(o, j, manifest.KindSequence, target, sources, payload)
}

func (b *builder) sequence(ctx context.Context, j *job, s *slot) outcome {
	o := outcome{jobs: []*job{j}}
	if err := ctx.Err(); err != nil {
		return o.fatal(err)
	}
	j.advance(StateCacheCheck)
	datas := make([][]byte, len(s.sources))
	hashes := make([]cache.Hash, len(s.sources))
	for index, entry := range s.sources {
		data, err := b.reader.ReadEntry(entry)
		if err != nil {
			return o.fatal(err)
		}
		datas[index] = data
		hashes[index] = cache.ContentHash(data)
	}

	payload, err := b.encodeCached(ctx, j, imagecodec.PayloadSequence, cache.SequenceHash(hashes), func() ([]byte, error) {
		j.advance(StateDecoding)
		width, height, err := imagecodec.SequenceConfig(datas)
		if err != nil {
			return nil, err
		}
		weight := b.reservation(width, height, len(datas))
		if err := b.memory.Acquire(ctx, weight); err != nil {
			return nil, err
		}
		defer b.memory.Release(weight)

		frames := make([]image.Image, len(datas))
		for index, data := range datas {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			img, err := imagecodec.DecodeSource(data)
			if err != nil {
				return nil, err
			}
			frames[index] = img
		}
		j.advance(StateEncoding)
		return b.codec.EncodeSequence(frames)
	})
	if imagecodec.ReasonOf(err) == imagecodec.ReasonFrameMismatch {
		return b.split(ctx, o, j, s)
	}
	if err != nil {
		return b.degrade(o, j, s.target, s.sources, err)
	}
	return b.finish(o, j, manifest.KindSequence, s.target, s.sources, payload)
}

// split recodes the members of a sequence whose frames differ in size
// as independent stills. A member whose still target is taken passes
// through.
func (b *builder) split(ctx context.Context, o outcome, j *job, s *slot) outcome {
	if j.current() == StateCacheCheck {
		j.advance(StateDecoding)
	}
	b.logger.Info("sequence frames differ in size, recoding members as stills",
		"target", s.target,
		"members", len(s.sources),
	)
	for _, entry := range s.sources {
		target := manifest.TargetName(entry.Name)
		if !b.plan.claim(target) {
			o.writes = append(o.writes, write{name: entry.Name, source: entry, outcome: OutcomePassthrough, in: entry.Size()})
			continue
		}
		child := b.image(ctx, b.tracker.newJob(target), target, entry)
		o.jobs = append(o.jobs, child.jobs...)
		o.writes = append(o.writes, child.writes...)
		o.results = append(o.results, child.results...)
		o.degraded = append(o.degraded, child.degraded...)
		if child.err != nil {
			return o.fatal(child.err)
		}
	}
	j.advance(StateReady)
	return o
}

type encoded struct {
	payload []byte
	hit     bool
}

// encodeCached returns the payload for content, from the cache when
// possible. Concurrent calls for the same key share one encode; the
// callers that waited count as cache hits.
func (b *builder) encodeCached(ctx context.Context, j *job, kind imagecodec.PayloadKind, content cache.Hash, encode func() ([]byte, error)) ([]byte, error) {
	fingerprint := b.fingerprints[kind]
	key, err := cache.Key(content, fingerprint)
	if err != nil {
		return nil, err
	}

	led := false
	value, err, _ := b.flight.Do(key.String(), func() (any, error) {
		led = true
		if b.options.Cache != nil {
			payload, ok := b.options.Cache.Get(key, content, fingerprint)
			b.options.Metrics.cacheLookup(ok)
			if ok {
				return encoded{payload: payload, hit: true}, nil
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := b.options.Clock.Now()
		b.encodes.Add(1)
		payload, err := encode()
		if err != nil {
			return nil, err
		}
		b.options.Metrics.encode(string(kind), b.options.Clock.Now().Sub(start).Seconds())

		if b.options.Cache != nil {
			j.advance(StateCacheStore)
			if err := b.options.Cache.Put(key, content, fingerprint, payload); err != nil {
				b.logger.Warn("cache store failed", "key", key.Short(), "error", err)
			}
		}
		return encoded{payload: payload}, nil
	})
	if err != nil {
		return nil, err
	}
	result := value.(encoded)
	if result.hit || !led {
		j.advance(StateCacheHit)
	}
	return result.payload, nil
}

// degrade decides whether a failed recode aborts the build or writes
// its sources unchanged. Only codec failures degrade, and only when
// fail-fast is off.
func (b *builder) degrade(o outcome, j *job, target string, sources []rpa.Entry, err error) outcome {
	if b.options.FailFast || !failure.Is(err, failure.Codec) {
		return o.fatal(err)
	}
	j.fail()
	b.tracker.degraded.Add(1)

	names := make([]string, len(sources))
	for index, entry := range sources {
		names[index] = entry.Name
		o.writes = append(o.writes, write{name: entry.Name, source: entry, outcome: OutcomeDegraded, in: entry.Size()})
	}
	reason := imagecodec.ReasonOf(err)
	b.logger.Warn("recode failed, keeping original",
		"target", target,
		"sources", len(sources),
		"reason", reason,
		"error", err,
	)
	o.degraded = append(o.degraded, Degradation{Target: target, Sources: names, Reason: reason, Err: err})
	return o
}

// finish records a produced payload as a write and a manifest result.
func (b *builder) finish(o outcome, j *job, kind manifest.Kind, target string, sources []rpa.Entry, payload []byte) outcome {
	info, err := imagecodec.ReadInfo(payload)
	if err != nil {
		return o.fatal(err)
	}
	outcomeLabel := OutcomeRecoded
	if j.current() == StateCacheHit {
		outcomeLabel = OutcomeCacheHit
	}

	result := manifest.Result{Kind: kind, Target: target, Width: info.Width, Height: info.Height}
	var in int64
	for _, entry := range sources {
		result.Sources = append(result.Sources, entry.Name)
		in += entry.Size()
	}
	if kind == manifest.KindSequence {
		result.Frames = info.FrameCount()
	}
	j.advance(StateReady)

	o.writes = append(o.writes, write{name: target, payload: payload, outcome: outcomeLabel, in: in})
	o.results = append(o.results, result)
	return o
}

// reservation is the memory weight of decoding frames of the given
// size: the decoded frames plus the padded keyframe and one residual.
func (b *builder) reservation(width, height, frames int) int64 {
	weight := int64(width) * int64(height) * 4 * int64(frames+2)
	if weight > b.budget {
		return b.budget
	}
	if weight < 1 {
		return 1
	}
	return weight
}

func asImages(frames []*image.NRGBA) []image.Image {
	images := make([]image.Image, len(frames))
	for index, frame := range frames {
		images[index] = frame
	}
	return images
}
