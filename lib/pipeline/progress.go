// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/renpak/lib/clock"
)

// Snapshot is a point-in-time view of build progress.
type Snapshot struct {
	// Entries is the number of output slots; Written counts those
	// already in the output archive.
	Entries int
	Written int

	// Jobs is the number of recode jobs, including children of split
	// sequences. The job counts below partition it.
	Jobs     int
	Queued   int
	InFlight int
	Ready    int
	Done     int
	Failed   int

	// Degraded counts failed jobs whose sources were written
	// unchanged instead of aborting the build.
	Degraded int

	CacheHits int

	// BytesIn is the source bytes consumed by written slots; BytesOut
	// is what they became.
	BytesIn  int64
	BytesOut int64

	Elapsed time.Duration

	// Final is set on the last snapshot of a build.
	Final bool
}

// tracker holds the live counters behind Snapshot. Counters are
// updated from workers and the writer without locking.
type tracker struct {
	clock clock.Clock
	start time.Time

	entries   int
	written   atomic.Int64
	jobs      atomic.Int64
	states    [stateCount]atomic.Int64
	degraded  atomic.Int64
	cacheHits atomic.Int64
	bytesIn   atomic.Int64
	bytesOut  atomic.Int64
}

func newTracker(c clock.Clock, entries int) *tracker {
	return &tracker{clock: c, start: c.Now(), entries: entries}
}

// newJob registers a queued job.
func (t *tracker) newJob(name string) *job {
	t.jobs.Add(1)
	t.states[StateQueued].Add(1)
	return &job{name: name, tracker: t, state: StateQueued}
}

func (t *tracker) move(from, to State) {
	t.states[from].Add(-1)
	t.states[to].Add(1)
	if to == StateCacheHit {
		t.cacheHits.Add(1)
	}
}

func (t *tracker) wrote(in, out int64) {
	t.written.Add(1)
	t.bytesIn.Add(in)
	t.bytesOut.Add(out)
}

func (t *tracker) snapshot() Snapshot {
	count := func(s State) int { return int(t.states[s].Load()) }
	inFlight := 0
	for _, s := range []State{StateCacheCheck, StateCacheHit, StateDecoding, StateEncoding, StateCacheStore} {
		inFlight += count(s)
	}
	return Snapshot{
		Entries:   t.entries,
		Written:   int(t.written.Load()),
		Jobs:      int(t.jobs.Load()),
		Queued:    count(StateQueued),
		InFlight:  inFlight,
		Ready:     count(StateReady),
		Done:      count(StateWritten),
		Failed:    count(StateFailed),
		Degraded:  int(t.degraded.Load()),
		CacheHits: int(t.cacheHits.Load()),
		BytesIn:   t.bytesIn.Load(),
		BytesOut:  t.bytesOut.Load(),
		Elapsed:   t.clock.Now().Sub(t.start),
	}
}

// reporter delivers snapshots to a callback at most once per interval
// and only when something changed. stop emits the final snapshot.
type reporter struct {
	tracker  *tracker
	callback func(Snapshot)
	ticker   *clock.Ticker
	done     chan struct{}
	finished chan struct{}
	once     sync.Once
}

func startReporter(t *tracker, c clock.Clock, interval time.Duration, callback func(Snapshot)) *reporter {
	r := &reporter{
		tracker:  t,
		callback: callback,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	if callback == nil {
		close(r.finished)
		return r
	}
	r.ticker = c.NewTicker(interval)
	go r.run()
	return r
}

func (r *reporter) run() {
	defer close(r.finished)
	var last Snapshot
	for {
		select {
		case <-r.ticker.C:
			snapshot := r.tracker.snapshot()
			if sameCounts(snapshot, last) {
				continue
			}
			last = snapshot
			r.callback(snapshot)
		case <-r.done:
			return
		}
	}
}

// stop halts periodic delivery and sends one final snapshot. Safe to
// call more than once.
func (r *reporter) stop() {
	r.once.Do(func() {
		close(r.done)
		<-r.finished
		if r.ticker != nil {
			r.ticker.Stop()
		}
		if r.callback != nil {
			final := r.tracker.snapshot()
			final.Final = true
			r.callback(final)
		}
	})
}

// sameCounts compares snapshots ignoring elapsed time.
func sameCounts(a, b Snapshot) bool {
	a.Elapsed, b.Elapsed = 0, 0
	return a == b
}
