// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"sync"
)

// State is the lifecycle position of one recode job.
type State uint8

const (
	StateQueued State = iota
	StateCacheCheck
	StateCacheHit
	StateDecoding
	StateEncoding
	StateCacheStore
	StateReady
	StateWritten
	StateFailed

	stateCount
)

var stateNames = [stateCount]string{
	StateQueued:     "queued",
	StateCacheCheck: "cache_check",
	StateCacheHit:   "cache_hit",
	StateDecoding:   "decoding",
	StateEncoding:   "encoding",
	StateCacheStore: "cache_store",
	StateReady:      "ready",
	StateWritten:    "written",
	StateFailed:     "failed",
}

func (s State) String() string {
	if s < stateCount {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == StateWritten || s == StateFailed }

// transitions lists the successors of each state. Decoding and
// Encoding may go straight to Ready when a sequence is split into
// stills and the children carry the work.
var transitions = map[State][]State{
	StateQueued:     {StateCacheCheck, StateFailed},
	StateCacheCheck: {StateCacheHit, StateDecoding, StateFailed},
	StateCacheHit:   {StateReady},
	StateDecoding:   {StateEncoding, StateReady, StateFailed},
	StateEncoding:   {StateCacheStore, StateReady, StateFailed},
	StateCacheStore: {StateReady},
	StateReady:      {StateWritten},
}

// CanTransition reports whether from may advance to to.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// job tracks one unit of recode work. A slot owns one job; a split
// sequence adds a child job per member.
type job struct {
	name    string
	tracker *tracker

	mu    sync.Mutex
	state State
}

// advance moves the job to next. An illegal transition is a
// programming error and panics.
func (j *job) advance(next State) {
	j.mu.Lock()
	from := j.state
	if !CanTransition(from, next) {
		j.mu.Unlock()
		panic(fmt.Sprintf("pipeline: job %s cannot move from %s to %s", j.name, from, next))
	}
	j.state = next
	j.mu.Unlock()
	j.tracker.move(from, next)
}

// fail moves the job to StateFailed unless it is already terminal.
func (j *job) fail() {
	j.mu.Lock()
	from := j.state
	if from.Terminal() {
		j.mu.Unlock()
		return
	}
	if !CanTransition(from, StateFailed) {
		// CacheHit, CacheStore and Ready never fail; their work is
		// done and only the write remains.
		j.mu.Unlock()
		return
	}
	j.state = StateFailed
	j.mu.Unlock()
	j.tracker.move(from, StateFailed)
}

func (j *job) current() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}
