// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"sort"
	"strings"
	"sync"

	"github.com/bureau-foundation/renpak/lib/classify"
	"github.com/bureau-foundation/renpak/lib/failure"
	"github.com/bureau-foundation/renpak/lib/manifest"
	"github.com/bureau-foundation/renpak/lib/rpa"
)

// ReasonTargetCollision marks an eligible entry passed through because
// its recoded name is already taken.
const ReasonTargetCollision = "target_collision"

type slotKind uint8

const (
	slotPassthrough slotKind = iota
	slotImage
	slotAnimation
	slotSequence
)

func (k slotKind) String() string {
	switch k {
	case slotImage:
		return "image"
	case slotAnimation:
		return "animation"
	case slotSequence:
		return "sequence"
	default:
		return "passthrough"
	}
}

// slot is one position in the output archive. Recode slots carry a
// handoff channel the writer waits on; passthrough slots are written
// directly from the input.
type slot struct {
	index   int
	kind    slotKind
	target  string
	sources []rpa.Entry
	reason  string
	done    chan outcome

	// job is set for recode slots when the build starts.
	job *job
}

func (s *slot) name() string {
	if s.kind == slotPassthrough {
		return s.sources[0].Name
	}
	return s.target
}

func (s *slot) sourceBytes() int64 {
	var total int64
	for _, entry := range s.sources {
		total += entry.Size()
	}
	return total
}

// plan is the ordered list of slots for one build.
type plan struct {
	slots   []*slot
	recodes int

	// carried are mappings from a manifest already present in the
	// input, preserved so rebuilding a converted archive keeps its
	// earlier recodes resolvable.
	carried []manifest.Result

	// present holds the lowercased input names and claimed the
	// lowercased targets handed out so far. Split sequences claim
	// their still targets while the build runs.
	present map[string]bool
	mu      sync.Mutex
	claimed map[string]bool
}

// claim reserves target if no input entry or earlier claim holds the
// same name, ignoring case.
func (p *plan) claim(target string) bool {
	lower := strings.ToLower(target)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.present[lower] || p.claimed[lower] {
		return false
	}
	p.claimed[lower] = true
	return true
}

// makePlan classifies entries (already in physical order) into slots.
func makePlan(reader *rpa.Reader, classifier *classify.Classifier, threshold int) (*plan, error) {
	entries := reader.Entries()

	present := make(map[string]bool, len(entries))
	var previous *manifest.Manifest
	var stills []string
	for _, entry := range entries {
		decision := classifier.Classify(entry.Name)
		if decision.Reason == classify.ReasonManifest {
			data, err := reader.ReadEntry(entry)
			if err != nil {
				return nil, err
			}
			previous, err = manifest.Parse(data)
			if err != nil {
				return nil, failure.New(failure.Format, "read embedded manifest", reader.Path(), err)
			}
			continue
		}
		present[strings.ToLower(entry.Name)] = true
		if decision.Action == classify.Recode && decision.Kind == classify.Image {
			stills = append(stills, entry.Name)
		}
	}

	result := &plan{present: present, claimed: make(map[string]bool)}

	groups, _ := classify.GroupSequences(stills, threshold)
	groupOf := make(map[string]int)
	groupTargets := make([]string, len(groups))
	for index, group := range groups {
		target := manifest.SequenceTargetName(group.Prefix)
		if !result.claim(target) {
			continue
		}
		groupTargets[index] = target
		for _, member := range group.Members {
			groupOf[member] = index
		}
	}

	add := func(s *slot) {
		s.index = len(result.slots)
		if s.kind != slotPassthrough {
			s.done = make(chan outcome, 1)
			result.recodes++
		}
		result.slots = append(result.slots, s)
	}

	byName := make(map[string]rpa.Entry, len(entries))
	for _, entry := range entries {
		byName[entry.Name] = entry
	}
	emitted := make(map[int]bool)

	for _, entry := range entries {
		decision := classifier.Classify(entry.Name)
		if decision.Reason == classify.ReasonManifest {
			continue
		}
		if group, ok := groupOf[entry.Name]; ok {
			if emitted[group] {
				continue
			}
			emitted[group] = true
			members := make([]rpa.Entry, 0, len(groups[group].Members))
			for _, member := range groups[group].Members {
				members = append(members, byName[member])
			}
			add(&slot{kind: slotSequence, target: groupTargets[group], sources: members, reason: classify.ReasonStill})
			continue
		}

		kind := slotPassthrough
		if decision.Action == classify.Recode {
			kind = slotImage
			if decision.Kind == classify.Sequence {
				kind = slotAnimation
			}
		}
		reason := decision.Reason
		target := ""
		if kind != slotPassthrough {
			target = manifest.TargetName(entry.Name)
			if !result.claim(target) {
				kind, target, reason = slotPassthrough, "", ReasonTargetCollision
			}
		}
		add(&slot{kind: kind, target: target, sources: []rpa.Entry{entry}, reason: reason})
	}

	if previous != nil {
		result.carried = carryForward(previous, present)
	}
	return result, nil
}

// carryForward turns an earlier manifest back into recode results.
// A target is kept only if it is still in the archive and none of its
// sources have reappeared, since frame numbering depends on the full
// source list.
func carryForward(previous *manifest.Manifest, present map[string]bool) []manifest.Result {
	type frame struct {
		source string
		index  int
	}
	byTarget := make(map[string][]frame)
	entries := make(map[string]manifest.Entry)
	dropped := make(map[string]bool)
	for _, source := range previous.Originals() {
		entry := previous.Entries[source]
		if present[strings.ToLower(source)] || !present[strings.ToLower(entry.Target)] {
			dropped[entry.Target] = true
			continue
		}
		index := 0
		if entry.Frame != nil {
			index = *entry.Frame
		}
		byTarget[entry.Target] = append(byTarget[entry.Target], frame{source: source, index: index})
		entries[entry.Target] = entry
	}

	targets := make([]string, 0, len(byTarget))
	for target := range byTarget {
		if !dropped[target] {
			targets = append(targets, target)
		}
	}
	sort.Strings(targets)

	results := make([]manifest.Result, 0, len(targets))
	for _, target := range targets {
		frames := byTarget[target]
		sort.SliceStable(frames, func(i, j int) bool { return frames[i].index < frames[j].index })
		entry := entries[target]
		result := manifest.Result{Kind: entry.Kind, Target: target, Width: entry.Width, Height: entry.Height}
		for _, f := range frames {
			result.Sources = append(result.Sources, f.source)
		}
		if sequence, ok := previous.Sequences[target]; ok {
			result.Frames = sequence.FrameCount
		}
		results = append(results, result)
	}
	return results
}
