// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import "strings"

// Resolver answers runtime name queries against a manifest. The engine
// may request a name with different casing than the archive stores, so
// lookups fold case. A Resolver is read-only and safe for concurrent
// use.
type Resolver struct {
	entries   map[string]Entry
	sequences map[string]Sequence
}

// NewResolver indexes m.
func NewResolver(m *Manifest) *Resolver {
	resolver := &Resolver{
		entries:   make(map[string]Entry, len(m.Entries)),
		sequences: make(map[string]Sequence, len(m.Sequences)),
	}
	for name, entry := range m.Entries {
		resolver.entries[strings.ToLower(name)] = entry
	}
	for name, sequence := range m.Sequences {
		resolver.sequences[strings.ToLower(name)] = sequence
	}
	return resolver
}

// Lookup returns the replacement for an original name.
func (r *Resolver) Lookup(name string) (Entry, bool) {
	entry, ok := r.entries[strings.ToLower(name)]
	return entry, ok
}

// Loadable reports whether the engine should treat name as present
// even though the archive no longer holds it.
func (r *Resolver) Loadable(name string) bool {
	_, ok := r.entries[strings.ToLower(name)]
	return ok
}

// Sequence returns the description of a sequence payload.
func (r *Resolver) Sequence(target string) (Sequence, bool) {
	sequence, ok := r.sequences[strings.ToLower(target)]
	return sequence, ok
}

// Len returns the number of mapped original names.
func (r *Resolver) Len() int { return len(r.entries) }
