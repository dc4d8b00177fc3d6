// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"path"
	"sort"
	"strconv"
	"strings"
)

// DefaultSequenceThreshold is the smallest numbered run grouped into a
// sequence. Shorter runs compress no better as a sequence than as
// stills.
const DefaultSequenceThreshold = 4

// Group is a run of numbered stills sharing a name prefix, ordered by
// frame number.
type Group struct {
	// Prefix is the shared name up to the frame number, e.g.
	// "images/01/ale " for "images/01/ale 3.jpg".
	Prefix string

	// Extension is the lowercased shared extension.
	Extension string

	// Members are the original entry names in frame order.
	Members []string
}

// GroupSequences partitions names into numbered runs of at least
// threshold members and the remaining ungrouped names. Names are
// grouped by the text preceding a trailing decimal number in the file
// stem, and by extension. Ungrouped names keep their input order;
// groups are ordered by the position of their first member in the
// input. A threshold below 2 disables grouping.
func GroupSequences(names []string, threshold int) ([]Group, []string) {
	if threshold < 2 {
		out := make([]string, len(names))
		copy(out, names)
		return nil, out
	}

	type member struct {
		name     string
		number   uint64
		position int
	}
	type groupKey struct {
		prefix    string
		extension string
	}

	candidates := make(map[groupKey][]member)
	var order []groupKey
	for position, name := range names {
		prefix, extension, number, ok := splitNumbered(name)
		if !ok {
			continue
		}
		key := groupKey{prefix: prefix, extension: extension}
		if _, seen := candidates[key]; !seen {
			order = append(order, key)
		}
		candidates[key] = append(candidates[key], member{name: name, number: number, position: position})
	}

	grouped := make(map[string]bool)
	var groups []Group
	for _, key := range order {
		members := candidates[key]
		if len(members) < threshold {
			continue
		}
		sort.SliceStable(members, func(i, j int) bool {
			if members[i].number != members[j].number {
				return members[i].number < members[j].number
			}
			return members[i].name < members[j].name
		})
		group := Group{Prefix: key.prefix, Extension: key.extension}
		for _, m := range members {
			group.Members = append(group.Members, m.name)
			grouped[m.name] = true
		}
		groups = append(groups, group)
	}

	var ungrouped []string
	for _, name := range names {
		if !grouped[name] {
			ungrouped = append(ungrouped, name)
		}
	}
	return groups, ungrouped
}

// splitNumbered splits "dir/name 12.png" into ("dir/name ", ".png", 12).
// Names whose stem does not end in digits are not numbered.
func splitNumbered(name string) (prefix, extension string, number uint64, ok bool) {
	extension = path.Ext(name)
	if extension == "" {
		return "", "", 0, false
	}
	stem := name[:len(name)-len(extension)]
	end := len(stem)
	start := end
	for start > 0 && stem[start-1] >= '0' && stem[start-1] <= '9' {
		start--
	}
	if start == end || end-start > 18 {
		return "", "", 0, false
	}
	number, err := strconv.ParseUint(stem[start:end], 10, 64)
	if err != nil {
		return "", "", 0, false
	}
	return stem[:start], strings.ToLower(extension), number, true
}
