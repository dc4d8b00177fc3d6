// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"reflect"
	"testing"
)

func TestGroupSequences(t *testing.T) {
	tests := []struct {
		name          string
		names         []string
		wantGroups    []Group
		wantUngrouped []string
	}{
		{
			name: "basic run",
			names: []string{
				"images/01/ale 1.jpg", "images/01/ale 2.jpg", "images/01/ale 3.jpg",
				"images/01/ale 4.jpg", "images/01/ale 5.jpg",
			},
			wantGroups: []Group{{
				Prefix:    "images/01/ale ",
				Extension: ".jpg",
				Members: []string{
					"images/01/ale 1.jpg", "images/01/ale 2.jpg", "images/01/ale 3.jpg",
					"images/01/ale 4.jpg", "images/01/ale 5.jpg",
				},
			}},
		},
		{
			name:          "short run stays ungrouped",
			names:         []string{"images/01/ale 1.jpg", "images/01/ale 2.jpg", "images/01/ale 3.jpg"},
			wantUngrouped: []string{"images/01/ale 1.jpg", "images/01/ale 2.jpg", "images/01/ale 3.jpg"},
		},
		{
			name: "mixed",
			names: []string{
				"images/01/ale 1.jpg", "images/01/dun 1.jpg", "images/01/ale 2.jpg",
				"images/01/ale 3.jpg", "images/01/solo.jpg", "images/01/ale 4.jpg",
				"images/01/dun 2.jpg", "images/01/ale 5.jpg",
			},
			wantGroups: []Group{{
				Prefix:    "images/01/ale ",
				Extension: ".jpg",
				Members: []string{
					"images/01/ale 1.jpg", "images/01/ale 2.jpg", "images/01/ale 3.jpg",
					"images/01/ale 4.jpg", "images/01/ale 5.jpg",
				},
			}},
			wantUngrouped: []string{"images/01/dun 1.jpg", "images/01/solo.jpg", "images/01/dun 2.jpg"},
		},
		{
			name:          "no numbers",
			names:         []string{"images/logo.png", "images/bg.jpg"},
			wantUngrouped: []string{"images/logo.png", "images/bg.jpg"},
		},
		{
			name:  "numeric sort",
			names: []string{"img/x10.png", "img/x2.png", "img/x1.png", "img/x5.png", "img/x3.png"},
			wantGroups: []Group{{
				Prefix:    "img/x",
				Extension: ".png",
				Members:   []string{"img/x1.png", "img/x2.png", "img/x3.png", "img/x5.png", "img/x10.png"},
			}},
		},
		{
			name: "extensions split runs",
			names: []string{
				"f1.png", "f2.png", "f3.png", "f4.png",
				"f1.jpg", "f2.jpg",
			},
			wantGroups: []Group{{
				Prefix:    "f",
				Extension: ".png",
				Members:   []string{"f1.png", "f2.png", "f3.png", "f4.png"},
			}},
			wantUngrouped: []string{"f1.jpg", "f2.jpg"},
		},
		{
			name: "empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, ungrouped := GroupSequences(tt.names, DefaultSequenceThreshold)
			if !reflect.DeepEqual(groups, tt.wantGroups) {
				t.Errorf("groups = %#v, want %#v", groups, tt.wantGroups)
			}
			if !reflect.DeepEqual(ungrouped, tt.wantUngrouped) {
				t.Errorf("ungrouped = %#v, want %#v", ungrouped, tt.wantUngrouped)
			}
		})
	}
}

func TestGroupSequencesDisabled(t *testing.T) {
	names := []string{"a1.png", "a2.png", "a3.png", "a4.png"}
	groups, ungrouped := GroupSequences(names, 0)
	if groups != nil {
		t.Errorf("groups = %v, want none", groups)
	}
	if !reflect.DeepEqual(ungrouped, names) {
		t.Errorf("ungrouped = %v, want %v", ungrouped, names)
	}
}

func TestSplitNumbered(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		extension string
		number    uint64
		ok        bool
	}{
		{"images/01/ale 12.JPG", "images/01/ale ", ".jpg", 12, true},
		{"frames/0007.png", "frames/", ".png", 7, true},
		{"images/logo.png", "", "", 0, false},
		{"noext5", "", "", 0, false},
		{"huge1234567890123456789.png", "", "", 0, false},
	}
	for _, tt := range tests {
		prefix, extension, number, ok := splitNumbered(tt.name)
		if prefix != tt.prefix || extension != tt.extension || number != tt.number || ok != tt.ok {
			t.Errorf("splitNumbered(%q) = (%q, %q, %d, %v), want (%q, %q, %d, %v)",
				tt.name, prefix, extension, number, ok, tt.prefix, tt.extension, tt.number, tt.ok)
		}
	}
}
