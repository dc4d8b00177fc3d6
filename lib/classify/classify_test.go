// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	classifier := New(Rules{Exclude: []string{"ui"}})

	tests := []struct {
		name   string
		action Action
		kind   Kind
		reason string
	}{
		{"bg.png", Recode, Image, ReasonStill},
		{"images/Room.JPG", Recode, Image, ReasonStill},
		{"images/photo.jpeg", Recode, Image, ReasonStill},
		{"images/old.bmp", Recode, Image, ReasonStill},
		{"images/new.webp", Recode, Image, ReasonStill},
		{"images/spinner.gif", Recode, Sequence, ReasonAnimated},
		{"ui/icon.png", Passthrough, KindNone, ReasonExcluded},
		{"UI/Icon.png", Passthrough, KindNone, ReasonExcluded},
		{"gui/button/idle.png", Passthrough, KindNone, ReasonExcluded},
		{"gui/spinner.gif", Passthrough, KindNone, ReasonExcluded},
		{"uimages/bg.png", Recode, Image, ReasonStill},
		{"script.rpy", Passthrough, KindNone, ReasonNotMedia},
		{"script.rpyc", Passthrough, KindNone, ReasonNotMedia},
		{"audio/theme.ogg", Passthrough, KindNone, ReasonNotMedia},
		{"movies/op.webm", Passthrough, KindNone, ReasonNoFrameDecoder},
		{"Makefile", Passthrough, KindNone, ReasonNotMedia},
		{"bg.webp._recoded", Passthrough, KindNone, ReasonAlreadyRecoded},
		{"renpak_manifest.json", Passthrough, KindNone, ReasonManifest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifier.Classify(tt.name)
			want := Decision{Action: tt.action, Kind: tt.kind, Reason: tt.reason}
			if got != want {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.name, got, want)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	first := New(Rules{Exclude: []string{"ui/"}})
	second := New(Rules{Exclude: []string{"ui/"}})
	for _, name := range []string{"bg.png", "ui/a.png", "x.rpy"} {
		if first.Classify(name) != second.Classify(name) || first.Classify(name) != first.Classify(name) {
			t.Errorf("Classify(%q) not deterministic", name)
		}
	}
}

func TestDefaultExclusionOverride(t *testing.T) {
	withDefault := New(Rules{})
	if got := withDefault.Classify("gui/frame.png"); got.Action != Passthrough {
		t.Errorf("default exclusion inactive: %+v", got)
	}

	without := New(Rules{DisableDefaultExclusions: true})
	if got := without.Classify("gui/frame.png"); got.Action != Recode {
		t.Errorf("default exclusion not disabled: %+v", got)
	}
	if len(without.ExcludedPrefixes()) != 0 {
		t.Errorf("ExcludedPrefixes = %v, want none", without.ExcludedPrefixes())
	}
}

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ui", "ui/"},
		{"ui/", "ui/"},
		{"/ui//", "ui/"},
		{"Images\\Sprites", "images/sprites/"},
		{"", ""},
		{"/", ""},
	}
	for _, tt := range tests {
		if got := NormalizePrefix(tt.in); got != tt.want {
			t.Errorf("NormalizePrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExcludedPrefixesDeduplicated(t *testing.T) {
	classifier := New(Rules{Exclude: []string{"gui", "GUI/", "ui", "", "ui/"}})
	want := []string{"gui/", "ui/"}
	if got := classifier.ExcludedPrefixes(); !reflect.DeepEqual(got, want) {
		t.Errorf("ExcludedPrefixes = %v, want %v", got, want)
	}
}
