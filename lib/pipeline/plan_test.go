// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"slices"
	"testing"

	"github.com/bureau-foundation/renpak/lib/classify"
	"github.com/bureau-foundation/renpak/lib/failure"
	"github.com/bureau-foundation/renpak/lib/manifest"
	"github.com/bureau-foundation/renpak/lib/rpa"
	"github.com/bureau-foundation/renpak/lib/rpa/rpatest"
)

func planFor(t *testing.T, threshold int, files ...rpatest.File) (*plan, error) {
	t.Helper()
	path := rpatest.Write(t, t.TempDir(), "game.rpa", fixtureKey, files...)
	reader, err := rpa.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { reader.Close() })
	return makePlan(reader, classify.New(classify.Rules{}), threshold)
}

func TestMakePlan(t *testing.T) {
	png := []byte("png")
	p, err := planFor(t, 3,
		rpatest.File{Name: "bg.png", Data: png},
		rpatest.File{Name: "gui/button.png", Data: png},
		rpatest.File{Name: "run 2.png", Data: png},
		rpatest.File{Name: "fx.gif", Data: png},
		rpatest.File{Name: "run 1.png", Data: png},
		rpatest.File{Name: "movie.webm", Data: png},
		rpatest.File{Name: "run 3.png", Data: png},
	)
	if err != nil {
		t.Fatalf("makePlan: %v", err)
	}

	type want struct {
		kind    slotKind
		name    string
		sources []string
	}
	wants := []want{
		{slotImage, "bg.webp._recoded", []string{"bg.png"}},
		{slotPassthrough, "gui/button.png", []string{"gui/button.png"}},
		{slotSequence, "sequences/run.webp._recoded", []string{"run 1.png", "run 2.png", "run 3.png"}},
		{slotAnimation, "fx.webp._recoded", []string{"fx.gif"}},
		{slotPassthrough, "movie.webm", []string{"movie.webm"}},
	}
	if len(p.slots) != len(wants) {
		t.Fatalf("plan has %d slots, want %d", len(p.slots), len(wants))
	}
	for index, w := range wants {
		s := p.slots[index]
		var sources []string
		for _, entry := range s.sources {
			sources = append(sources, entry.Name)
		}
		if s.kind != w.kind || s.name() != w.name || !slices.Equal(sources, w.sources) || s.index != index {
			t.Errorf("slot %d = %s %q %q, want %s %q %q", index, s.kind, s.name(), sources, w.kind, w.name, w.sources)
		}
		if (s.done != nil) != (s.kind != slotPassthrough) {
			t.Errorf("slot %d handoff channel mismatch", index)
		}
	}
	if p.recodes != 3 {
		t.Errorf("recodes = %d, want 3", p.recodes)
	}
}

func TestMakePlanRejectsCorruptManifest(t *testing.T) {
	_, err := planFor(t, 4, rpatest.File{Name: manifest.FileName, Data: []byte("{not json")})
	if failure.ClassOf(err) != failure.Format {
		t.Errorf("err = %v, want a format failure", err)
	}
}

func TestPlanClaimFoldsCase(t *testing.T) {
	p := &plan{present: map[string]bool{"taken.webp._recoded": true}, claimed: map[string]bool{}}
	if p.claim("Taken.webp._recoded") {
		t.Error("claimed a name present in the input")
	}
	if !p.claim("Free.webp._recoded") {
		t.Error("could not claim a free name")
	}
	if p.claim("free.WEBP._recoded") {
		t.Error("claimed the same name twice")
	}
}

func TestCarryForward(t *testing.T) {
	zero, one := 0, 1
	previous := &manifest.Manifest{
		Entries: map[string]manifest.Entry{
			"bg.png":     {Target: "bg.webp._recoded", Kind: manifest.KindImage, Width: 4, Height: 4},
			"gone.png":   {Target: "gone.webp._recoded", Kind: manifest.KindImage, Width: 4, Height: 4},
			"back.png":   {Target: "back.webp._recoded", Kind: manifest.KindImage, Width: 4, Height: 4},
			"walk 2.png": {Target: "sequences/walk.webp._recoded", Kind: manifest.KindSequence, Width: 8, Height: 8, Frame: &one},
			"walk 1.png": {Target: "sequences/walk.webp._recoded", Kind: manifest.KindSequence, Width: 8, Height: 8, Frame: &zero},
			"ale 1.png":  {Target: "sequences/ale.webp._recoded", Kind: manifest.KindSequence, Width: 8, Height: 8, Frame: &zero},
			"ale 2.png":  {Target: "sequences/ale.webp._recoded", Kind: manifest.KindSequence, Width: 8, Height: 8, Frame: &one},
		},
		Sequences: map[string]manifest.Sequence{
			"sequences/walk.webp._recoded": {FrameCount: 2, GOP: manifest.GOPStar, Width: 8, Height: 8},
			"sequences/ale.webp._recoded":  {FrameCount: 2, GOP: manifest.GOPStar, Width: 8, Height: 8},
		},
	}
	present := map[string]bool{
		"bg.webp._recoded":             true,
		"back.webp._recoded":           true,
		"back.png":                     true,
		"sequences/walk.webp._recoded": true,
		"sequences/ale.webp._recoded":  true,
		"ale 2.png":                    true,
	}

	results := carryForward(previous, present)
	var targets []string
	for _, result := range results {
		targets = append(targets, result.Target)
	}
	want := []string{"bg.webp._recoded", "sequences/walk.webp._recoded"}
	if !slices.Equal(targets, want) {
		t.Fatalf("carried targets = %q, want %q", targets, want)
	}
	walk := results[1]
	if !slices.Equal(walk.Sources, []string{"walk 1.png", "walk 2.png"}) || walk.Frames != 2 || walk.Kind != manifest.KindSequence {
		t.Errorf("walk = %+v", walk)
	}
}

func TestSlotSourceBytes(t *testing.T) {
	s := &slot{sources: []rpa.Entry{{Length: 10, Prefix: []byte("ab")}, {Length: 5}}}
	if got := s.sourceBytes(); got != 17 {
		t.Errorf("sourceBytes = %d, want 17", got)
	}
}
