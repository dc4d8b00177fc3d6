// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest builds and reads the name-mapping record embedded
// in every renpak output archive.
//
// The manifest maps each recoded original entry name to the archive
// entry that now holds its pixels, and describes every sequence
// payload the runtime decoder may be asked to open. It is JSON so the
// runtime hook can load it with nothing but the engine's standard
// library, and it carries a format tag and version so a hook built for
// an older layout refuses a newer one instead of misreading it.
//
// [Build] is a pure function of the recode results. [Resolver] answers
// the two questions the runtime hook asks, "what replaces this name"
// and "is this name loadable", with case-insensitive O(1) lookups.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bureau-foundation/renpak/lib/failure"
	"github.com/tidwall/jsonc"
)

const (
	// FormatTag identifies a renpak manifest.
	FormatTag = "renpak-manifest"

	// Version is the manifest layout this package writes and the
	// newest it reads.
	Version = 1

	// FileName is the archive entry holding the embedded manifest.
	FileName = "renpak_manifest.json"

	// RecodedSuffix ends every recoded entry name. The engine treats
	// the name as opaque; the runtime hook recognizes the suffix.
	RecodedSuffix = ".webp._recoded"

	// SequenceDirectory holds grouped sequence payloads.
	SequenceDirectory = "sequences/"

	// GOPStar names the star group-of-pictures layout: frame 0 is the
	// only keyframe and every other frame references it directly.
	GOPStar = "star"
)

// ErrUnsupportedManifestVersion is returned by Parse for manifests
// newer than Version.
var ErrUnsupportedManifestVersion = errors.New("unsupported manifest version")

// Kind distinguishes stills from sequence frames.
type Kind string

const (
	KindImage    Kind = "image"
	KindSequence Kind = "sequence"
)

// Entry describes where one original name's pixels now live.
type Entry struct {
	Target string `json:"target"`
	Kind   Kind   `json:"kind"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	// Frame is the index within Target for sequence members. Nil for
	// stills.
	Frame *int `json:"frame,omitempty"`
}

// Sequence describes a sequence payload for the runtime decoder.
type Sequence struct {
	FrameCount int    `json:"frame_count"`
	GOP        string `json:"gop"`
	Keyframe   int    `json:"keyframe"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// Manifest is the complete name-mapping record.
type Manifest struct {
	Format    string              `json:"format"`
	Version   int                 `json:"version"`
	Generator string              `json:"generator,omitempty"`
	Entries   map[string]Entry    `json:"entries"`
	Sequences map[string]Sequence `json:"sequences"`
}

// Result is one successful recode as reported by the pipeline.
type Result struct {
	Kind   Kind
	Target string

	// Sources are the original entry names. A still has exactly one;
	// a sequence lists its members in frame order.
	Sources []string

	// Frames is the payload frame count when it differs from
	// len(Sources), as for an animated GIF recoded from one entry.
	// Zero means one frame per source.
	Frames int

	Width  int
	Height int
}

func (r Result) frameCount() int {
	if r.Frames > 0 {
		return r.Frames
	}
	return len(r.Sources)
}

// TargetName returns the recoded entry name for a still:
// "images/bg.png" becomes "images/bg.webp._recoded".
func TargetName(original string) string {
	extension := path.Ext(original)
	if strings.Contains(extension, "/") {
		extension = ""
	}
	return original[:len(original)-len(extension)] + RecodedSuffix
}

// SequenceTargetName returns the payload name for a group of numbered
// frames sharing prefix: "images/01/ale " becomes
// "sequences/images/01/ale.webp._recoded".
func SequenceTargetName(prefix string) string {
	base := strings.TrimRight(prefix, " _-./")
	base = strings.TrimLeft(base, "/")
	if base == "" {
		base = "sequence"
	}
	return SequenceDirectory + base + RecodedSuffix
}

// Build assembles a manifest from recode results. names is the full
// set of entry names present in the output archive before the
// manifest itself is added; every target must be among them and every
// source must not be, so the runtime never shadows a real entry.
func Build(names []string, results []Result, generator string) (*Manifest, error) {
	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[strings.ToLower(name)] = true
	}

	manifest := &Manifest{
		Format:    FormatTag,
		Version:   Version,
		Generator: generator,
		Entries:   make(map[string]Entry),
		Sequences: make(map[string]Sequence),
	}
	sources := make(map[string]string)
	targets := make(map[string]bool)

	for _, result := range results {
		if result.Width <= 0 || result.Height <= 0 {
			return nil, fmt.Errorf("manifest: %s has dimensions %dx%d", result.Target, result.Width, result.Height)
		}
		if len(result.Sources) == 0 {
			return nil, fmt.Errorf("manifest: %s has no sources", result.Target)
		}
		if !present[strings.ToLower(result.Target)] {
			return nil, fmt.Errorf("manifest: target %s is not in the archive", result.Target)
		}
		if targets[strings.ToLower(result.Target)] {
			return nil, fmt.Errorf("manifest: target %s produced twice", result.Target)
		}
		targets[strings.ToLower(result.Target)] = true

		switch result.Kind {
		case KindImage:
			if len(result.Sources) != 1 {
				return nil, fmt.Errorf("manifest: image %s has %d sources", result.Target, len(result.Sources))
			}
		case KindSequence:
			if result.frameCount() < len(result.Sources) {
				return nil, fmt.Errorf("manifest: sequence %s has %d frames for %d sources",
					result.Target, result.frameCount(), len(result.Sources))
			}
			manifest.Sequences[result.Target] = Sequence{
				FrameCount: result.frameCount(),
				GOP:        GOPStar,
				Keyframe:   0,
				Width:      result.Width,
				Height:     result.Height,
			}
		default:
			return nil, fmt.Errorf("manifest: %s has unknown kind %q", result.Target, result.Kind)
		}

		for frame, source := range result.Sources {
			lower := strings.ToLower(source)
			if previous, duplicate := sources[lower]; duplicate {
				return nil, fmt.Errorf("manifest: %s mapped by both %s and %s", source, previous, result.Target)
			}
			if present[lower] {
				return nil, fmt.Errorf("manifest: %s is still present in the archive", source)
			}
			sources[lower] = result.Target
			entry := Entry{Target: result.Target, Kind: result.Kind, Width: result.Width, Height: result.Height}
			if result.Kind == KindSequence {
				index := frame
				entry.Frame = &index
			}
			manifest.Entries[source] = entry
		}
	}
	return manifest, nil
}

// Marshal encodes the manifest as indented JSON with sorted keys and a
// trailing newline, so identical builds produce identical bytes.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Originals returns the mapped original names in sorted order.
func (m *Manifest) Originals() []string {
	names := make([]string, 0, len(m.Entries))
	for name := range m.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse decodes a manifest. Comments and trailing commas are accepted
// so hand-edited manifests load. A wrong format tag is a format error;
// a newer version is ErrUnsupportedManifestVersion.
func Parse(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &manifest); err != nil {
		return nil, failure.New(failure.Format, "parse manifest", FileName, err)
	}
	if manifest.Format != FormatTag {
		return nil, failure.Formatf("parse manifest", FileName, "format tag %q, want %q", manifest.Format, FormatTag)
	}
	if manifest.Version < 1 || manifest.Version > Version {
		return nil, failure.New(failure.Format, "parse manifest", FileName,
			fmt.Errorf("%w: version %d, this build reads up to %d", ErrUnsupportedManifestVersion, manifest.Version, Version))
	}
	if manifest.Entries == nil {
		manifest.Entries = make(map[string]Entry)
	}
	if manifest.Sequences == nil {
		manifest.Sequences = make(map[string]Sequence)
	}
	for name, entry := range manifest.Entries {
		if entry.Kind == KindSequence {
			sequence, ok := manifest.Sequences[entry.Target]
			if !ok {
				return nil, failure.Formatf("parse manifest", name, "sequence %s is not described", entry.Target)
			}
			if entry.Frame == nil || *entry.Frame < 0 || *entry.Frame >= sequence.FrameCount {
				return nil, failure.Formatf("parse manifest", name, "frame index out of range for %s", entry.Target)
			}
		}
	}
	return &manifest, nil
}
