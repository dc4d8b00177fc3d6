// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package classify decides which archive entries are re-encoded.
//
// Classification is a pure function of the entry name and the
// exclusion rules: no I/O, no state, deterministic. The pipeline calls
// [Classifier.Classify] once per entry while planning a build and
// [GroupSequences] once over the still images to find numbered runs
// that encode better as a single sequence.
package classify

import (
	"path"
	"strings"

	"github.com/bureau-foundation/renpak/lib/manifest"
)

// Action is what the pipeline does with an entry.
type Action uint8

const (
	Passthrough Action = iota
	Recode
)

func (a Action) String() string {
	if a == Recode {
		return "recode"
	}
	return "passthrough"
}

// Kind is the media kind of a recoded entry.
type Kind uint8

const (
	KindNone Kind = iota
	Image
	Sequence
)

func (k Kind) String() string {
	switch k {
	case Image:
		return "image"
	case Sequence:
		return "sequence"
	default:
		return "none"
	}
}

// Reasons reported in a Decision.
const (
	ReasonStill          = "still_image"
	ReasonAnimated       = "animated_image"
	ReasonExcluded       = "excluded_prefix"
	ReasonNotMedia       = "not_media"
	ReasonNoFrameDecoder = "no_frame_decoder"
	ReasonAlreadyRecoded = "already_recoded"
	ReasonManifest       = "manifest"
)

// Decision is the classification of one entry.
type Decision struct {
	Action Action
	Kind   Kind
	Reason string
}

// DefaultExclusion is the UI asset directory excluded unless
// Rules.DisableDefaultExclusions is set. UI art is drawn at exact
// pixel sizes and tinted by the engine, so it stays in its source
// format.
const DefaultExclusion = "gui/"

// Rules configures exclusions.
type Rules struct {
	// Exclude lists directory prefixes never recoded. A trailing slash
	// is implied and matching is case-insensitive.
	Exclude []string

	// DisableDefaultExclusions drops DefaultExclusion.
	DisableDefaultExclusions bool
}

var stillExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".bmp": true,
}

var animatedExtensions = map[string]bool{
	".gif": true,
}

// Video containers are recognized so they are reported distinctly,
// but no frame decoder exists for them and they pass through.
var videoExtensions = map[string]bool{
	".webm": true, ".mp4": true, ".ogv": true, ".mkv": true, ".avi": true, ".mov": true,
}

// Classifier applies a fixed set of rules. The zero value is not
// usable; construct with New.
type Classifier struct {
	prefixes []string
}

// New builds a Classifier from rules.
func New(rules Rules) *Classifier {
	var prefixes []string
	if !rules.DisableDefaultExclusions {
		prefixes = append(prefixes, DefaultExclusion)
	}
	seen := make(map[string]bool)
	for _, prefix := range prefixes {
		seen[prefix] = true
	}
	for _, raw := range rules.Exclude {
		prefix := NormalizePrefix(raw)
		if prefix == "" || seen[prefix] {
			continue
		}
		seen[prefix] = true
		prefixes = append(prefixes, prefix)
	}
	return &Classifier{prefixes: prefixes}
}

// NormalizePrefix lowercases a directory prefix, strips leading
// slashes, and ensures exactly one trailing slash. An empty or
// root-only prefix normalizes to "".
func NormalizePrefix(prefix string) string {
	prefix = strings.ToLower(strings.ReplaceAll(prefix, "\\", "/"))
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// ExcludedPrefixes returns the active exclusion prefixes in
// normalized form.
func (c *Classifier) ExcludedPrefixes() []string {
	out := make([]string, len(c.prefixes))
	copy(out, c.prefixes)
	return out
}

// Excluded reports whether name falls under an exclusion prefix.
func (c *Classifier) Excluded(name string) bool {
	lower := strings.ToLower(strings.TrimLeft(name, "/"))
	for _, prefix := range c.prefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Classify decides what happens to the entry called name.
func (c *Classifier) Classify(name string) Decision {
	lower := strings.ToLower(name)
	if lower == manifest.FileName {
		return Decision{Action: Passthrough, Reason: ReasonManifest}
	}
	if strings.HasSuffix(lower, manifest.RecodedSuffix) {
		return Decision{Action: Passthrough, Reason: ReasonAlreadyRecoded}
	}

	extension := path.Ext(lower)
	switch {
	case stillExtensions[extension]:
		if c.Excluded(name) {
			return Decision{Action: Passthrough, Reason: ReasonExcluded}
		}
		return Decision{Action: Recode, Kind: Image, Reason: ReasonStill}
	case animatedExtensions[extension]:
		if c.Excluded(name) {
			return Decision{Action: Passthrough, Reason: ReasonExcluded}
		}
		return Decision{Action: Recode, Kind: Sequence, Reason: ReasonAnimated}
	case videoExtensions[extension]:
		return Decision{Action: Passthrough, Reason: ReasonNoFrameDecoder}
	default:
		return Decision{Action: Passthrough, Reason: ReasonNotMedia}
	}
}
