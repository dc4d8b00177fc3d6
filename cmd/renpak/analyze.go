// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/renpak/cmd/renpak/cli"
	"github.com/bureau-foundation/renpak/lib/classify"
	"github.com/bureau-foundation/renpak/lib/manifest"
	"github.com/bureau-foundation/renpak/lib/rpa"
)

type analyzeParams struct {
	cli.JSONOutput
	Exclude           []string `flag:"exclude,x" desc:"directory prefix never recoded (repeatable)"`
	NoDefaultExcludes bool     `flag:"no-default-excludes" desc:"recode gui/ too"`
	SequenceThreshold int      `flag:"sequence-threshold" desc:"shortest numbered run grouped into a sequence" default:"4"`
}

// tally is a count of entries and their bytes.
type tally struct {
	Key     string `json:"key"`
	Entries int    `json:"entries"`
	Bytes   int64  `json:"bytes"`
}

type analysis struct {
	Path       string  `json:"path"`
	Entries    int     `json:"entries"`
	Bytes      int64   `json:"bytes"`
	Extensions []tally `json:"extensions"`
	Decisions  []tally `json:"decisions"`

	// Sequences counts the numbered runs a build would group, and
	// SequenceFrames their members.
	Sequences      int `json:"sequences"`
	SequenceFrames int `json:"sequence_frames"`

	// Converted is set when the archive already carries a manifest.
	Converted bool `json:"converted"`
}

const analyzeUsage = "renpak analyze <archive.rpa> [flags]"

func analyzeCommand(env environment) *cli.Command {
	var params analyzeParams
	return &cli.Command{
		Name:    "analyze",
		Summary: "Report what a build would do with each entry",
		Description: `Classify every entry as a build would and report counts and bytes per
file extension and per decision, without encoding anything.`,
		Usage: analyzeUsage,
		Flags: func() *pflag.FlagSet {
			params = analyzeParams{}
			return cli.FlagsFromParams("analyze", &params)
		},
		Run: func(_ context.Context, args []string) error {
			if err := requireArgs(args, 1, analyzeUsage); err != nil {
				return err
			}
			reader, err := rpa.Open(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			classifier := classify.New(classify.Rules{
				Exclude:                  params.Exclude,
				DisableDefaultExclusions: params.NoDefaultExcludes,
			})
			result := analyzeEntries(args[0], reader.Entries(), classifier, params.SequenceThreshold)
			if done, err := params.EmitJSON(env.stdout, result); done {
				return err
			}
			return printAnalysis(env.stdout, result)
		},
	}
}

// analyzeEntries classifies entries and groups the recodable stills
// the way the build planner does.
func analyzeEntries(archive string, entries []rpa.Entry, classifier *classify.Classifier, threshold int) analysis {
	result := analysis{Path: archive, Entries: len(entries)}
	extensions := make(map[string]*tally)
	decisions := make(map[string]*tally)
	add := func(counts map[string]*tally, key string, size int64) {
		t, ok := counts[key]
		if !ok {
			t = &tally{Key: key}
			counts[key] = t
		}
		t.Entries++
		t.Bytes += size
	}

	var stills []string
	for _, entry := range entries {
		size := entry.Size()
		result.Bytes += size

		extension := strings.ToLower(path.Ext(entry.Name))
		if extension == "" {
			extension = "(none)"
		}
		add(extensions, extension, size)

		decision := classifier.Classify(entry.Name)
		if decision.Reason == classify.ReasonManifest {
			result.Converted = true
		}
		key := decision.Action.String() + " " + decision.Reason
		if decision.Action == classify.Recode {
			key = decision.Action.String() + " " + decision.Kind.String()
		}
		add(decisions, key, size)
		if decision.Action == classify.Recode && decision.Kind == classify.Image {
			stills = append(stills, entry.Name)
		}
	}

	if threshold == 0 {
		threshold = classify.DefaultSequenceThreshold
	}
	groups, _ := classify.GroupSequences(stills, threshold)
	result.Sequences = len(groups)
	for _, group := range groups {
		result.SequenceFrames += len(group.Members)
	}

	result.Extensions = sortedTallies(extensions)
	result.Decisions = sortedTallies(decisions)
	return result
}

// sortedTallies orders by bytes, largest first, then by key.
func sortedTallies(counts map[string]*tally) []tally {
	out := make([]tally, 0, len(counts))
	for _, t := range counts {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func printAnalysis(w io.Writer, result analysis) error {
	fmt.Fprintf(w, "%s: %d entries, %s\n", result.Path, result.Entries, humanize.IBytes(uint64(result.Bytes)))
	if result.Converted {
		fmt.Fprintf(w, "already converted (carries %s)\n", manifest.FileName)
	}

	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\nEXTENSION\tENTRIES\tBYTES\n")
	for _, t := range result.Extensions {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", t.Key, t.Entries, humanize.IBytes(uint64(t.Bytes)))
	}
	fmt.Fprintf(tw, "\nDECISION\tENTRIES\tBYTES\n")
	for _, t := range result.Decisions {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", t.Key, t.Entries, humanize.IBytes(uint64(t.Bytes)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if result.Sequences > 0 {
		fmt.Fprintf(w, "\n%d numbered sequence(s) covering %d frames\n", result.Sequences, result.SequenceFrames)
	}
	return nil
}
