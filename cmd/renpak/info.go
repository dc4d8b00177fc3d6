// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/renpak/cmd/renpak/cli"
	"github.com/bureau-foundation/renpak/lib/rpa"
)

type infoParams struct {
	cli.JSONOutput
	Summary bool `flag:"summary" desc:"print only the header, not the entry table"`
}

type infoEntry struct {
	Name   string `json:"name"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
	Prefix int    `json:"prefix_bytes,omitempty"`
}

type infoResult struct {
	Path        string      `json:"path"`
	Size        int64       `json:"size"`
	IndexOffset int64       `json:"index_offset"`
	Key         string      `json:"key"`
	EntryCount  int         `json:"entry_count"`
	Entries     []infoEntry `json:"entries,omitempty"`
}

const infoUsage = "renpak info <archive.rpa> [flags]"

func infoCommand(env environment) *cli.Command {
	var params infoParams
	return &cli.Command{
		Name:    "info",
		Summary: "Show an archive's header and entry table",
		Usage:   infoUsage,
		Flags: func() *pflag.FlagSet {
			params = infoParams{}
			return cli.FlagsFromParams("info", &params)
		},
		Run: func(_ context.Context, args []string) error {
			if err := requireArgs(args, 1, infoUsage); err != nil {
				return err
			}
			reader, err := rpa.Open(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			header := reader.Header()
			result := infoResult{
				Path:        args[0],
				Size:        reader.Size(),
				IndexOffset: header.IndexOffset,
				Key:         fmt.Sprintf("%#08x", uint32(header.Key)),
				EntryCount:  reader.Len(),
			}
			if !params.Summary {
				for _, entry := range reader.Entries() {
					result.Entries = append(result.Entries, infoEntry{
						Name:   entry.Name,
						Offset: entry.Offset,
						Size:   entry.Size(),
						Prefix: len(entry.Prefix),
					})
				}
			}
			if done, err := params.EmitJSON(env.stdout, result); done {
				return err
			}

			fmt.Fprintf(env.stdout, "%s\n", result.Path)
			fmt.Fprintf(env.stdout, "  size          %s\n", humanize.IBytes(uint64(result.Size)))
			fmt.Fprintf(env.stdout, "  index offset  %d\n", result.IndexOffset)
			fmt.Fprintf(env.stdout, "  key           %s\n", result.Key)
			fmt.Fprintf(env.stdout, "  entries       %d\n", result.EntryCount)
			if len(result.Entries) == 0 {
				return nil
			}
			fmt.Fprintln(env.stdout)
			tw := tabwriter.NewWriter(env.stdout, 2, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(tw, "OFFSET\tSIZE\t  NAME\t\n")
			for _, entry := range result.Entries {
				fmt.Fprintf(tw, "%d\t%s\t  %s\t\n", entry.Offset, humanize.IBytes(uint64(entry.Size)), entry.Name)
			}
			return tw.Flush()
		},
	}
}
