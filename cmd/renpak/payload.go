// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/renpak/cmd/renpak/cli"
	"github.com/bureau-foundation/renpak/lib/failure"
	"github.com/bureau-foundation/renpak/lib/imagecodec"
	"github.com/bureau-foundation/renpak/lib/manifest"
	"github.com/bureau-foundation/renpak/lib/rpa"
)

type payloadParams struct {
	cli.JSONOutput
	CBOR bool `flag:"cbor" desc:"print the raw envelope header in CBOR diagnostic notation"`
}

type payloadResult struct {
	Entry    string `json:"entry"`
	Original string `json:"original,omitempty"`
	Bytes    int    `json:"bytes"`
	*imagecodec.Info
}

const payloadUsage = "renpak payload <archive.rpa> <entry> [flags]"

func payloadCommand(env environment) *cli.Command {
	var params payloadParams
	return &cli.Command{
		Name:    "payload",
		Summary: "Describe one recoded payload",
		Description: `Print the envelope header of a recoded entry. The entry may be named
by its recoded name or by any original name the manifest maps to it.`,
		Usage: payloadUsage,
		Flags: func() *pflag.FlagSet {
			params = payloadParams{}
			return cli.FlagsFromParams("payload", &params)
		},
		Run: func(_ context.Context, args []string) error {
			if err := requireArgs(args, 2, payloadUsage); err != nil {
				return err
			}
			reader, err := rpa.Open(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			name, original, err := resolvePayloadName(reader, args[1])
			if err != nil {
				return err
			}
			data, err := reader.Read(name)
			if err != nil {
				return err
			}
			if !imagecodec.IsPayload(data) {
				return failure.Formatf("read payload", name, "entry is not a recoded payload")
			}

			if params.CBOR {
				diagnostic, err := imagecodec.HeaderDiagnostic(data)
				if err != nil {
					return err
				}
				fmt.Fprintln(env.stdout, diagnostic)
				return nil
			}
			info, err := imagecodec.ReadInfo(data)
			if err != nil {
				return err
			}
			result := payloadResult{Entry: name, Original: original, Bytes: len(data), Info: info}
			if done, err := params.EmitJSON(env.stdout, result); done {
				return err
			}

			fmt.Fprintf(env.stdout, "%s\n", name)
			if original != "" {
				fmt.Fprintf(env.stdout, "  original  %s\n", original)
			}
			fmt.Fprintf(env.stdout, "  kind      %s, %d frame(s), %s GOP\n", info.Kind, info.FrameCount(), info.GOP)
			fmt.Fprintf(env.stdout, "  size      %dx%d (coded %dx%d)\n", info.Width, info.Height, info.PaddedWidth, info.PaddedHeight)
			fmt.Fprintf(env.stdout, "  backend   %s %s, lossless=%v\n", info.Backend, info.BackendVersion, info.Lossless)
			fmt.Fprintf(env.stdout, "  bytes     %s\n", humanize.IBytes(uint64(len(data))))
			return nil
		},
	}
}

// resolvePayloadName maps name to the archive entry holding its
// pixels. Original names resolve through the embedded manifest.
func resolvePayloadName(reader *rpa.Reader, name string) (string, string, error) {
	if _, ok := reader.Lookup(name); ok {
		return name, "", nil
	}
	data, err := reader.Read(manifest.FileName)
	if errors.Is(err, os.ErrNotExist) {
		return "", "", failure.New(failure.Format, "find payload", name, os.ErrNotExist)
	}
	if err != nil {
		return "", "", err
	}
	document, err := manifest.Parse(data)
	if err != nil {
		return "", "", err
	}
	entry, ok := manifest.NewResolver(document).Lookup(name)
	if !ok {
		return "", "", failure.New(failure.Format, "find payload", name, os.ErrNotExist)
	}
	return entry.Target, name, nil
}
