// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/renpak/cmd/renpak/cli"
	"github.com/bureau-foundation/renpak/lib/failure"
	"github.com/bureau-foundation/renpak/lib/manifest"
	"github.com/bureau-foundation/renpak/lib/rpa"
)

type manifestParams struct {
	Originals bool `flag:"originals" desc:"list the mapped original names instead of the document"`
}

const manifestUsage = "renpak manifest <archive.rpa> [flags]"

func manifestCommand(env environment) *cli.Command {
	var params manifestParams
	return &cli.Command{
		Name:    "manifest",
		Summary: "Print the manifest embedded in a converted archive",
		Usage:   manifestUsage,
		Flags: func() *pflag.FlagSet {
			params = manifestParams{}
			return cli.FlagsFromParams("manifest", &params)
		},
		Run: func(_ context.Context, args []string) error {
			if err := requireArgs(args, 1, manifestUsage); err != nil {
				return err
			}
			document, err := readManifest(args[0])
			if err != nil {
				return err
			}
			if params.Originals {
				for _, name := range document.Originals() {
					fmt.Fprintln(env.stdout, name)
				}
				return nil
			}
			data, err := document.Marshal()
			if err != nil {
				return err
			}
			_, err = env.stdout.Write(data)
			return err
		},
	}
}

// readManifest parses the manifest embedded in the archive at path.
func readManifest(path string) (*manifest.Manifest, error) {
	reader, err := rpa.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := reader.Read(manifest.FileName)
	if errors.Is(err, os.ErrNotExist) {
		return nil, failure.Formatf("read manifest", path, "no %s entry; the archive has not been converted", manifest.FileName)
	}
	if err != nil {
		return nil, err
	}
	return manifest.Parse(data)
}
