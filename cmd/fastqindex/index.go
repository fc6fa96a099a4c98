// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	fastqindex "github.com/ianlewis/fastqindex"
)

func newIndexCommand() *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "build a resume-point index over a gzip-compressed file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "output",
				Usage: "path to write the index to (default: FILE.fqi)",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "overwrite an existing index file",
			},
			&cli.StringFlag{
				Name:  "distance",
				Usage: "block distance between stored entries, or a byte distance like 4m/auto",
				Value: "auto",
			},
			&cli.BoolFlag{
				Name:  "byte-distance",
				Usage: "interpret --distance as a byte distance instead of a block count",
			},
			&cli.BoolFlag{
				Name:  "compress-dictionaries",
				Usage: "zlib-compress each entry's stored dictionary",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("%w: expected exactly one FILE argument", ErrFlagParse)
			}
			path := c.Args().Get(0)
			outPath := c.String("output")
			if outPath == "" {
				outPath = path + ".fqi"
			}

			policy, err := buildPolicy(c)
			if err != nil {
				return err
			}

			src := fastqindex.NewFileSource(path)
			sink := fastqindex.NewFileSink(outPath, c.Bool("force"))
			writer := fastqindex.NewIndexWriter(sink, c.Bool("compress-dictionaries"), 0)
			if err := writer.Open(); err != nil {
				return err
			}

			if err := src.Open(); err != nil {
				return err
			}
			defer src.Close()

			indexer := fastqindex.NewIndexer(src, writer, policy)
			if err := indexer.CreateIndex(context.Background()); err != nil {
				return err
			}
			for _, d := range indexer.Diagnostics() {
				fmt.Fprintln(c.App.ErrWriter, d)
			}
			return nil
		},
	}
}

func buildPolicy(c *cli.Context) (fastqindex.StorageDecisionPolicy, error) {
	raw := c.String("distance")
	if c.Bool("byte-distance") {
		d, err := fastqindex.ParseByteDistance(raw)
		if err != nil {
			return nil, err
		}
		return fastqindex.NewByteDistanceStrategy(d), nil
	}
	if raw == "auto" {
		return fastqindex.NewBlockDistanceStrategy(), nil
	}
	d, err := fastqindex.ParseByteDistance(raw)
	if err != nil {
		return nil, err
	}
	return &fastqindex.BlockDistanceStrategy{Interval: int(d), UseMinimumByteDistance: true}, nil
}
