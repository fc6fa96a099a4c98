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
	"os"

	"github.com/urfave/cli/v2"

	fastqindex "github.com/ianlewis/fastqindex"
)

func newExtractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "extract a line range or segment from an indexed, gzip-compressed file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "index",
				Usage: "path to the index (default: FILE.fqi)",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "path to write extracted lines to (default: stdout)",
			},
			&cli.Int64Flag{
				Name:  "start-line",
				Usage: "zero-based line to start extraction at",
			},
			&cli.Int64Flag{
				Name:  "line-count",
				Usage: "number of lines to extract",
			},
			&cli.Int64Flag{
				Name:  "segment",
				Usage: "segment index to extract (use with --segment-count)",
				Value: -1,
			},
			&cli.Int64Flag{
				Name:  "segment-count",
				Usage: "total number of segments",
			},
			&cli.Int64Flag{
				Name:  "record-size",
				Usage: "lines per record for segmentation",
				Value: fastqindex.DefaultRecordSize,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "buffer extracted lines in memory and truncate at the end, instead of streaming",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("%w: expected exactly one FILE argument", ErrFlagParse)
			}
			path := c.Args().Get(0)
			indexPath := c.String("index")
			if indexPath == "" {
				indexPath = path + ".fqi"
			}

			var sink fastqindex.Sink
			if out := c.String("output"); out != "" {
				sink = fastqindex.NewFileSink(out, true)
			} else {
				sink = fastqindex.NewConsoleSink(os.Stdout)
			}
			if err := sink.Open(); err != nil {
				return err
			}

			compressed := fastqindex.NewFileSource(path)
			index := fastqindex.NewFileSource(indexPath)
			ex := fastqindex.NewExtractor(compressed, index, sink)
			ex.Debug = c.Bool("debug")

			ctx := context.Background()
			if c.Int64("segment") >= 0 {
				err := ex.ExtractSegment(ctx, c.Int64("segment"), c.Int64("segment-count"), c.Int64("record-size"))
				return logDiagnostics(c, ex, err)
			}
			err := ex.ExtractLines(ctx, c.Int64("start-line"), c.Int64("line-count"))
			return logDiagnostics(c, ex, err)
		},
	}
}

func logDiagnostics(c *cli.Context, ex *fastqindex.Extractor, err error) error {
	for _, d := range ex.Diagnostics() {
		fmt.Fprintln(c.App.ErrWriter, d)
	}
	return err
}
