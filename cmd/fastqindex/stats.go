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
	"fmt"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	fastqindex "github.com/ianlewis/fastqindex"
)

func newStatsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "report summary statistics for an index file",
		ArgsUsage: "INDEX_FILE",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("%w: expected exactly one INDEX_FILE argument", ErrFlagParse)
			}
			src := fastqindex.NewFileSource(c.Args().Get(0))
			reader, err := fastqindex.NewIndexReader(src)
			if err != nil {
				return err
			}
			defer reader.Close()

			h := reader.Header()
			tbl := table.New("field", "value")
			tbl.AddRow("writer version", h.WriterVersion)
			tbl.AddRow("entries", h.EntryCount)
			tbl.AddRow("lines in indexed file", h.LinesInIndexedFile)
			tbl.AddRow("block interval", h.BlockInterval)
			tbl.AddRow("dictionaries compressed", h.DictionariesCompressed)
			tbl.Print()
			return nil
		},
	}
}
