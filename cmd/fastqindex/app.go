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

// Command fastqindex builds and queries resume-point indexes over
// gzip-compressed FASTQ streams.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	fastqindex "github.com/ianlewis/fastqindex"
)

// Exit codes per the external interface contract: 0 success, 1 runtime
// error, 2 a flag-parsing error.
const (
	ExitCodeSuccess int = iota
	ExitCodeUnknownError
	ExitCodeFlagParseError
)

// ErrFlagParse is a flag parsing error.
var ErrFlagParse = errors.New("parsing flags")

func init() {
	// See github.com/urfave/cli/issues/1809: a subcommand-based app
	// needs HelpFlag renamed so top-level `--help` doesn't get
	// mistaken for a command name.
	cli.HelpFlag = &cli.BoolFlag{
		Name:               "d41d8cd98f00b204e980",
		DisableDefaultText: true,
	}
}

func must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

func newApp() *cli.App {
	return &cli.App{
		Name:  filepath.Base(os.Args[0]),
		Usage: "Build and query resume-point indexes over gzip-compressed FASTQ streams.",
		Description: strings.Join([]string{
			"fastqindex(1) random-access line extraction for gzip FASTQ files.",
			"http://github.com/ianlewis/fastqindex",
		}, "\n"),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:               "version",
				Usage:              "print version information and exit",
				DisableDefaultText: true,
			},
			&cli.BoolFlag{
				Name:               "license",
				Usage:              "print license information and exit",
				DisableDefaultText: true,
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				fastqindex.SetLogLevel(logrus.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			newIndexCommand(),
			newExtractCommand(),
			newStatsCommand(),
		},
		Copyright:       "Google LLC",
		HideHelpCommand: true,
		Action: func(c *cli.Context) error {
			if c.Bool("license") {
				return printLicense(c)
			}
			if c.Bool("version") {
				return printVersion(c)
			}
			return cli.ShowAppHelp(c)
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}
			_ = must(fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", c.App.Name, err))
			if errors.Is(err, ErrFlagParse) {
				cli.OsExiter(ExitCodeFlagParseError)
				return
			}
			cli.OsExiter(ExitCodeUnknownError)
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(ExitCodeUnknownError)
	}
}
