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

package fastqindex

import "github.com/sirupsen/logrus"

// logger is the package-wide structured logger. Indexer and Extractor
// runs attach "component" and run-specific fields to it; they never log
// from the per-block/per-line hot path, only at run boundaries and for
// the diagnostic notes also recorded in Diagnostics().
var logger = logrus.New()

func init() {
	logger.SetLevel(logrus.WarnLevel)
}

// SetLogLevel adjusts the package-wide log verbosity. The CLI's
// --verbose flag calls this with logrus.DebugLevel.
func SetLogLevel(level logrus.Level) {
	logger.SetLevel(level)
}

func packageLogger() *logrus.Entry {
	return logrus.NewEntry(logger)
}
