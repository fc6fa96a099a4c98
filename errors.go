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

import (
	"errors"
	"fmt"
)

// ErrFastqIndex is the base error for all fastqindex errors. Every other
// sentinel in this file wraps it, so callers can match broadly with
// errors.Is(err, fastqindex.ErrFastqIndex) or narrowly against a specific
// sentinel below.
var ErrFastqIndex = errors.New("fastqindex")

var (
	// ErrBadRequest indicates caller-supplied parameters violate a
	// precondition: a zero line count, a segment index past the segment
	// count, a record-size mismatch, or a line range entirely invalid.
	ErrBadRequest = wrap("bad request")

	// ErrSourceOpen indicates a Source failed to open.
	ErrSourceOpen = wrap("opening source")

	// ErrSourceRead indicates an I/O failure reading from a Source.
	ErrSourceRead = wrap("reading source")

	// ErrSourceSeek indicates a Source could not seek to the requested
	// offset.
	ErrSourceSeek = wrap("seeking source")

	// ErrSinkOpen indicates a Sink failed to open.
	ErrSinkOpen = wrap("opening sink")

	// ErrSinkWrite indicates an I/O failure writing to a Sink.
	ErrSinkWrite = wrap("writing sink")

	// ErrLockContention indicates an advisory lock could not be acquired.
	ErrLockContention = wrap("lock contention")

	// ErrFormatInvalid indicates a bad magic number, an unsupported
	// writer version, or a file-size/entry-size mismatch.
	ErrFormatInvalid = wrap("invalid index format")

	// ErrCorruptSource indicates inflate reported a data or memory
	// error, or dictionary decompression failed.
	ErrCorruptSource = wrap("corrupt compressed source")

	// ErrDecoderInit indicates the raw inflate codec refused to be
	// primed with the recorded bit offset or dictionary.
	ErrDecoderInit = wrap("initializing decoder")

	// ErrProtocolMisuse indicates the writer or reader was invoked out
	// of order: an entry before the header, a second header, or a read
	// before open.
	ErrProtocolMisuse = wrap("protocol misuse")

	// ErrAlreadyStarted indicates an Indexer was reused; CreateIndex may
	// only be called once per Indexer.
	ErrAlreadyStarted = wrap("indexer already started")
)

func wrap(msg string) error {
	return fmt.Errorf("%w: %s", ErrFastqIndex, msg)
}
