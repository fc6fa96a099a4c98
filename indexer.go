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
	"bytes"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Indexer drives the DEFLATE framing observer over a compressed Source
// until it is exhausted, maintaining line-counting state across
// arbitrary block/line boundaries and emitting resume records to an
// IndexWriter as its storage-decision policy accepts them.
//
// An Indexer is single-use: CreateIndex may be called at most once.
type Indexer struct {
	source Source
	writer *IndexWriter
	policy StorageDecisionPolicy
	log    *logrus.Entry

	started bool
	diagnostics []string
}

// NewIndexer returns an Indexer that reads source and writes accepted
// entries to writer using policy to decide which blocks to store.
func NewIndexer(source Source, writer *IndexWriter, policy StorageDecisionPolicy) *Indexer {
	return &Indexer{source: source, writer: writer, policy: policy, log: packageLogger().WithField("component", "indexer")}
}

// Diagnostics returns messages accumulated over the run (concatenated
// members detected, blocks skipped by policy, and similar non-fatal
// observations), in the order they occurred.
func (ix *Indexer) Diagnostics() []string {
	return ix.diagnostics
}

func (ix *Indexer) note(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	ix.diagnostics = append(ix.diagnostics, msg)
	ix.log.Debug(msg)
}

// CreateIndex builds the index, writing entries to ix.writer as they
// are accepted and finalizing the header when the Source is exhausted.
// It fails with ErrAlreadyStarted if called more than once.
func (ix *Indexer) CreateIndex(ctx context.Context) error {
	if ix.started {
		return ErrAlreadyStarted
	}
	ix.started = true

	size, err := ix.source.Size()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceRead, err)
	}
	ix.policy.UseFileSizeForCalculation(size)

	observer, err := newAutoDetectObserver(ix.source)
	if err != nil {
		return err
	}

	var (
		runningLine          uint64
		lastStored           *IndexEntry
		prevEndedWithNewline = true
		lastConcatenatedParts = 1
	)

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrSourceRead, err)
		}

		block, err := observer.Next()
		if err != nil {
			return err
		}
		if observer.ConcatenatedParts() != lastConcatenatedParts {
			lastConcatenatedParts = observer.ConcatenatedParts()
			ix.note("detected concatenated gzip member %d", lastConcatenatedParts)
		}

		blockIsEmpty := len(block.Output) == 0
		linesInBlock := uint64(bytes.Count(block.Output, []byte{'\n'}))
		if !blockIsEmpty && block.Output[len(block.Output)-1] != '\n' {
			// A trailing partial line is counted in the block where it
			// begins; the continuation check below takes it back out of
			// every later block it runs into.
			linesInBlock++
		}
		if !prevEndedWithNewline && linesInBlock > 0 {
			linesInBlock--
		}

		var firstLineOffset uint32
		if !prevEndedWithNewline {
			if idx := bytes.IndexByte(block.Output, '\n'); idx >= 0 {
				firstLineOffset = uint32(idx) + 1
			}
		}

		currentEndedWithNewline := blockIsEmpty && prevEndedWithNewline
		if !blockIsEmpty {
			currentEndedWithNewline = block.Output[len(block.Output)-1] == '\n'
		}

		candidate := IndexEntry{
			BlockIndex:      block.BlockIndex,
			BlockOffsetRaw:  uint64(block.BlockOffsetRaw),
			StartingLine:    runningLine,
			FirstLineOffset: firstLineOffset,
			Bits:            uint8(block.UnusedBits),
			Dictionary:      block.Dictionary,
		}

		if ix.policy.ShallStore(candidate, lastStored, blockIsEmpty) {
			if err := ix.writer.WriteEntry(candidate); err != nil {
				return err
			}
			stored := candidate
			lastStored = &stored
		} else {
			ix.note("storage policy skipped block %d", block.BlockIndex)
		}

		runningLine += linesInBlock
		prevEndedWithNewline = currentEndedWithNewline

		if block.AtStreamEnd {
			break
		}
	}

	if !prevEndedWithNewline && runningLine > 0 {
		// A final line with no terminating '\n' is not an indexed line.
		runningLine--
	}
	if err := ix.writer.Finalize(runningLine); err != nil {
		return err
	}
	ix.log.WithFields(logrus.Fields{
		"entries":             ix.writer.entryCount,
		"lines":               runningLine,
		"concatenated_parts":  observer.ConcatenatedParts(),
	}).Info("index created")
	return nil
}
