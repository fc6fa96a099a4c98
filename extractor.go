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

// gzipTrailerAndHeaderSkip is the number of bytes the extractor skips
// to move past a concatenated member boundary while resuming raw
// inflate: 8 trailer bytes (CRC-32 + ISIZE) plus a 10-byte minimal gzip
// header with no extra fields.
const gzipTrailerAndHeaderSkip = 18

// Extractor locates the resume point nearest a requested line range,
// primes a raw-DEFLATE decoder with its recorded dictionary and bit
// offset, and decodes forward, skipping, emitting, and stitching lines
// that straddle chunk boundaries.
type Extractor struct {
	compressed Source
	index      Source
	sink       Sink

	// Debug buffers emitted lines in memory and truncates to the
	// requested line count at the end of the run, instead of streaming
	// them directly to sink.
	Debug bool

	log         *logrus.Entry
	diagnostics []string
}

// NewExtractor returns an Extractor reading compressed data from
// compressed, its index from index, and writing decoded lines to sink.
func NewExtractor(compressed, index Source, sink Sink) *Extractor {
	return &Extractor{compressed: compressed, index: index, sink: sink, log: packageLogger().WithField("component", "extractor")}
}

// Diagnostics returns messages accumulated over the run.
func (ex *Extractor) Diagnostics() []string {
	return ex.diagnostics
}

func (ex *Extractor) note(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	ex.diagnostics = append(ex.diagnostics, msg)
	ex.log.Debug(msg)
}

// ExtractLines writes lines [startLine, startLine+lineCount) (0-based,
// half-open) to the sink. Requesting a range entirely past end of file
// yields zero lines and no error; a range straddling EOF yields exactly
// the available lines.
func (ex *Extractor) ExtractLines(ctx context.Context, startLine, lineCount int64) error {
	if lineCount <= 0 {
		return fmt.Errorf("%w: line count must be positive, got %d", ErrBadRequest, lineCount)
	}

	reader, err := NewIndexReader(ex.index)
	if err != nil {
		return err
	}
	defer reader.Close()

	entry, found, err := selectEntry(reader, uint64(startLine))
	if err != nil {
		return err
	}
	if !found {
		// Nothing in the index starts at or before this line: the
		// request is entirely past the indexed content.
		return nil
	}

	if err := ex.compressed.Open(); err != nil {
		return err
	}
	defer ex.compressed.Close()

	observer, err := ex.primeAt(entry)
	if err != nil {
		return err
	}

	skip := int64(startLine) - int64(entry.StartingLine)
	return ex.decodeLoop(ctx, observer, skip, lineCount, entry.FirstLineOffset > 0)
}

// ExtractSegment partitions the indexed file's records (recordSize
// lines each, DefaultRecordSize when recordSize <= 0) into segmentCount
// equal segments and extracts segmentIndex's share. The final segment
// additionally receives any remainder records.
func (ex *Extractor) ExtractSegment(ctx context.Context, segmentIndex, segmentCount, recordSize int64) error {
	if recordSize <= 0 {
		recordSize = DefaultRecordSize
	}
	if segmentCount <= 0 || segmentIndex < 0 || segmentIndex >= segmentCount {
		return fmt.Errorf("%w: segment %d out of range [0,%d)", ErrBadRequest, segmentIndex, segmentCount)
	}

	reader, err := NewIndexReader(ex.index)
	if err != nil {
		return err
	}
	totalLines := reader.Header().LinesInIndexedFile
	reader.Close()

	if totalLines%recordSize != 0 {
		return fmt.Errorf("%w: %d lines is not a multiple of record size %d", ErrBadRequest, totalLines, recordSize)
	}
	totalRecords := totalLines / recordSize
	recordsPerSegment := totalRecords / segmentCount

	start := segmentIndex * recordsPerSegment * recordSize
	count := recordsPerSegment * recordSize
	if segmentIndex == segmentCount-1 {
		remainder := totalRecords - recordsPerSegment*segmentCount
		count += remainder * recordSize
	}
	if count <= 0 {
		return nil
	}
	return ex.ExtractLines(ctx, start, count)
}

// selectEntry performs a linear scan for the last entry whose
// StartingLine <= startLine. The on-disk ordering invariant (entries
// strictly increasing in BlockIndex, non-decreasing in StartingLine)
// would also permit a binary search; a linear scan is used here since
// entries are streamed rather than loaded into memory up front.
func selectEntry(reader *IndexReader, startLine uint64) (IndexEntry, bool, error) {
	var best IndexEntry
	found := false
	for {
		e, err := reader.Next()
		if err != nil {
			break
		}
		if e.StartingLine > startLine {
			break
		}
		best = e
		found = true
	}
	return best, found, nil
}

// primeAt seeks the compressed Source to entry's resume point and
// returns a raw-mode observer primed with its dictionary and bit
// offset.
func (ex *Extractor) primeAt(entry IndexEntry) (*deflateObserver, error) {
	seekTo := int64(entry.BlockOffsetRaw)
	if entry.Bits > 0 {
		seekTo--
	}
	if _, err := ex.compressed.Seek(seekTo, SeekAbsolute); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceSeek, err)
	}

	var primedByte byte
	if entry.Bits > 0 {
		b, err := ex.compressed.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecoderInit, err)
		}
		primedByte = b
	}
	if len(entry.Dictionary) != DictionarySize {
		return nil, fmt.Errorf("%w: entry dictionary is %d bytes, want %d", ErrDecoderInit, len(entry.Dictionary), DictionarySize)
	}
	return newRawObserver(ex.compressed, entry.Dictionary, uint(entry.Bits), primedByte), nil
}

// decodeLoop consumes decompressed chunks from observer, splitting them
// on '\n', skipping the first skip lines, emitting complete lines, and
// joining a partial line at the end of one chunk with its continuation
// in the next, until lineCount lines have been emitted or the stream
// ends.
func (ex *Extractor) decodeLoop(ctx context.Context, observer *deflateObserver, skip int64, lineCount int64, discardFirstSplit bool) error {
	var (
		extracted      int64
		firstPass      = true
		incompleteTail []byte
		buffered       [][]byte
	)

	emit := func(line []byte) error {
		extracted++
		if ex.Debug {
			buffered = append(buffered, append([]byte(nil), line...))
			return nil
		}
		if _, err := ex.sink.Write(line); err != nil {
			return err
		}
		_, err := ex.sink.Write([]byte{'\n'})
		return err
	}

	for extracted < lineCount {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrSourceRead, err)
		}

		block, err := observer.Next()
		atStreamEnd := block.AtStreamEnd
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptSource, err)
		}

		chunk := block.Output
		split := bytes.Split(chunk, []byte{'\n'})
		// The last element is empty when the chunk ends with '\n', and
		// otherwise a partial line continued by the next chunk; either
		// way it is not a complete line of this chunk.
		currentTail := split[len(split)-1]
		split = split[:len(split)-1]

		if firstPass {
			if discardFirstSplit && len(split) > 0 {
				split = split[1:]
			}
			firstPass = false
		}

		i := 0
		if len(incompleteTail) > 0 && len(split) > 0 {
			joined := append(append([]byte(nil), incompleteTail...), split[0]...)
			if skip > 0 {
				skip--
			} else if err := emit(joined); err != nil {
				return err
			}
			i = 1
		}

		for ; i < len(split) && extracted < lineCount; i++ {
			if skip > 0 {
				skip--
				continue
			}
			if err := emit(split[i]); err != nil {
				return err
			}
		}

		if len(split) == 0 {
			// No '\n' in this chunk at all: the pending incompleteTail
			// was never joined above, so accumulate instead of
			// overwriting it, or a line split across 3+ consecutive
			// no-newline chunks would lose its middle pieces.
			incompleteTail = append(append([]byte(nil), incompleteTail...), currentTail...)
		} else {
			incompleteTail = currentTail
		}

		if atStreamEnd {
			// Only bytes beyond the member's 8-byte trailer belong to a
			// concatenated member.
			if err := ex.compressed.Skip(8); err != nil {
				return err
			}
			if ex.compressed.CanRead() {
				ex.note("resuming decode past concatenated member boundary")
				if err := ex.compressed.Skip(gzipTrailerAndHeaderSkip - 8); err != nil {
					return err
				}
				observer = newRawObserver(ex.compressed, make([]byte, DictionarySize), 0, 0)
				continue
			}
			break
		}
	}

	if ex.Debug {
		if int64(len(buffered)) > lineCount {
			buffered = buffered[:lineCount]
		}
		for _, line := range buffered {
			if _, err := ex.sink.Write(line); err != nil {
				return err
			}
			if _, err := ex.sink.Write([]byte{'\n'}); err != nil {
				return err
			}
		}
	}
	return ex.sink.Flush()
}
