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
	"compress/gzip"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestExtractorExtractLinesMatchesOriginal(t *testing.T) {
	t.Parallel()

	lines := fastqLines(50) // 200 lines
	data := gzipRecordsFlushed(t, lines, 4)

	compressedPath, indexPath := buildTestIndex(t, t.TempDir(), data, &BlockDistanceStrategy{Interval: 1, UseMinimumByteDistance: false})

	testCases := []struct {
		name      string
		start     int64
		count     int64
		wantLines []string
	}{
		{name: "first record", start: 0, count: 4, wantLines: lines[0:4]},
		{name: "middle record", start: 40, count: 4, wantLines: lines[40:44]},
		{name: "spans many records", start: 8, count: 20, wantLines: lines[8:28]},
		{name: "last record", start: 196, count: 4, wantLines: lines[196:200]},
		{name: "single line mid-record", start: 41, count: 1, wantLines: lines[41:42]},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			sink := NewConsoleSink(&out)
			ex := NewExtractor(NewFileSource(compressedPath), NewFileSource(indexPath), sink)
			if err := ex.ExtractLines(context.Background(), tc.start, tc.count); err != nil {
				t.Fatalf("ExtractLines: %v", err)
			}

			want := strings.Join(tc.wantLines, "\n") + "\n"
			if out.String() != want {
				t.Errorf("ExtractLines(%d, %d) = %q, want %q", tc.start, tc.count, out.String(), want)
			}
		})
	}
}

func TestExtractorExtractSegmentCoversWholeFile(t *testing.T) {
	t.Parallel()

	lines := fastqLines(40) // 160 lines, 40 records
	data := gzipRecordsFlushed(t, lines, 4)
	compressedPath, indexPath := buildTestIndex(t, t.TempDir(), data, &BlockDistanceStrategy{Interval: 1, UseMinimumByteDistance: false})

	const segmentCount = 4
	var all []byte
	for seg := int64(0); seg < segmentCount; seg++ {
		var out bytes.Buffer
		sink := NewConsoleSink(&out)
		ex := NewExtractor(NewFileSource(compressedPath), NewFileSource(indexPath), sink)
		if err := ex.ExtractSegment(context.Background(), seg, segmentCount, DefaultRecordSize); err != nil {
			t.Fatalf("ExtractSegment(%d): %v", seg, err)
		}
		all = append(all, out.Bytes()...)
	}

	want := strings.Join(lines, "\n") + "\n"
	if string(all) != want {
		t.Errorf("concatenated segments = %q, want %q", all, want)
	}
}

func TestExtractorExtractLinesPastEndOfFileYieldsNothing(t *testing.T) {
	t.Parallel()

	lines := fastqLines(4)
	data := gzipRecordsFlushed(t, lines, 4)
	compressedPath, indexPath := buildTestIndex(t, t.TempDir(), data, &BlockDistanceStrategy{Interval: 1, UseMinimumByteDistance: false})

	var out bytes.Buffer
	ex := NewExtractor(NewFileSource(compressedPath), NewFileSource(indexPath), NewConsoleSink(&out))
	if err := ex.ExtractLines(context.Background(), 1000, 4); err != nil {
		t.Fatalf("ExtractLines: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}

func TestExtractorExtractLinesRejectsZeroLineCount(t *testing.T) {
	t.Parallel()

	lines := fastqLines(4)
	data := gzipRecordsFlushed(t, lines, 4)
	compressedPath, indexPath := buildTestIndex(t, t.TempDir(), data, &BlockDistanceStrategy{Interval: 1, UseMinimumByteDistance: false})

	ex := NewExtractor(NewFileSource(compressedPath), NewFileSource(indexPath), NewConsoleSink(&bytes.Buffer{}))
	err := ex.ExtractLines(context.Background(), 0, 0)
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("got %v, want ErrBadRequest", err)
	}
}

// gzipByteChunksFlushed gzip-compresses data, calling Flush every
// chunkSize bytes regardless of line content, so a single long line can
// straddle many DEFLATE blocks with no '\n' at all in several of them.
func gzipByteChunksFlushed(t *testing.T, data []byte, chunkSize int) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := zw.Write(data[i:end]); err != nil {
			t.Fatalf("gzip Write: %v", err)
		}
		if end < len(data) {
			if err := zw.Flush(); err != nil {
				t.Fatalf("gzip Flush: %v", err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip Close: %v", err)
	}
	return buf.Bytes()
}

func TestExtractorExtractLinesSpanningManyNoNewlineBlocks(t *testing.T) {
	t.Parallel()

	longSeq := strings.Repeat("ACGT", 200) // 800 bytes, no '\n' inside it
	lines := []string{
		"@read0",
		"ACGTACGT",
		"+",
		"IIIIIIII",
		"@read1",
		longSeq,
		"+",
		strings.Repeat("I", len(longSeq)),
		"@read2",
		"TTTTGGGG",
		"+",
		"IIIIIIII",
	}
	data := []byte(strings.Join(lines, "\n") + "\n")

	// Flush every 40 bytes: longSeq alone spans 19 consecutive
	// no-newline data blocks, forcing the chunk-stitching path through
	// many back-to-back accumulations before the line closes.
	compressed := gzipByteChunksFlushed(t, data, 40)

	dir := t.TempDir()
	compressedPath, indexPath := buildTestIndex(t, dir, compressed, &BlockDistanceStrategy{Interval: 1, UseMinimumByteDistance: false})

	testCases := []struct {
		name      string
		start     int64
		count     int64
		wantLines []string
	}{
		{name: "long line alone", start: 5, count: 1, wantLines: []string{longSeq}},
		{name: "record containing long line", start: 4, count: 4, wantLines: lines[4:8]},
		{name: "whole file", start: 0, count: int64(len(lines)), wantLines: lines},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			ex := NewExtractor(NewFileSource(compressedPath), NewFileSource(indexPath), NewConsoleSink(&out))
			if err := ex.ExtractLines(context.Background(), tc.start, tc.count); err != nil {
				t.Fatalf("ExtractLines: %v", err)
			}

			want := strings.Join(tc.wantLines, "\n") + "\n"
			if out.String() != want {
				t.Errorf("ExtractLines(%d, %d) = %q, want %q", tc.start, tc.count, out.String(), want)
			}
		})
	}
}

func TestExtractorExtractSegmentRejectsBadSegmentIndex(t *testing.T) {
	t.Parallel()

	lines := fastqLines(4)
	data := gzipRecordsFlushed(t, lines, 4)
	compressedPath, indexPath := buildTestIndex(t, t.TempDir(), data, &BlockDistanceStrategy{Interval: 1, UseMinimumByteDistance: false})

	ex := NewExtractor(NewFileSource(compressedPath), NewFileSource(indexPath), NewConsoleSink(&bytes.Buffer{}))
	err := ex.ExtractSegment(context.Background(), 4, 4, DefaultRecordSize)
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("got %v, want ErrBadRequest", err)
	}
}
