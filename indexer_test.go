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
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// fastqLines builds n synthetic 4-line FASTQ records.
func fastqLines(n int) []string {
	var lines []string
	for i := 0; i < n; i++ {
		lines = append(lines,
			"@read"+strconv.Itoa(i),
			"ACGTACGTACGTACGTACGT",
			"+",
			"IIIIIIIIIIIIIIIIIIII",
		)
	}
	return lines
}

// gzipRecordsFlushed gzip-compresses lines, flushing after every
// recordLines lines so the compressed stream contains many DEFLATE
// blocks with real resume points, the way a long FASTQ file would once
// written by a streaming encoder.
func gzipRecordsFlushed(t *testing.T, lines []string, recordLines int) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	for i := 0; i < len(lines); i += recordLines {
		end := i + recordLines
		if end > len(lines) {
			end = len(lines)
		}
		chunk := strings.Join(lines[i:end], "\n") + "\n"
		if _, err := zw.Write([]byte(chunk)); err != nil {
			t.Fatalf("gzip Write: %v", err)
		}
		if end < len(lines) {
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

func buildTestIndex(t *testing.T, dir string, data []byte, policy StorageDecisionPolicy) (compressedPath, indexPath string) {
	t.Helper()
	compressedPath = filepath.Join(dir, "reads.fastq.gz")
	indexPath = filepath.Join(dir, "reads.fastq.gz.fqi")

	if err := os.WriteFile(compressedPath, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	src := NewFileSource(compressedPath)
	if err := src.Open(); err != nil {
		t.Fatalf("Open compressed source: %v", err)
	}
	defer src.Close()

	writer := NewIndexWriter(NewFileSink(indexPath, false), false, 0)
	if err := writer.Open(); err != nil {
		t.Fatalf("writer.Open: %v", err)
	}
	indexer := NewIndexer(src, writer, policy)
	if err := indexer.CreateIndex(context.Background()); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	return compressedPath, indexPath
}

func TestIndexerCreatesIndexWithLineCounts(t *testing.T) {
	t.Parallel()

	lines := fastqLines(20)
	data := gzipRecordsFlushed(t, lines, 4)

	_, indexPath := buildTestIndex(t, t.TempDir(), data, &BlockDistanceStrategy{Interval: 1, UseMinimumByteDistance: false})

	r, err := NewIndexReader(NewFileSource(indexPath))
	if err != nil {
		t.Fatalf("NewIndexReader: %v", err)
	}
	defer r.Close()

	if got, want := r.Header().LinesInIndexedFile, int64(len(lines)); got != want {
		t.Errorf("LinesInIndexedFile = %d, want %d", got, want)
	}
	if r.Header().EntryCount == 0 {
		t.Errorf("expected at least one stored entry")
	}

	var prevBlock uint64
	var first = true
	for {
		e, err := r.Next()
		if err != nil {
			break
		}
		if !first && e.BlockIndex <= prevBlock {
			t.Errorf("entries must be strictly increasing in BlockIndex: %d after %d", e.BlockIndex, prevBlock)
		}
		prevBlock = e.BlockIndex
		first = false
		if len(e.Dictionary) != DictionarySize {
			t.Errorf("entry dictionary length = %d, want %d", len(e.Dictionary), DictionarySize)
		}
	}
}
