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

// Package fastqindex provides random-access line extraction into
// gzip-compressed FASTQ streams without prior full decompression.
//
// A sidecar index records periodic resume points over the compressed
// stream: a byte offset, a sub-byte bit offset, and the 32 KiB sliding
// DEFLATE dictionary needed to restart decoding there. [Indexer] builds
// the index in a single pass; [Extractor] uses it to serve arbitrary
// line ranges without decompressing the whole file.
//
// Unless otherwise noted, types in this package are not safe for
// concurrent use by multiple goroutines; run one [Indexer] or
// [Extractor] per goroutine.
package fastqindex

const (
	// WriterVersion is the index format generation produced by this
	// package.
	WriterVersion uint32 = 1

	// MagicNumber identifies an index file. It is the little-endian
	// encoding of the bytes {0x01, 0x02, 0x03, 0x04}.
	MagicNumber uint32 = 0x04030201

	// HeaderSize is the fixed, zero-padded size of an IndexHeader on disk.
	HeaderSize = 512

	// DictionarySize is the size in bytes of the uncompressed DEFLATE
	// sliding-window dictionary captured at every resume point.
	DictionarySize = 32 * 1024

	// entryFixedSize is the size of the fixed prefix of an on-disk entry,
	// shared by both the raw-dictionary and compressed-dictionary
	// encodings.
	entryFixedSize = 32

	// RawEntrySize is the on-disk size of an entry when dictionaries are
	// stored uncompressed (entryFixedSize + DictionarySize).
	RawEntrySize = entryFixedSize + DictionarySize

	// DefaultRecordSize is the number of lines per logical record used
	// by segmentation when the caller does not specify one; 4 for FASTQ.
	DefaultRecordSize = 4
)
