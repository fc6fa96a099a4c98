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

import "fmt"

// IndexReader parses an index header and streams its entries on
// demand. Reading before Open, or past the known entry count, fails
// with ErrProtocolMisuse.
type IndexReader struct {
	source Source
	header IndexHeader

	opened     bool
	readCount  int64
	totalCount int64
}

// NewIndexReader opens source (acquiring a shared lock) and validates
// its header.
func NewIndexReader(source Source) (*IndexReader, error) {
	if err := source.Open(); err != nil {
		return nil, err
	}
	size, err := source.Size()
	if err != nil {
		source.Close()
		return nil, err
	}
	if size < HeaderSize {
		source.Close()
		return nil, fmt.Errorf("%w: file too small to contain a header: %d bytes", ErrFormatInvalid, size)
	}
	buf := make([]byte, HeaderSize)
	if _, err := readFull(source, buf); err != nil {
		source.Close()
		return nil, err
	}
	header, err := unmarshalIndexHeader(buf)
	if err != nil {
		source.Close()
		return nil, err
	}

	entrySize := int64(header.EntrySize)
	if !header.DictionariesCompressed {
		entrySize = RawEntrySize
		remainder := (size - HeaderSize) % entrySize
		if remainder != 0 {
			source.Close()
			return nil, fmt.Errorf("%w: file size %d is not header+k*entrySize(%d)", ErrFormatInvalid, size, entrySize)
		}
	}

	total := header.EntryCount
	if total == 0 && !header.DictionariesCompressed {
		total = (size - HeaderSize) / entrySize
	}

	return &IndexReader{source: source, header: header, opened: true, totalCount: total}, nil
}

// Header returns the parsed header.
func (r *IndexReader) Header() IndexHeader {
	return r.header
}

// EntriesRemaining returns the number of entries not yet returned by
// Next. For a compressed-dictionary index whose header EntryCount was
// never back-patched (interrupted run), this may be unknown and is
// reported as -1.
func (r *IndexReader) EntriesRemaining() int64 {
	if r.totalCount <= 0 {
		return -1
	}
	return r.totalCount - r.readCount
}

// Next returns the next entry in the index, decompressing its
// dictionary if necessary. It fails with ErrProtocolMisuse if called
// before Open (i.e. on a zero-value IndexReader) or, when the total
// entry count is known, past the end of the index.
func (r *IndexReader) Next() (IndexEntry, error) {
	if !r.opened {
		return IndexEntry{}, fmt.Errorf("%w: Next before Open", ErrProtocolMisuse)
	}
	if r.totalCount > 0 && r.readCount >= r.totalCount {
		return IndexEntry{}, fmt.Errorf("%w: read past entry count %d", ErrProtocolMisuse, r.totalCount)
	}

	prefix := make([]byte, entryFixedSize)
	n, err := readFull(r.source, prefix)
	if n == 0 && err != nil {
		return IndexEntry{}, fmt.Errorf("%w: no more entries", ErrProtocolMisuse)
	}
	if err != nil {
		return IndexEntry{}, err
	}
	raw, err := unmarshalRawEntryPrefix(prefix)
	if err != nil {
		return IndexEntry{}, err
	}

	dictLen := DictionarySize
	if raw.compressedDictLen > 0 {
		dictLen = int(raw.compressedDictLen)
	}
	dict := make([]byte, dictLen)
	if _, err := readFull(r.source, dict); err != nil {
		return IndexEntry{}, err
	}
	raw.dictionary = dict

	entry, err := raw.toLogical()
	if err != nil {
		return IndexEntry{}, err
	}
	r.readCount++
	return entry, nil
}

// Close releases the reader's lock on its Source.
func (r *IndexReader) Close() error {
	return r.source.Close()
}

// readFull reads exactly len(buf) bytes from src, following io.ReadFull
// semantics but against the Source interface.
func readFull(src Source, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := src.Read(buf[total:])
		total += n
		if err != nil {
			if total >= len(buf) {
				break
			}
			return total, fmt.Errorf("%w: %v", ErrSourceRead, err)
		}
	}
	return total, nil
}
