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

// IndexWriter serializes an index: a single 512-byte header followed by
// entries in ascending block order, with a finalization pass that
// rewrites the header once entryCount and the total line count are
// known.
//
// Contract: exactly one header per file, entries only after the
// header. Calling WriteEntry before Open, or Open twice, fails with
// ErrProtocolMisuse.
type IndexWriter struct {
	sink                   Sink
	dictionariesCompressed bool
	blockInterval          uint32

	opened     bool
	finalized  bool
	entryCount int64
}

// NewIndexWriter returns an IndexWriter that will write to sink.
// dictionariesCompressed selects whether entry dictionaries are
// zlib-compressed on disk; blockInterval is recorded in the header for
// diagnostics only.
func NewIndexWriter(sink Sink, dictionariesCompressed bool, blockInterval uint32) *IndexWriter {
	return &IndexWriter{sink: sink, dictionariesCompressed: dictionariesCompressed, blockInterval: blockInterval}
}

// Open acquires an exclusive lock on the sink and writes the header in
// its provisional form (entryCount and lines_in_indexed_file are both 0
// until Finalize).
func (w *IndexWriter) Open() error {
	if w.opened {
		return fmt.Errorf("%w: index writer already opened", ErrProtocolMisuse)
	}
	if err := w.sink.OpenWithWriteLock(); err != nil {
		return err
	}
	w.opened = true
	header := IndexHeader{
		WriterVersion:          WriterVersion,
		EntrySize:              w.entrySize(),
		MagicNumber:            MagicNumber,
		BlockInterval:          w.blockInterval,
		DictionariesCompressed: w.dictionariesCompressed,
	}
	if _, err := w.sink.Write(header.marshal()); err != nil {
		return err
	}
	return nil
}

func (w *IndexWriter) entrySize() uint32 {
	if w.dictionariesCompressed {
		// Variable-length; report the fixed prefix only, since the
		// per-entry size is not constant when dictionaries compress.
		return entryFixedSize
	}
	return RawEntrySize
}

// WriteEntry appends one entry. It fails with ErrProtocolMisuse if
// called before Open or after Finalize.
func (w *IndexWriter) WriteEntry(e IndexEntry) error {
	if !w.opened {
		return fmt.Errorf("%w: WriteEntry before Open", ErrProtocolMisuse)
	}
	if w.finalized {
		return fmt.Errorf("%w: WriteEntry after Finalize", ErrProtocolMisuse)
	}
	raw, err := e.toRaw(w.dictionariesCompressed)
	if err != nil {
		return err
	}
	if _, err := w.sink.Write(raw.marshal()); err != nil {
		return err
	}
	w.entryCount++
	return nil
}

// Finalize seeks back to the header and rewrites it with entryCount and
// linesInIndexedFile populated, then flushes and closes the sink.
func (w *IndexWriter) Finalize(linesInIndexedFile uint64) error {
	if !w.opened {
		return fmt.Errorf("%w: Finalize before Open", ErrProtocolMisuse)
	}
	if w.finalized {
		return fmt.Errorf("%w: index writer already finalized", ErrProtocolMisuse)
	}
	w.finalized = true

	if err := w.sink.Flush(); err != nil {
		return err
	}
	if _, err := w.sink.Seek(0, SeekAbsolute); err != nil {
		return err
	}
	header := IndexHeader{
		WriterVersion:          WriterVersion,
		EntrySize:              w.entrySize(),
		MagicNumber:            MagicNumber,
		BlockInterval:          w.blockInterval,
		EntryCount:             w.entryCount,
		LinesInIndexedFile:     int64(linesInIndexedFile),
		DictionariesCompressed: w.dictionariesCompressed,
	}
	if _, err := w.sink.Write(header.marshal()); err != nil {
		return err
	}
	if err := w.sink.Flush(); err != nil {
		return err
	}
	return w.sink.Close()
}
