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
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
)

// IndexHeader is the fixed 512-byte header at the start of every index
// file. See rawIndexEntry and RawEntrySize for the on-disk entry layout
// that follows it.
type IndexHeader struct {
	// WriterVersion is the index format generation that produced this
	// file.
	WriterVersion uint32

	// EntrySize is the size in bytes of the on-disk entry type used by
	// the writer that produced this file.
	EntrySize uint32

	// MagicNumber identifies the file; it must equal MagicNumber.
	MagicNumber uint32

	// BlockInterval is advisory: it records the storage-decision
	// policy's block interval for diagnostics. It has no effect on
	// reading.
	BlockInterval uint32

	// EntryCount is the total number of entries in the file. Zero means
	// "derive the count from the file length".
	EntryCount int64

	// LinesInIndexedFile is the total number of newline-terminated
	// lines observed while indexing.
	LinesInIndexedFile int64

	// DictionariesCompressed indicates whether each entry's dictionary
	// is zlib-compressed on disk.
	DictionariesCompressed bool
}

// Equal reports whether h and o describe the same index.
func (h IndexHeader) Equal(o IndexHeader) bool {
	return h == o
}

// marshal encodes the header into its fixed 512-byte on-disk form.
func (h IndexHeader) marshal() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.WriterVersion)
	binary.LittleEndian.PutUint32(buf[4:8], h.EntrySize)
	binary.LittleEndian.PutUint32(buf[8:12], h.MagicNumber)
	binary.LittleEndian.PutUint32(buf[12:16], h.BlockInterval)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.EntryCount))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.LinesInIndexedFile))
	if h.DictionariesCompressed {
		buf[32] = 1
	}
	// buf[33:512] stays zero-filled: reserved.
	return buf
}

// unmarshalIndexHeader decodes a fixed 512-byte on-disk header.
func unmarshalIndexHeader(buf []byte) (IndexHeader, error) {
	if len(buf) < HeaderSize {
		return IndexHeader{}, fmt.Errorf("%w: header too short: %d bytes", ErrFormatInvalid, len(buf))
	}
	h := IndexHeader{
		WriterVersion:          binary.LittleEndian.Uint32(buf[0:4]),
		EntrySize:              binary.LittleEndian.Uint32(buf[4:8]),
		MagicNumber:            binary.LittleEndian.Uint32(buf[8:12]),
		BlockInterval:          binary.LittleEndian.Uint32(buf[12:16]),
		EntryCount:             int64(binary.LittleEndian.Uint64(buf[16:24])),
		LinesInIndexedFile:     int64(binary.LittleEndian.Uint64(buf[24:32])),
		DictionariesCompressed: buf[32] != 0,
	}
	if h.MagicNumber != MagicNumber {
		return IndexHeader{}, fmt.Errorf("%w: bad magic number: %#x", ErrFormatInvalid, h.MagicNumber)
	}
	if h.WriterVersion != WriterVersion {
		return IndexHeader{}, fmt.Errorf("%w: unsupported writer version: %d", ErrFormatInvalid, h.WriterVersion)
	}
	return h, nil
}

// IndexEntry is the logical, decompressed-dictionary form of a resume
// point. Readers always hand callers this form; see rawIndexEntry for
// the on-disk encoding.
type IndexEntry struct {
	// BlockIndex is the ordinal of the referenced DEFLATE block within
	// the compressed stream.
	BlockIndex uint64

	// BlockOffsetRaw is the byte offset from the start of the
	// compressed source to the first byte of the referenced block.
	BlockOffsetRaw uint64

	// StartingLine is the zero-based line number of the first line that
	// begins inside this block.
	StartingLine uint64

	// FirstLineOffset is the byte offset within the decompressed block
	// where the first full line starts; zero if the block starts
	// cleanly on a line boundary.
	FirstLineOffset uint32

	// Bits is the number of unused bits (0-7) carried over from the
	// previous byte at the resume point.
	Bits uint8

	// Dictionary is the 32 KiB uncompressed sliding window immediately
	// preceding the resume point.
	Dictionary []byte
}

// Equal reports whether e and o describe the same resume point,
// including their dictionaries.
func (e IndexEntry) Equal(o IndexEntry) bool {
	return e.BlockIndex == o.BlockIndex &&
		e.BlockOffsetRaw == o.BlockOffsetRaw &&
		e.StartingLine == o.StartingLine &&
		e.FirstLineOffset == o.FirstLineOffset &&
		e.Bits == o.Bits &&
		bytes.Equal(e.Dictionary, o.Dictionary)
}

// rawIndexEntry is the on-disk form of an IndexEntry: the fixed
// entryFixedSize-byte prefix, plus either the 32 KiB raw dictionary or
// its zlib-compressed form.
type rawIndexEntry struct {
	blockIndex        uint64
	blockOffsetRaw    uint64
	startingLine      uint64
	firstLineOffset   uint32
	bits              uint8
	compressedDictLen uint16

	// dictionary holds exactly DictionarySize bytes when uncompressed,
	// or compressedDictLen bytes of zlib-compressed data otherwise.
	dictionary []byte
}

// toRaw compresses e.Dictionary (if compress is true) and returns its
// on-disk form.
func (e IndexEntry) toRaw(compress bool) (rawIndexEntry, error) {
	r := rawIndexEntry{
		blockIndex:      e.BlockIndex,
		blockOffsetRaw:  e.BlockOffsetRaw,
		startingLine:    e.StartingLine,
		firstLineOffset: e.FirstLineOffset,
		bits:            e.Bits,
	}
	if len(e.Dictionary) != DictionarySize {
		return rawIndexEntry{}, fmt.Errorf("%w: dictionary must be %d bytes, got %d", ErrCorruptSource, DictionarySize, len(e.Dictionary))
	}
	if !compress {
		r.dictionary = e.Dictionary
		return r, nil
	}
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return rawIndexEntry{}, fmt.Errorf("%w: creating dictionary compressor: %v", ErrCorruptSource, err)
	}
	if _, err := zw.Write(e.Dictionary); err != nil {
		return rawIndexEntry{}, fmt.Errorf("%w: compressing dictionary: %v", ErrCorruptSource, err)
	}
	if err := zw.Close(); err != nil {
		return rawIndexEntry{}, fmt.Errorf("%w: compressing dictionary: %v", ErrCorruptSource, err)
	}
	if buf.Len() > 0xffff {
		// Compression never helps enough to overflow a uint16 in
		// practice (the input is itself bounded to 32 KiB); fall back
		// to storing it raw rather than fail the run.
		r.dictionary = e.Dictionary
		return r, nil
	}
	r.compressedDictLen = uint16(buf.Len())
	r.dictionary = buf.Bytes()
	return r, nil
}

// toLogical decompresses r.dictionary (if compressed) into the logical
// IndexEntry form.
func (r rawIndexEntry) toLogical() (IndexEntry, error) {
	e := IndexEntry{
		BlockIndex:      r.blockIndex,
		BlockOffsetRaw:  r.blockOffsetRaw,
		StartingLine:    r.startingLine,
		FirstLineOffset: r.firstLineOffset,
		Bits:            r.bits,
	}
	if r.compressedDictLen == 0 {
		e.Dictionary = r.dictionary
		return e, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(r.dictionary))
	if err != nil {
		return IndexEntry{}, fmt.Errorf("%w: decompressing dictionary: %v", ErrCorruptSource, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, DictionarySize+1))
	if err != nil {
		return IndexEntry{}, fmt.Errorf("%w: decompressing dictionary: %v", ErrCorruptSource, err)
	}
	if len(out) != DictionarySize {
		return IndexEntry{}, fmt.Errorf("%w: dictionary decompressed to %d bytes, want %d", ErrCorruptSource, len(out), DictionarySize)
	}
	e.Dictionary = out
	return e, nil
}

// marshal encodes the fixed prefix of r, followed by its dictionary
// bytes (raw or compressed, whichever r carries).
func (r rawIndexEntry) marshal() []byte {
	buf := make([]byte, entryFixedSize+len(r.dictionary))
	binary.LittleEndian.PutUint64(buf[0:8], r.blockIndex)
	binary.LittleEndian.PutUint64(buf[8:16], r.blockOffsetRaw)
	binary.LittleEndian.PutUint64(buf[16:24], r.startingLine)
	binary.LittleEndian.PutUint32(buf[24:28], r.firstLineOffset)
	buf[28] = r.bits
	// buf[29] reserved.
	binary.LittleEndian.PutUint16(buf[30:32], r.compressedDictLen)
	copy(buf[entryFixedSize:], r.dictionary)
	return buf
}

// unmarshalRawEntryPrefix decodes the fixed entryFixedSize-byte prefix
// of an on-disk entry. The dictionary field is not populated; callers
// read it separately based on compressedDictLen.
func unmarshalRawEntryPrefix(buf []byte) (rawIndexEntry, error) {
	if len(buf) < entryFixedSize {
		return rawIndexEntry{}, fmt.Errorf("%w: entry prefix too short: %d bytes", ErrFormatInvalid, len(buf))
	}
	return rawIndexEntry{
		blockIndex:        binary.LittleEndian.Uint64(buf[0:8]),
		blockOffsetRaw:    binary.LittleEndian.Uint64(buf[8:16]),
		startingLine:      binary.LittleEndian.Uint64(buf[16:24]),
		firstLineOffset:   binary.LittleEndian.Uint32(buf[24:28]),
		bits:              buf[28],
		compressedDictLen: binary.LittleEndian.Uint16(buf[30:32]),
	}, nil
}
