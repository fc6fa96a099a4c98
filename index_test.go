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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIndexHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		header IndexHeader
	}{
		{
			name: "zero value",
		},
		{
			name: "populated",
			header: IndexHeader{
				WriterVersion:          WriterVersion,
				EntrySize:              RawEntrySize,
				MagicNumber:            MagicNumber,
				BlockInterval:          2048,
				EntryCount:             42,
				LinesInIndexedFile:     123456,
				DictionariesCompressed: true,
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := tc.header
			h.MagicNumber = MagicNumber
			h.WriterVersion = WriterVersion

			buf := h.marshal()
			if len(buf) != HeaderSize {
				t.Fatalf("marshal: got %d bytes, want %d", len(buf), HeaderSize)
			}
			got, err := unmarshalIndexHeader(buf)
			if err != nil {
				t.Fatalf("unmarshalIndexHeader: %v", err)
			}
			if diff := cmp.Diff(h, got); diff != "" {
				t.Errorf("unmarshalIndexHeader (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestUnmarshalIndexHeaderRejectsBadMagic(t *testing.T) {
	t.Parallel()

	h := IndexHeader{WriterVersion: WriterVersion, MagicNumber: 0xdeadbeef}
	_, err := unmarshalIndexHeader(h.marshal())
	if !errors.Is(err, ErrFormatInvalid) {
		t.Errorf("got %v, want ErrFormatInvalid", err)
	}
}

func TestUnmarshalIndexHeaderRejectsBadVersion(t *testing.T) {
	t.Parallel()

	h := IndexHeader{WriterVersion: WriterVersion + 1, MagicNumber: MagicNumber}
	_, err := unmarshalIndexHeader(h.marshal())
	if !errors.Is(err, ErrFormatInvalid) {
		t.Errorf("got %v, want ErrFormatInvalid", err)
	}
}

func TestIndexEntryRawRoundTrip(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		compress bool
	}{
		{name: "raw dictionary"},
		{name: "compressed dictionary", compress: true},
	}

	dict := bytes.Repeat([]byte("acgtACGT"), DictionarySize/8)

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			entry := IndexEntry{
				BlockIndex:      7,
				BlockOffsetRaw:  98765,
				StartingLine:    100,
				FirstLineOffset: 12,
				Bits:            5,
				Dictionary:      dict,
			}

			raw, err := entry.toRaw(tc.compress)
			if err != nil {
				t.Fatalf("toRaw: %v", err)
			}
			if tc.compress && raw.compressedDictLen == 0 {
				t.Fatalf("toRaw: expected a compressed dictionary length to be set")
			}

			prefix := raw.marshal()[:entryFixedSize]
			gotPrefix, err := unmarshalRawEntryPrefix(prefix)
			if err != nil {
				t.Fatalf("unmarshalRawEntryPrefix: %v", err)
			}
			gotPrefix.dictionary = raw.dictionary

			got, err := gotPrefix.toLogical()
			if err != nil {
				t.Fatalf("toLogical: %v", err)
			}
			if !got.Equal(entry) {
				t.Errorf("round trip mismatch: got %+v, want %+v", got, entry)
			}
		})
	}
}

func TestIndexEntryToRawRejectsBadDictionarySize(t *testing.T) {
	t.Parallel()

	entry := IndexEntry{Dictionary: []byte("too short")}
	if _, err := entry.toRaw(false); !errors.Is(err, ErrCorruptSource) {
		t.Errorf("got %v, want ErrCorruptSource", err)
	}
}
