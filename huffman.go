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

// huffmanTree is a canonical Huffman decode table built per RFC 1951
// §3.2.2. Codes are looked up bit-by-bit (MSB first within the code,
// but each bit is itself read LSB-first from the stream via bitReader)
// which keeps the table small; fastqindex does not need the
// table-driven fast path compress/flate uses internally since indexing
// runs once per file, not once per request.
type huffmanTree struct {
	// counts[n] is the number of codes of length n (1..15).
	counts [16]int
	// symbols is the list of symbols ordered by (code length, symbol
	// value), matching the canonical assignment algorithm.
	symbols []int
}

// buildHuffmanTree constructs a canonical Huffman tree from a list of
// per-symbol code lengths (0 meaning "symbol unused").
func buildHuffmanTree(lengths []int) (*huffmanTree, error) {
	t := &huffmanTree{}
	for _, l := range lengths {
		if l < 0 || l > 15 {
			return nil, fmt.Errorf("%w: invalid huffman code length %d", ErrCorruptSource, l)
		}
		t.counts[l]++
	}
	t.counts[0] = 0

	offsets := make([]int, 16)
	for i := 1; i < 16; i++ {
		offsets[i] = offsets[i-1] + t.counts[i-1]
	}
	t.symbols = make([]int, len(lengths)-countZero(lengths))
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		t.symbols[offsets[l]] = sym
		offsets[l]++
	}
	return t, nil
}

func countZero(lengths []int) int {
	n := 0
	for _, l := range lengths {
		if l == 0 {
			n++
		}
	}
	return n
}

// decode reads one symbol from br using t, following the canonical
// bit-by-bit decode algorithm from RFC 1951's reference implementation
// (puff.c): codes are accumulated MSB-first even though each
// constituent bit is read LSB-first from its byte.
func (t *huffmanTree) decode(br *bitReader) (int, error) {
	var code, first, index int
	for length := 1; length <= 15; length++ {
		bit, err := br.readBits(1)
		if err != nil {
			return 0, err
		}
		code |= int(bit)
		count := t.counts[length]
		if code-first < count {
			return t.symbols[index+(code-first)], nil
		}
		index += count
		first += count
		first <<= 1
		code <<= 1
	}
	return 0, fmt.Errorf("%w: invalid huffman code", ErrCorruptSource)
}

// fixedLiteralLengths is the fixed literal/length code-length table
// from RFC 1951 §3.2.6.
func fixedLiteralLengths() []int {
	lengths := make([]int, 288)
	for i := 0; i < 144; i++ {
		lengths[i] = 8
	}
	for i := 144; i < 256; i++ {
		lengths[i] = 9
	}
	for i := 256; i < 280; i++ {
		lengths[i] = 7
	}
	for i := 280; i < 288; i++ {
		lengths[i] = 8
	}
	return lengths
}

// fixedDistanceLengths is the fixed distance code-length table from
// RFC 1951 §3.2.6.
func fixedDistanceLengths() []int {
	lengths := make([]int, 30)
	for i := range lengths {
		lengths[i] = 5
	}
	return lengths
}

// codeLengthOrder is the permuted order in which code-length
// code-lengths are transmitted for dynamic Huffman blocks (RFC 1951
// §3.2.7).
var codeLengthOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// lengthBase and lengthExtraBits give, for length symbols 257-285, the
// base length and number of extra bits to read (RFC 1951 §3.2.5).
var lengthBase = [29]int{3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31, 35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258}
var lengthExtraBits = [29]uint{0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0}

// distBase and distExtraBits give, for distance symbols 0-29, the base
// distance and number of extra bits to read (RFC 1951 §3.2.5).
var distBase = [30]int{1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193, 257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577}
var distExtraBits = [30]uint{0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13}
