package sift

import (
	"errors"
	"math/rand"
	"testing"
)

// ═══════════════════════════════════════════════════════════════════════════════
// POSTING CODEC TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestBitsFor(t *testing.T) {
	tests := []struct {
		v    uint32
		want uint8
	}{
		{0, 0}, {1, 1}, {2, 2}, {3, 2}, {4, 3}, {127, 7}, {128, 8},
		{255, 8}, {256, 9}, {1<<31 - 1, 31}, {1 << 31, 32},
	}
	for _, tt := range tests {
		if got := bitsFor(tt.v); got != tt.want {
			t.Errorf("bitsFor(%d) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestPackUint32s_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, bits := range []uint8{1, 3, 7, 8, 13, 17, 24, 32} {
		count := 128
		values := make([]uint32, count)
		mask := uint64(1)<<bits - 1
		for i := range values {
			values[i] = uint32(rng.Uint64() & mask)
		}

		packed := packUint32s(nil, values, bits)
		wantLen := (count*int(bits) + 7) / 8
		if len(packed) != wantLen {
			t.Errorf("bits=%d: packed %d bytes, want %d", bits, len(packed), wantLen)
		}

		unpacked, err := unpackUint32s(newByteReader(packed, "test"), count, bits)
		if err != nil {
			t.Fatalf("bits=%d: unpack: %v", bits, err)
		}
		for i := range values {
			if unpacked[i] != values[i] {
				t.Fatalf("bits=%d: value %d: got %d, want %d", bits, i, unpacked[i], values[i])
			}
		}
	}
}

func TestPackUint32s_ZeroBits(t *testing.T) {
	packed := packUint32s(nil, make([]uint32, 128), 0)
	if len(packed) != 0 {
		t.Errorf("zero-bit pack produced %d bytes", len(packed))
	}
	values, err := unpackUint32s(newByteReader(nil, "test"), 128, 0)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	for _, v := range values {
		if v != 0 {
			t.Fatal("zero-bit unpack should yield zeros")
		}
	}
}

// makePostings builds n entries with deterministic pseudo-random fields.
func makePostings(n int, seed int64) []PostingEntry {
	rng := rand.New(rand.NewSource(seed))
	entries := make([]PostingEntry, 0, n)
	doc := uint32(0)
	for i := 0; i < n; i++ {
		doc += uint32(rng.Intn(5) + 1) // strictly increasing doc ids
		entries = append(entries, PostingEntry{
			DocID:        doc,
			SectionIdx:   uint32(rng.Intn(8)),
			HeadingLevel: uint8(rng.Intn(7)),
			Score:        uint32(rng.Intn(1000)),
		})
	}
	return entries
}

func TestPostingList_RoundTrip(t *testing.T) {
	// Sizes chosen around the 128-doc block boundary.
	for _, n := range []int{0, 1, 5, 127, 128, 129, 255, 256, 300, 1000} {
		entries := makePostings(n, int64(n))
		canonicalizePostings(entries)

		buf, _ := encodePostingList(nil, 0, entries)
		decoded, err := decodePostingList(newByteReader(buf, "postings"))
		if err != nil {
			t.Fatalf("n=%d: decode: %v", n, err)
		}

		if len(decoded) != len(entries) {
			t.Fatalf("n=%d: decoded %d entries, want %d", n, len(decoded), len(entries))
		}
		for i := range entries {
			if decoded[i] != entries[i] {
				t.Fatalf("n=%d: entry %d: got %+v, want %+v", n, i, decoded[i], entries[i])
			}
		}
	}
}

func TestPostingList_DecodedOrderIsCanonical(t *testing.T) {
	entries := makePostings(500, 7)
	canonicalizePostings(entries)
	buf, _ := encodePostingList(nil, 0, entries)

	decoded, err := decodePostingList(newByteReader(buf, "postings"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	for i := 1; i < len(decoded); i++ {
		prev, curr := decoded[i-1], decoded[i]
		if curr.Score > prev.Score {
			t.Fatalf("entry %d: score %d after %d (not descending)", i, curr.Score, prev.Score)
		}
		if curr.Score == prev.Score && curr.DocID < prev.DocID {
			t.Fatalf("entry %d: doc %d after %d within score %d", i, curr.DocID, prev.DocID, curr.Score)
		}
	}
}

func TestPostingList_BlockMetadata(t *testing.T) {
	entries := makePostings(300, 3) // 2 full blocks + tail of 44
	canonicalizePostings(entries)

	buf, blocks := encodePostingList(nil, 0, entries)
	if len(blocks) != 2 {
		t.Fatalf("got %d block records, want 2", len(blocks))
	}
	if blocks[0].offset >= blocks[1].offset {
		t.Errorf("block offsets not increasing: %d, %d", blocks[0].offset, blocks[1].offset)
	}
	if blocks[1].offset >= uint32(len(buf)) {
		t.Errorf("block offset %d past encoded length %d", blocks[1].offset, len(buf))
	}
	if blocks[0].firstDoc >= blocks[1].firstDoc {
		t.Errorf("block first docs not increasing: %d, %d", blocks[0].firstDoc, blocks[1].firstDoc)
	}
}

func TestPostingList_Truncated(t *testing.T) {
	entries := makePostings(200, 11)
	canonicalizePostings(entries)
	buf, _ := encodePostingList(nil, 0, entries)

	// Chop the buffer at several points; every cut must fail, never panic.
	for _, cut := range []int{1, 2, 5, 10, len(buf) / 2, len(buf) - 1} {
		_, err := decodePostingList(newByteReader(buf[:cut], "postings"))
		if err == nil {
			t.Errorf("cut at %d: decode should fail", cut)
		}
	}
}

func TestPostingList_BitsOutOfRange(t *testing.T) {
	// Hand-craft a list header claiming a 33-bit block.
	buf := appendUvarint(nil, 128) // doc_freq = one full block
	buf = appendUvarint(buf, 1)    // num_full_blocks
	buf = appendUvarint(buf, 0)    // min_doc
	buf = append(buf, 33)          // bits: out of range

	_, err := decodePostingList(newByteReader(buf, "postings"))
	var oor *BitsOutOfRangeError
	if !errors.As(err, &oor) {
		t.Fatalf("got %v, want BitsOutOfRangeError", err)
	}
	if oor.Bits != 33 {
		t.Errorf("Bits = %d, want 33", oor.Bits)
	}
}

func TestPostingsSection_RoundTrip(t *testing.T) {
	lists := [][]PostingEntry{
		makePostings(10, 1),
		nil, // a term with no postings is legal in shape, if odd
		makePostings(200, 2),
		makePostings(1, 3),
	}
	for _, l := range lists {
		canonicalizePostings(l)
	}

	buf, blocks := encodePostingsSection(nil, lists)
	if len(blocks) != len(lists) {
		t.Fatalf("block metadata for %d lists, want %d", len(blocks), len(lists))
	}

	decoded, err := decodePostingsSection(buf, len(lists))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := range lists {
		if len(decoded[i]) != len(lists[i]) {
			t.Fatalf("list %d: %d entries, want %d", i, len(decoded[i]), len(lists[i]))
		}
	}
}
