package sift

// ═══════════════════════════════════════════════════════════════════════════════
// VOCABULARY SUFFIX ARRAY: Prefix Expansion for Tier 2
// ═══════════════════════════════════════════════════════════════════════════════
// Tier 2 needs "every vocabulary term that starts with this query fragment",
// fast. Sorting all suffixes of all terms gives it to us with one binary
// search:
//
//	vocabulary: ["cat", "cater", "scatter"]
//	suffixes:   "at"(cat,1) "at"(scatter,3)... "cat"(cat,0) "cater"(cater,0)
//	            "catter"(scatter,1) ...
//
// Query "cat" binary-searches to the first suffix ≥ "cat", then scans
// forward while suffixes still start with "cat". Entries with offset 0 are
// prefix matches of a whole term ("cat", "cater"); entries with offset > 0
// are infix hits ("scatter") and are filtered out here, though the scan
// still visits them.
//
// CONSTRUCTION:
// -------------
// The terms are concatenated with a low separator (1) and a unique smallest
// sentinel (0) at the end, then handed to SA-IS. Entries that land on
// separators or mid-way through a UTF-8 character are dropped; the rest are
// translated back into (term ordinal, byte offset) pairs.
//
// The pairs are serialized frame-of-reference style: a varint count, then
// for each of the two columns a varint minimum, a u8 bit width, and the
// packed deltas.
// ═══════════════════════════════════════════════════════════════════════════════

import (
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// SuffixEntry points at the suffix of a vocabulary term starting at a byte
// offset. Offsets always lie on UTF-8 character boundaries.
type SuffixEntry struct {
	TermOrd    uint32
	CharOffset uint32
}

// buildVocabSuffixArray constructs the sorted suffix array for a vocabulary
// that is already lexicographically sorted.
//
// The result is sorted by the referenced suffix under byte-lexicographic
// ordering, the property Tier 2's binary search depends on.
func buildVocabSuffixArray(vocabulary []string) []SuffixEntry {
	if len(vocabulary) == 0 {
		return nil
	}

	// Concatenate with separator 1 and final sentinel 0; real bytes shift
	// up by 2 so the sentinel is the unique minimum SA-IS wants.
	totalLen := 1
	for _, term := range vocabulary {
		totalLen += len(term) + 1
	}
	text := make([]int, 0, totalLen)
	// termAt[i] = vocabulary ordinal covering text position i (-1 on
	// separators); offsetAt[i] = byte offset within that term.
	termAt := make([]int32, 0, totalLen)
	offsetAt := make([]uint32, 0, totalLen)

	for ord, term := range vocabulary {
		for i := 0; i < len(term); i++ {
			text = append(text, int(term[i])+2)
			termAt = append(termAt, int32(ord))
			offsetAt = append(offsetAt, uint32(i))
		}
		text = append(text, 1)
		termAt = append(termAt, -1)
		offsetAt = append(offsetAt, 0)
	}
	text[len(text)-1] = 0 // final separator becomes the sentinel

	sa := saisSuffixArray(text, 258)

	entries := make([]SuffixEntry, 0, len(sa))
	for _, pos := range sa {
		ord := termAt[pos]
		if ord < 0 {
			continue
		}
		term := vocabulary[ord]
		off := offsetAt[pos]
		// Keep only character-boundary offsets so every entry names a
		// decodable suffix.
		if off > 0 && !isUTF8Start(term[off]) {
			continue
		}
		entries = append(entries, SuffixEntry{TermOrd: uint32(ord), CharOffset: off})
	}
	return entries
}

// isUTF8Start reports whether b begins a UTF-8 sequence (i.e. is not a
// continuation byte).
func isUTF8Start(b byte) bool {
	return b&0xC0 != 0x80
}

// suffixAt returns the suffix a valid entry references, or "" and false for
// an entry that points outside its term.
func suffixAt(entry SuffixEntry, vocabulary []string) (string, bool) {
	if int(entry.TermOrd) >= len(vocabulary) {
		return "", false
	}
	term := vocabulary[entry.TermOrd]
	off := int(entry.CharOffset)
	if off > len(term) {
		return "", false
	}
	if off < len(term) && !isUTF8Start(term[off]) {
		return "", false
	}
	return term[off:], true
}

// prefixSearchVocabulary returns the ordinals of vocabulary terms beginning
// with prefix, ascending.
//
// Binary search (sort.Search is Go's partition point) finds the first
// suffix ≥ prefix; a forward scan collects suffixes while they still carry
// the prefix. Only offset-0 entries count: an infix hit shares the suffix
// run but is not a prefix of its term. Entries with out-of-range ordinals
// terminate the scan; mid-character offsets are skipped.
func prefixSearchVocabulary(suffixArray []SuffixEntry, vocabulary []string, prefix string) []uint32 {
	if len(suffixArray) == 0 || prefix == "" {
		return nil
	}

	start := sort.Search(len(suffixArray), func(i int) bool {
		suffix, ok := suffixAt(suffixArray[i], vocabulary)
		if !ok {
			return true // malformed entries sort high and stop the scan below
		}
		return suffix >= prefix
	})
	if start >= len(suffixArray) {
		return nil
	}

	matched := roaring.New()
	for i := start; i < len(suffixArray); i++ {
		entry := suffixArray[i]
		if int(entry.TermOrd) >= len(vocabulary) {
			break
		}
		suffix, ok := suffixAt(entry, vocabulary)
		if !ok {
			continue
		}
		if !strings.HasPrefix(suffix, prefix) {
			break // sorted array: past the last prefix match
		}
		if entry.CharOffset == 0 {
			matched.Add(entry.TermOrd)
		}
	}

	if matched.IsEmpty() {
		return nil
	}
	return matched.ToArray() // roaring iterates ascending, so this is sorted
}

// ═══════════════════════════════════════════════════════════════════════════════
// SERIALIZATION
// ═══════════════════════════════════════════════════════════════════════════════

// encodeSuffixArraySection appends the suffix array: varint count, then two
// frame-of-reference packed columns (term ordinals, byte offsets).
func encodeSuffixArraySection(buf []byte, entries []SuffixEntry) []byte {
	buf = appendUvarint(buf, uint64(len(entries)))
	if len(entries) == 0 {
		return buf
	}

	encodeColumn := func(buf []byte, get func(SuffixEntry) uint32) []byte {
		minVal := get(entries[0])
		for _, e := range entries[1:] {
			if v := get(e); v < minVal {
				minVal = v
			}
		}
		deltas := make([]uint32, len(entries))
		var maxDelta uint32
		for i, e := range entries {
			deltas[i] = get(e) - minVal
			if deltas[i] > maxDelta {
				maxDelta = deltas[i]
			}
		}
		bits := bitsFor(maxDelta)
		buf = appendUvarint(buf, uint64(minVal))
		buf = append(buf, bits)
		return packUint32s(buf, deltas, bits)
	}

	buf = encodeColumn(buf, func(e SuffixEntry) uint32 { return e.TermOrd })
	buf = encodeColumn(buf, func(e SuffixEntry) uint32 { return e.CharOffset })
	return buf
}

// decodeSuffixArraySection reads the suffix array section.
func decodeSuffixArraySection(data []byte) ([]SuffixEntry, error) {
	r := newByteReader(data, "suffix array")
	count, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	// Two columns of packed values cannot be smaller than count/8 bytes
	// each at 1 bit; reject absurd counts before allocating.
	if count > uint64(r.remaining())*16 {
		return nil, &TruncatedSectionError{Name: r.section, Need: int(count / 16), Have: r.remaining()}
	}

	decodeColumn := func() ([]uint32, error) {
		minVal, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		bits, err := r.u8()
		if err != nil {
			return nil, err
		}
		if bits > 32 {
			return nil, &BitsOutOfRangeError{Bits: bits}
		}
		deltas, err := unpackUint32s(r, int(count), bits)
		if err != nil {
			return nil, err
		}
		for i := range deltas {
			deltas[i] += uint32(minVal)
		}
		return deltas, nil
	}

	termOrds, err := decodeColumn()
	if err != nil {
		return nil, err
	}
	offsets, err := decodeColumn()
	if err != nil {
		return nil, err
	}

	entries := make([]SuffixEntry, count)
	for i := range entries {
		entries[i] = SuffixEntry{TermOrd: termOrds[i], CharOffset: offsets[i]}
	}
	return entries, nil
}
