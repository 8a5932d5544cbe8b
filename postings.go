package sift

// ═══════════════════════════════════════════════════════════════════════════════
// POSTING LISTS & BLOCK-PFOR CODEC
// ═══════════════════════════════════════════════════════════════════════════════
// A posting list is every occurrence of one term across the corpus. On disk
// it is compressed with block-PFOR (frame-of-reference + bit-packing) over
// fixed 128-document blocks; in memory it is a flat slice of PostingEntry in
// CANONICAL ORDER: score descending, then doc id ascending.
//
// The canonical order is load-bearing. The Tier 1 single-term fast path
// takes the first `limit` distinct doc ids off the front of the list and
// stops, which is only correct because the best posting for every document
// comes first.
//
// ON-DISK LAYOUT (per term, in vocabulary order):
// -----------------------------------------------
//	doc_freq:        varint  (number of postings)
//	num_full_blocks: varint
//	per full block:
//	  min_doc:       varint  (frame of reference for this block)
//	  bits:          u8      (width of each packed delta, ≤ 32)
//	  packed:        128 × bits / 8 bytes of deltas (doc_id − min_doc)
//	tail_count:      varint
//	tail:            varints, delta-coded from the previous doc id
//
// Scores, section indexes and heading levels ride in parallel arrays with
// the same block structure: a u8 width plus packed values per block, varint
// tails. Doc ids inside the encoded stream are sorted ascending (delta
// coding needs that); the canonical score-major order is rebuilt at decode
// time.
//
// WORKED EXAMPLE (one block boundary):
// ------------------------------------
// Doc ids 0,2,4,...,254 fill one block: min_doc=0, deltas 0..254 need 8
// bits, so the block packs into 128 bytes instead of 512. A tail of
// [260, 300] follows as varints 6 and 40 (deltas from 254 and 260).
// ═══════════════════════════════════════════════════════════════════════════════

import "sort"

// postingBlockSize is the number of documents per packed block.
const postingBlockSize = 128

// skipListThreshold is the doc count above which a posting list carries a
// skip list.
const skipListThreshold = 1024

// PostingEntry is one occurrence of a term.
//
// SectionIdx is 0 for "no section" or a 1-based index into the section-id
// table. HeadingLevel feeds the MatchType bucket (0 content, 1 title,
// 2..6 headings). Score is precomputed at build time; the query engine only
// ever reads it.
type PostingEntry struct {
	DocID        uint32
	SectionIdx   uint32
	HeadingLevel uint8
	Score        uint32
}

// canonicalizePostings sorts entries into the load-bearing order: score
// descending, then doc id ascending. The remaining keys only break ties so
// builds are bit-exact regardless of ingest order.
func canonicalizePostings(entries []PostingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].DocID != entries[j].DocID {
			return entries[i].DocID < entries[j].DocID
		}
		if entries[i].SectionIdx != entries[j].SectionIdx {
			return entries[i].SectionIdx < entries[j].SectionIdx
		}
		return entries[i].HeadingLevel < entries[j].HeadingLevel
	})
}

// ═══════════════════════════════════════════════════════════════════════════════
// BIT PACKING PRIMITIVES
// ═══════════════════════════════════════════════════════════════════════════════

// bitsFor reports the minimal width able to represent v (0 for v == 0).
func bitsFor(v uint32) uint8 {
	var bits uint8
	for v > 0 {
		bits++
		v >>= 1
	}
	return bits
}

// packUint32s appends count values bit-packed at the given width.
//
// Values are laid down little-endian within a running bit cursor; the final
// partial byte is zero-padded. Width 0 appends nothing (all values are 0).
func packUint32s(buf []byte, values []uint32, bits uint8) []byte {
	if bits == 0 {
		return buf
	}
	var acc uint64
	var accBits uint
	for _, v := range values {
		acc |= uint64(v) << accBits
		accBits += uint(bits)
		for accBits >= 8 {
			buf = append(buf, byte(acc))
			acc >>= 8
			accBits -= 8
		}
	}
	if accBits > 0 {
		buf = append(buf, byte(acc))
	}
	return buf
}

// unpackUint32s reads count values of the given width from r.
func unpackUint32s(r *byteReader, count int, bits uint8) ([]uint32, error) {
	values := make([]uint32, count)
	if bits == 0 {
		return values, nil
	}
	if bits > 32 {
		return nil, &BitsOutOfRangeError{Bits: bits}
	}
	nBytes := (count*int(bits) + 7) / 8
	raw, err := r.bytes(nBytes)
	if err != nil {
		return nil, ErrBlockTruncated
	}
	var acc uint64
	var accBits uint
	byteIdx := 0
	mask := uint64(1)<<bits - 1
	for i := 0; i < count; i++ {
		for accBits < uint(bits) {
			acc |= uint64(raw[byteIdx]) << accBits
			byteIdx++
			accBits += 8
		}
		values[i] = uint32(acc & mask)
		acc >>= bits
		accBits -= uint(bits)
	}
	return values, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// POSTING LIST ENCODER
// ═══════════════════════════════════════════════════════════════════════════════

// postingBlockMeta describes one full block as written: its first doc id
// and its byte offset within the postings section. The skip-list builder
// consumes these.
type postingBlockMeta struct {
	firstDoc uint32
	offset   uint32
}

// encodePostingList appends one term's postings to buf.
//
// base is the byte position where the postings section starts within buf,
// so block offsets come out section-relative. The entries may arrive in
// canonical (score-major) order; the encoder re-sorts a scratch copy by doc
// id for delta coding. Duplicate doc ids are legal in the input (one
// posting per section); the doc-id stream keeps them, since the parallel
// arrays are positional.
func encodePostingList(buf []byte, base int, entries []PostingEntry) ([]byte, []postingBlockMeta) {
	n := len(entries)
	buf = appendUvarint(buf, uint64(n))

	// Doc-id-ascending view for delta coding.
	sorted := make([]PostingEntry, n)
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DocID != sorted[j].DocID {
			return sorted[i].DocID < sorted[j].DocID
		}
		return sorted[i].SectionIdx < sorted[j].SectionIdx
	})

	numFullBlocks := n / postingBlockSize
	buf = appendUvarint(buf, uint64(numFullBlocks))

	// Full 128-doc blocks: frame-of-reference deltas, bit packed.
	blocks := make([]postingBlockMeta, 0, numFullBlocks)
	for b := 0; b < numFullBlocks; b++ {
		block := sorted[b*postingBlockSize : (b+1)*postingBlockSize]
		blocks = append(blocks, postingBlockMeta{firstDoc: block[0].DocID, offset: uint32(len(buf) - base)})
		minDoc := block[0].DocID
		deltas := make([]uint32, postingBlockSize)
		var maxDelta uint32
		for i, e := range block {
			deltas[i] = e.DocID - minDoc
			if deltas[i] > maxDelta {
				maxDelta = deltas[i]
			}
		}
		bits := bitsFor(maxDelta)
		buf = appendUvarint(buf, uint64(minDoc))
		buf = append(buf, bits)
		buf = packUint32s(buf, deltas, bits)
	}

	// Tail: varint deltas from the last full block's final doc.
	tail := sorted[numFullBlocks*postingBlockSize:]
	buf = appendUvarint(buf, uint64(len(tail)))
	prev := uint32(0)
	if numFullBlocks > 0 {
		prev = sorted[numFullBlocks*postingBlockSize-1].DocID
	}
	for _, e := range tail {
		buf = appendUvarint(buf, uint64(e.DocID-prev))
		prev = e.DocID
	}

	// Parallel arrays in the same block structure: scores, section indexes,
	// heading levels.
	buf = encodeParallelArray(buf, sorted, func(e PostingEntry) uint32 { return e.Score })
	buf = encodeParallelArray(buf, sorted, func(e PostingEntry) uint32 { return e.SectionIdx })
	buf = encodeParallelArray(buf, sorted, func(e PostingEntry) uint32 { return uint32(e.HeadingLevel) })

	return buf, blocks
}

// encodeParallelArray writes one companion array (scores, sections, levels)
// with the same full-block/tail split as the doc ids: per block a u8 width
// plus packed values, then varint tail values.
func encodeParallelArray(buf []byte, sorted []PostingEntry, get func(PostingEntry) uint32) []byte {
	n := len(sorted)
	numFullBlocks := n / postingBlockSize
	for b := 0; b < numFullBlocks; b++ {
		block := sorted[b*postingBlockSize : (b+1)*postingBlockSize]
		values := make([]uint32, postingBlockSize)
		var maxVal uint32
		for i, e := range block {
			values[i] = get(e)
			if values[i] > maxVal {
				maxVal = values[i]
			}
		}
		bits := bitsFor(maxVal)
		buf = append(buf, bits)
		buf = packUint32s(buf, values, bits)
	}
	for _, e := range sorted[numFullBlocks*postingBlockSize:] {
		buf = appendUvarint(buf, uint64(get(e)))
	}
	return buf
}

// ═══════════════════════════════════════════════════════════════════════════════
// POSTING LIST DECODER
// ═══════════════════════════════════════════════════════════════════════════════

// decodePostingList reads one term's postings and returns them in canonical
// (score desc, doc asc) order.
func decodePostingList(r *byteReader) ([]PostingEntry, error) {
	docFreq, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	// Even an all-zero-width list costs ~2 bytes per 128 docs; a doc_freq
	// beyond that bound is corruption, reject before allocating.
	if docFreq > uint64(r.remaining())*postingBlockSize {
		return nil, ErrBlockTruncated
	}
	n := int(docFreq)

	numFullBlocks64, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	numFullBlocks := int(numFullBlocks64)
	if numFullBlocks != n/postingBlockSize {
		return nil, ErrBlockTruncated
	}

	entries := make([]PostingEntry, n)

	// Doc ids: packed full blocks, then the varint tail.
	for b := 0; b < numFullBlocks; b++ {
		minDoc64, err := r.uvarint()
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
		deltas, err := unpackUint32s(r, postingBlockSize, bits)
		if err != nil {
			return nil, err
		}
		for i, d := range deltas {
			entries[b*postingBlockSize+i].DocID = uint32(minDoc64) + d
		}
	}
	tailCount, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	if int(tailCount) != n-numFullBlocks*postingBlockSize {
		return nil, ErrBlockTruncated
	}
	prev := uint32(0)
	if numFullBlocks > 0 {
		prev = entries[numFullBlocks*postingBlockSize-1].DocID
	}
	for i := numFullBlocks * postingBlockSize; i < n; i++ {
		delta, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		entries[i].DocID = prev + uint32(delta)
		prev = entries[i].DocID
	}

	// Parallel arrays.
	if err := decodeParallelArray(r, entries, func(e *PostingEntry, v uint32) { e.Score = v }); err != nil {
		return nil, err
	}
	if err := decodeParallelArray(r, entries, func(e *PostingEntry, v uint32) { e.SectionIdx = v }); err != nil {
		return nil, err
	}
	if err := decodeParallelArray(r, entries, func(e *PostingEntry, v uint32) { e.HeadingLevel = uint8(v) }); err != nil {
		return nil, err
	}

	canonicalizePostings(entries)
	return entries, nil
}

// decodeParallelArray reads one companion array into entries via set.
func decodeParallelArray(r *byteReader, entries []PostingEntry, set func(*PostingEntry, uint32)) error {
	n := len(entries)
	numFullBlocks := n / postingBlockSize
	for b := 0; b < numFullBlocks; b++ {
		bits, err := r.u8()
		if err != nil {
			return err
		}
		if bits > 32 {
			return &BitsOutOfRangeError{Bits: bits}
		}
		values, err := unpackUint32s(r, postingBlockSize, bits)
		if err != nil {
			return err
		}
		for i, v := range values {
			set(&entries[b*postingBlockSize+i], v)
		}
	}
	for i := numFullBlocks * postingBlockSize; i < n; i++ {
		v, err := r.uvarint()
		if err != nil {
			return err
		}
		set(&entries[i], uint32(v))
	}
	return nil
}

// encodePostingsSection appends every term's posting list in vocabulary
// order and returns each list's full-block metadata, which the skip-list
// builder points into.
func encodePostingsSection(buf []byte, postings [][]PostingEntry) ([]byte, [][]postingBlockMeta) {
	base := len(buf)
	blocks := make([][]postingBlockMeta, len(postings))
	for i, list := range postings {
		buf, blocks[i] = encodePostingList(buf, base, list)
	}
	return buf, blocks
}

// decodePostingsSection reads termCount posting lists.
func decodePostingsSection(data []byte, termCount int) ([][]PostingEntry, error) {
	r := newByteReader(data, "postings")
	postings := make([][]PostingEntry, termCount)
	for i := 0; i < termCount; i++ {
		list, err := decodePostingList(r)
		if err != nil {
			return nil, err
		}
		postings[i] = list
	}
	return postings, nil
}
