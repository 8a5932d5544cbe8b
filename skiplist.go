package sift

// ═══════════════════════════════════════════════════════════════════════════════
// SKIP LISTS: Express Lanes Over Large Posting Lists
// ═══════════════════════════════════════════════════════════════════════════════
// A posting list with thousands of documents is expensive to scan when all a
// query wants is "the first posting at or after document 50,000". Skip lists
// solve this with waypoints at geometrically decreasing density:
//
// Level 2: [doc 0]---------------------------[doc 2048]----------------→
// Level 1: [doc 0]-----[doc 512]-----[doc 1024]-----[doc 1536]---------→
// Level 0: [doc 0][doc 128][doc 256][doc 384][doc 512][doc 640]...     →
//                  ^^^ one waypoint per 128-doc block
//
// Unlike an insertable skip list with randomized towers, this one is STATIC:
// the index is immutable, so the levels are computed once at build time and
// serialized. Level 0 has a waypoint per posting block; each higher level
// samples every fourth waypoint of the level below. A list earns
// ⌊log₄(doc_freq)⌋ levels once it crosses the 1024-document threshold.
//
// SEARCH EXAMPLE (AdvanceTo 50,000):
// ----------------------------------
// 1. Start at the top level, walk right while waypoint.doc ≤ target
// 2. Drop a level, continue from the same waypoint
// 3. At level 0 the surviving waypoint names the one block that can contain
//    the target; the caller scans those 128 docs linearly.
//
// Each waypoint is (first doc id in block, byte offset of the block within
// the postings section), so a reader can jump straight into the compressed
// stream without touching the blocks in between.
// ═══════════════════════════════════════════════════════════════════════════════

// skipLevelFanout is the sampling ratio between adjacent levels.
const skipLevelFanout = 4

// SkipWaypoint is one entry in a skip level.
type SkipWaypoint struct {
	DocID       uint32 // first doc id in the referenced block
	BlockOffset uint32 // byte offset of the block within the postings section
}

// SkipList is the multi-level skip index for one term's posting list.
//
// Levels[0] is the densest level (one waypoint per block); higher indexes
// are sparser. A SkipList is only built for lists with more than 1024
// documents; smaller lists scan linearly just fine.
type SkipList struct {
	TermOrd uint32
	Levels  [][]SkipWaypoint
}

// skipLevelCount reports how many levels a list with docFreq documents
// carries: ⌊log₄(doc_freq)⌋, minimum 1 once past the threshold.
func skipLevelCount(docFreq int) int {
	levels := 0
	for n := docFreq; n >= skipLevelFanout; n /= skipLevelFanout {
		levels++
	}
	if levels < 1 {
		levels = 1
	}
	return levels
}

// buildSkipList constructs the static skip structure for one posting list.
//
// blockDocs and blockOffsets describe the list's full 128-doc blocks in
// doc-id order: the first doc id of each block and the block's byte offset.
// Returns nil when the list is at or under the threshold.
func buildSkipList(termOrd uint32, docFreq int, blockDocs []uint32, blockOffsets []uint32) *SkipList {
	if docFreq <= skipListThreshold || len(blockDocs) == 0 {
		return nil
	}

	levelCount := skipLevelCount(docFreq)
	levels := make([][]SkipWaypoint, 0, levelCount)

	// Level 0: every block.
	level0 := make([]SkipWaypoint, len(blockDocs))
	for i := range blockDocs {
		level0[i] = SkipWaypoint{DocID: blockDocs[i], BlockOffset: blockOffsets[i]}
	}
	levels = append(levels, level0)

	// Higher levels: every fourth waypoint of the level below.
	for l := 1; l < levelCount; l++ {
		below := levels[l-1]
		level := make([]SkipWaypoint, 0, len(below)/skipLevelFanout+1)
		for i := 0; i < len(below); i += skipLevelFanout {
			level = append(level, below[i])
		}
		levels = append(levels, level)
	}

	return &SkipList{TermOrd: termOrd, Levels: levels}
}

// AdvanceTo returns the waypoint of the last block whose first doc id is at
// or before target, hopping down from the sparsest level.
//
// The caller scans that one block linearly for the exact posting. Returns
// false when target precedes the first block (the scan should start at the
// list head).
func (s *SkipList) AdvanceTo(target uint32) (SkipWaypoint, bool) {
	if len(s.Levels) == 0 {
		return SkipWaypoint{}, false
	}

	best := SkipWaypoint{}
	found := false
	pos := 0 // waypoint index within the current level

	for l := len(s.Levels) - 1; l >= 0; l-- {
		level := s.Levels[l]
		// Walk right while the waypoint still starts at or before target.
		for pos < len(level) && level[pos].DocID <= target {
			best = level[pos]
			found = true
			pos++
		}
		// Step back to the last good waypoint, then translate the position
		// into the denser level below.
		if pos > 0 {
			pos--
		}
		if l > 0 {
			pos *= skipLevelFanout
		}
	}

	return best, found
}

// ═══════════════════════════════════════════════════════════════════════════════
// SERIALIZATION
// ═══════════════════════════════════════════════════════════════════════════════
// Per list: varint(term_ord), u8 level_count, then per level
// varint(skip_count) followed by (varint doc_id, varint block_offset) pairs.
// ═══════════════════════════════════════════════════════════════════════════════

// encode appends the skip list to buf.
func (s *SkipList) encode(buf []byte) []byte {
	buf = appendUvarint(buf, uint64(s.TermOrd))
	buf = append(buf, uint8(len(s.Levels)))
	for _, level := range s.Levels {
		buf = appendUvarint(buf, uint64(len(level)))
		for _, w := range level {
			buf = appendUvarint(buf, uint64(w.DocID))
			buf = appendUvarint(buf, uint64(w.BlockOffset))
		}
	}
	return buf
}

// encodeSkipListSection appends every skip list in term order.
func encodeSkipListSection(buf []byte, lists []*SkipList) []byte {
	for _, s := range lists {
		buf = s.encode(buf)
	}
	return buf
}

// decodeSkipListSection reads skip lists until the section is exhausted,
// returning them keyed by term ordinal.
func decodeSkipListSection(data []byte) (map[uint32]*SkipList, error) {
	r := newByteReader(data, "skip lists")
	lists := make(map[uint32]*SkipList)
	for !r.done() {
		termOrd, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		levelCount, err := r.u8()
		if err != nil {
			return nil, err
		}
		s := &SkipList{TermOrd: uint32(termOrd), Levels: make([][]SkipWaypoint, levelCount)}
		for l := 0; l < int(levelCount); l++ {
			count, err := r.uvarint()
			if err != nil {
				return nil, err
			}
			if count > uint64(r.remaining()) {
				return nil, &TruncatedSectionError{Name: r.section, Need: int(count), Have: r.remaining()}
			}
			level := make([]SkipWaypoint, count)
			for i := range level {
				doc, err := r.uvarint()
				if err != nil {
					return nil, err
				}
				off, err := r.uvarint()
				if err != nil {
					return nil, err
				}
				level[i] = SkipWaypoint{DocID: uint32(doc), BlockOffset: uint32(off)}
			}
			s.Levels[l] = level
		}
		lists[s.TermOrd] = s
	}
	return lists, nil
}
